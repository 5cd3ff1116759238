// internal/eventlistener/decoder.go
package eventlistener

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
	"github.com/tidwall/gjson"
)

const (
	createInstructionLog = "Program log: Instruction: Create"
	programDataPrefix    = "Program data: "
)

// CreateEventDiscriminator prefixes the CreateEvent payload.
var CreateEventDiscriminator = []byte{0x1b, 0x72, 0xa9, 0x4d, 0xde, 0xeb, 0x63, 0x76}

// DecodeNotification decodes a raw websocket message. Messages that are not
// log notifications of a Create instruction yield (nil, nil).
func DecodeNotification(msg []byte) (*CreationEvent, error) {
	if !gjson.ValidBytes(msg) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}
	root := gjson.ParseBytes(msg)
	if root.Get("method").String() != "logsNotification" {
		return nil, nil
	}

	value := root.Get("params.result.value")
	var logs []string
	for _, line := range value.Get("logs").Array() {
		logs = append(logs, line.String())
	}
	return ParseLogs(value.Get("signature").String(), logs)
}

// ParseLogs extracts the creation event from a transaction's log lines.
// Payloads carrying the CreateEvent discriminator are tried first; the first
// one that parses wins.
func ParseLogs(signature string, logs []string) (*CreationEvent, error) {
	relevant := false
	for _, line := range logs {
		if strings.Contains(line, createInstructionLog) {
			relevant = true
			break
		}
	}
	if !relevant {
		return nil, nil
	}

	var payloads [][]byte
	var lastErr error
	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line[idx+len(programDataPrefix):]))
		if err != nil {
			lastErr = fmt.Errorf("%w: bad base64: %v", ErrMalformedEvent, err)
			continue
		}
		if bytes.HasPrefix(data, CreateEventDiscriminator) {
			payloads = append([][]byte{data}, payloads...)
		} else {
			payloads = append(payloads, data)
		}
	}

	for _, data := range payloads {
		event, err := ParseCreateEvent(data)
		if err != nil {
			lastErr = err
			continue
		}
		event.Signature = signature
		return event, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no program data", ErrMalformedEvent)
	}
	return nil, lastErr
}

// ParseCreateEvent decodes a CreateEvent payload: an 8-byte discriminator,
// three length-prefixed strings, then four 32-byte keys.
func ParseCreateEvent(data []byte) (*CreationEvent, error) {
	dec := bin.NewBorshDecoder(data)
	if err := dec.SkipBytes(8); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var strs [3]string
	for i := range strs {
		s, err := readString(dec)
		if err != nil {
			return nil, err
		}
		strs[i] = s
	}

	var keys [4]string
	for i := range keys {
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %v", ErrMalformedEvent, i, err)
		}
		keys[i] = base58.Encode(raw)
	}

	return &CreationEvent{
		Name:         strs[0],
		Symbol:       strs[1],
		URI:          strs[2],
		Mint:         keys[0],
		BondingCurve: keys[1],
		User:         keys[2],
		Creator:      keys[3],
	}, nil
}

func readString(dec *bin.Decoder) (string, error) {
	length, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return "", fmt.Errorf("%w: string length: %v", ErrMalformedEvent, err)
	}
	raw, err := dec.ReadNBytes(int(length))
	if err != nil {
		return "", fmt.Errorf("%w: string body: %v", ErrMalformedEvent, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: string is not valid utf-8", ErrMalformedEvent)
	}
	return string(raw), nil
}
