// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError is the program error reported in simulation logs.
type AnchorError struct {
	Code int
	Name string
	Msg  string
}

// ErrorFields describes an RPC error for logging: code, message and, for a
// failed simulation, the Anchor error found in the program logs.
func ErrorFields(err error) []zap.Field {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return []zap.Field{zap.Error(err)}
	}

	fields := []zap.Field{
		zap.Int("rpc_code", rpcErr.Code),
		zap.String("rpc_message", rpcErr.Message),
	}
	for _, line := range simulationLogs(rpcErr) {
		if anchorErr, ok := ParseAnchorError(line); ok {
			fields = append(fields,
				zap.Int("anchor_code", anchorErr.Code),
				zap.String("anchor_name", anchorErr.Name),
				zap.String("anchor_message", anchorErr.Msg))
			break
		}
	}
	return fields
}

func simulationLogs(rpcErr *jsonrpc.RPCError) []string {
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := data["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

// ParseAnchorError разбирает строку вида
// "Program log: AnchorError occurred. Error Code: X. Error Number: 6002. Error Message: Y."
func ParseAnchorError(line string) (AnchorError, bool) {
	if !strings.Contains(line, "AnchorError") {
		return AnchorError{}, false
	}
	var res AnchorError
	res.Name = fieldAfter(line, "Error Code:")
	res.Msg = fieldAfter(line, "Error Message:")
	if n, err := strconv.Atoi(fieldAfter(line, "Error Number:")); err == nil {
		res.Code = n
	}
	return res, true
}

// fieldAfter returns the text after key up to the next ". " or end of line.
func fieldAfter(line, key string) string {
	idx := strings.Index(line, key)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(key):]
	if end := strings.Index(rest, ". "); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSuffix(strings.TrimSpace(rest), ".")
}
