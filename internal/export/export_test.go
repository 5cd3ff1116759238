package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpfun-bot/internal/eventlistener"
)

func testEvent(symbol string) *eventlistener.CreationEvent {
	return &eventlistener.CreationEvent{
		Signature:    "sig-" + symbol,
		Name:         "Name, with comma",
		Symbol:       symbol,
		URI:          "https://example.com/" + symbol,
		Mint:         "mint-" + symbol,
		BondingCurve: "curve",
		User:         "user",
		Creator:      "creator",
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromPath("out/events.CSV"))
	assert.Equal(t, FormatJSONL, FormatFromPath("events.jsonl"))
	assert.Equal(t, FormatJSONL, FormatFromPath("events"))
}

func TestEventExporter_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.csv")

	e, err := NewEventExporter(path, FormatCSV, zaptest.NewLogger(t))
	require.NoError(t, err)
	e.Handle(testEvent("AAA"))
	require.NoError(t, e.Close())

	// Повторное открытие дописывает без второго заголовка
	e, err = NewEventExporter(path, FormatCSV, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, e.Write(testEvent("BBB")))
	require.NoError(t, e.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "Name, with comma", rows[1][2])
	assert.Equal(t, "AAA", rows[1][3])
	assert.Equal(t, "mint-BBB", rows[2][5])
}

func TestEventExporter_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	e, err := NewEventExporter(path, FormatJSONL, zaptest.NewLogger(t))
	require.NoError(t, err)
	e.now = func() time.Time { return fixed }
	e.Handle(testEvent("AAA"))
	e.Handle(testEvent("BBB"))
	require.NoError(t, e.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		got = append(got, m)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "AAA", got[0]["symbol"])
	assert.Equal(t, "sig-BBB", got[1]["signature"])
	assert.Equal(t, "2025-01-02T03:04:05Z", got[0]["received_at"])
}
