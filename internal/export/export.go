package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-bot/internal/eventlistener"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatJSONL ExportFormat = "jsonl"
)

// FormatFromPath выбирает формат по расширению: .csv, иначе JSON lines
func FormatFromPath(path string) ExportFormat {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSONL
}

// CSVHeaders is the header row of the CSV export.
func CSVHeaders() []string {
	return []string{"received_at", "signature", "name", "symbol", "uri", "mint", "bonding_curve", "user", "creator"}
}

type exportedEvent struct {
	ReceivedAt time.Time `json:"received_at"`
	*eventlistener.CreationEvent
}

// EventExporter appends creation events to a file as they arrive.
type EventExporter struct {
	logger *zap.Logger
	format ExportFormat
	now    func() time.Time

	mu     sync.Mutex
	closer io.Closer
	csv    *csv.Writer
	json   *json.Encoder
	count  int
}

// NewEventExporter opens (or creates) path for appending. A new CSV file gets
// a header row.
func NewEventExporter(path string, format ExportFormat, logger *zap.Logger) (*EventExporter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat export file: %w", err)
	}

	e := newEventExporter(file, format, logger)
	e.closer = file
	if format == FormatCSV && info.Size() == 0 {
		if err := e.csv.Write(CSVHeaders()); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to write CSV headers: %w", err)
		}
		e.csv.Flush()
	}
	return e, nil
}

func newEventExporter(w io.Writer, format ExportFormat, logger *zap.Logger) *EventExporter {
	e := &EventExporter{
		logger: logger.Named("event-exporter"),
		format: format,
		now:    time.Now,
	}
	if format == FormatCSV {
		e.csv = csv.NewWriter(w)
	} else {
		e.json = json.NewEncoder(w)
	}
	return e
}

// Handle writes one event. It matches eventlistener.EventHandler.
func (e *EventExporter) Handle(event *eventlistener.CreationEvent) {
	if err := e.Write(event); err != nil {
		e.logger.Warn("Failed to export event", zap.String("mint", event.Mint), zap.Error(err))
	}
}

func (e *EventExporter) Write(event *eventlistener.CreationEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.now().UTC()
	switch e.format {
	case FormatCSV:
		row := []string{at.Format(time.RFC3339), event.Signature, event.Name, event.Symbol, event.URI,
			event.Mint, event.BondingCurve, event.User, event.Creator}
		if err := e.csv.Write(row); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		e.csv.Flush()
		if err := e.csv.Error(); err != nil {
			return fmt.Errorf("failed to flush event: %w", err)
		}
	default:
		if err := e.json.Encode(exportedEvent{ReceivedAt: at, CreationEvent: event}); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	e.count++
	return nil
}

// Close flushes and closes the file.
func (e *EventExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.csv != nil {
		e.csv.Flush()
	}
	e.logger.Info("Events exported", zap.Int("count", e.count), zap.String("format", string(e.format)))
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
