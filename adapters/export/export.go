// Package export renders bills to PDF and XLSX files and finds saved bills.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"timbercalc/core/types"
	"timbercalc/internal/errors"
	"timbercalc/internal/metrics"
)

// Format is a bill file format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// UnknownClient replaces an empty client name
const UnknownClient = "Unknown_Client"

// DefaultCurrencyLabel is printed before money amounts. The PDF core
// fonts cannot draw the rupee sign.
const DefaultCurrencyLabel = "Rs."

const timestampLayout = "20060102_150405"

// ParseFormat parses a format name; empty means PDF
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", errors.Validationf("unsupported bill format: %s", s)
	}
}

// Document is everything printed on a bill
type Document struct {
	Client        string
	GeneratedAt   time.Time
	Entries       []types.LogEntry
	Totals        types.Totals
	CurrencyLabel string
}

func (d Document) clientName() string {
	if strings.TrimSpace(d.Client) == "" {
		return UnknownClient
	}
	return strings.TrimSpace(d.Client)
}

func (d Document) label() string {
	if d.CurrencyLabel == "" {
		return DefaultCurrencyLabel
	}
	return d.CurrencyLabel
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeClient maps every character outside [a-zA-Z0-9_] to '_'
func SanitizeClient(client string) string {
	client = strings.TrimSpace(client)
	if client == "" {
		return UnknownClient
	}
	return unsafeChars.ReplaceAllString(client, "_")
}

// FileName returns Bill_<client>_<yyyyMMdd_HHmmss>.<ext>
func FileName(client string, at time.Time, format Format) string {
	return fmt.Sprintf("Bill_%s_%s.%s", SanitizeClient(client), at.Format(timestampLayout), format)
}

// Render writes doc in the given format
func Render(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatPDF:
		return RenderPDF(w, doc)
	case FormatXLSX:
		return RenderXLSX(w, doc)
	default:
		return errors.Validationf("unsupported bill format: %s", format)
	}
}

// Exporter saves bills into a directory and announces them
type Exporter struct {
	dir       string
	publisher types.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewExporter creates an exporter writing into dir. A nil publisher or
// logger disables that concern.
func NewExporter(dir string, publisher types.Publisher, log *zap.Logger) *Exporter {
	if publisher == nil {
		publisher = types.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{dir: dir, publisher: publisher, log: log, now: time.Now}
}

// Dir returns the output directory
func (e *Exporter) Dir() string {
	return e.dir
}

// Save renders doc into the output directory and returns the file path.
// An empty bill is rejected.
func (e *Exporter) Save(ctx context.Context, doc Document, format Format) (string, error) {
	if len(doc.Entries) == 0 {
		metrics.IncBillExport(string(format), metrics.ResultError)
		return "", errors.Validation("No entries to generate a bill.")
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = e.now()
	}

	var buf bytes.Buffer
	if err := Render(&buf, doc, format); err != nil {
		metrics.IncBillExport(string(format), metrics.ResultError)
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		metrics.IncBillExport(string(format), metrics.ResultError)
		return "", errors.Storage("create bill directory", err)
	}
	path := filepath.Join(e.dir, FileName(doc.Client, doc.GeneratedAt, format))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		metrics.IncBillExport(string(format), metrics.ResultError)
		return "", errors.Storage("write "+path, err)
	}
	metrics.IncBillExport(string(format), metrics.ResultSuccess)

	e.log.Info("bill saved",
		zap.String("path", path),
		zap.String("client", doc.clientName()),
		zap.Int("entries", len(doc.Entries)))

	event := types.NewEvent(types.EventBillGenerated, "bill", map[string]interface{}{
		"client":      doc.clientName(),
		"file":        filepath.Base(path),
		"format":      string(format),
		"entries":     doc.Totals.Entries,
		"volume":      doc.Totals.Volume.StringFixed(1),
		"grand_total": doc.Totals.GrandTotal.StringFixed(2),
	})
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.log.Warn("failed to publish event", zap.String("type", event.Type.String()), zap.Error(err))
	}
	return path, nil
}
