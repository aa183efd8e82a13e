// Package app wires configuration, storage, events and the core services
// into one value shared by the CLI and the HTTP server.
package app

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"timbercalc/adapters/events"
	"timbercalc/adapters/export"
	"timbercalc/adapters/pricelist"
	"timbercalc/adapters/storage"
	"timbercalc/core/bill"
	"timbercalc/core/pricing"
	"timbercalc/core/types"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

// App holds the running services
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	KV        storage.KV
	Repo      *storage.Repository
	Publisher types.Publisher
	Pricing   *pricing.Manager
	Bills     *bill.Service
	Exporter  *export.Exporter
}

// New opens storage and events from cfg and builds the services
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	publisher, err := events.Open(cfg.Events, log.Named("events"))
	if err != nil {
		kv.Close()
		return nil, err
	}

	a := NewWithBackends(cfg, kv, publisher, log)
	log.Debug("app ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("events", cfg.Events.Backend))
	return a, nil
}

// NewWithBackends builds the services over already opened backends
func NewWithBackends(cfg *config.Config, kv storage.KV, publisher types.Publisher, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	repo := storage.NewRepository(kv, log.Named("storage"))
	limits := pricing.Limits{MaxGirth: cfg.Pricing.MaxGirth, MaxLength: cfg.Pricing.MaxLength}

	return &App{
		Config:    cfg,
		Log:       log,
		KV:        kv,
		Repo:      repo,
		Publisher: publisher,
		Pricing:   pricing.NewManager(repo, limits, publisher, log.Named("pricing")),
		Bills:     bill.NewService(repo, repo, publisher, log.Named("bill")),
		Exporter:  export.NewExporter(cfg.Export.Directory, publisher, log.Named("export")),
	}
}

// Close releases storage and event resources
func (a *App) Close() error {
	var first error
	if err := a.Publisher.Close(); err != nil {
		first = err
	}
	if err := a.KV.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// ExportBill renders the current bill for client and saves it
func (a *App) ExportBill(ctx context.Context, client string, format export.Format) (string, error) {
	doc, err := a.BillDocument(ctx, client)
	if err != nil {
		return "", err
	}
	return a.Exporter.Save(ctx, doc, format)
}

// BillDocument builds the printable document for the current bill
func (a *App) BillDocument(ctx context.Context, client string) (export.Document, error) {
	current, err := a.Bills.Current(ctx)
	if err != nil {
		return export.Document{}, err
	}
	if current.Len() == 0 {
		return export.Document{}, errors.Validation("No entries to generate a bill.")
	}
	return export.Document{
		Client:        client,
		GeneratedAt:   time.Now(),
		Entries:       current.Entries(),
		Totals:        current.Totals(),
		CurrencyLabel: a.Config.Pricing.CurrencyLabel,
	}, nil
}

// ImportPriceList decodes, validates and stores a price list
func (a *App) ImportPriceList(ctx context.Context, r io.Reader, format pricelist.Format) (*pricing.Table, error) {
	data, err := pricelist.Decode(r, format)
	if err != nil {
		return nil, err
	}
	return a.Pricing.Import(ctx, data)
}

// ExportPriceList writes the stored price table
func (a *App) ExportPriceList(ctx context.Context, w io.Writer, format pricelist.Format) error {
	table, err := a.Pricing.Current(ctx)
	if err != nil {
		return err
	}
	return pricelist.Encode(w, table, format)
}
