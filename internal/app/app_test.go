package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"timbercalc/adapters/export"
	"timbercalc/adapters/pricelist"
	"timbercalc/adapters/storage"
	"timbercalc/core/types"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Export.Directory = filepath.Join(t.TempDir(), "WoodBills")
	a := NewWithBackends(cfg, storage.NewMemoryKV(), types.NopPublisher{}, nil)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestEndToEndBill(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	if _, _, err := a.Pricing.Define(ctx, "0-18, 18-20", "8, 10, 12"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Pricing.SetPriceFor(ctx, "0-18", 10, "100"); err != nil {
		t.Fatal(err)
	}

	entry, res, err := a.Bills.AddEntry(ctx, "12", "10")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched || entry.LogTotal.StringFixed(2) != "60.00" {
		t.Fatalf("entry = %+v res = %+v", entry, res)
	}

	path, err := a.ExportBill(ctx, "Ravi", export.FormatXLSX)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "Bill_Ravi_") {
		t.Errorf("path = %s", path)
	}

	bills, err := export.Search(a.Exporter.Dir(), export.Query{Client: "ravi"})
	if err != nil || len(bills) != 1 {
		t.Errorf("search = %v, %v", bills, err)
	}
}

func TestExportBillRequiresEntries(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.ExportBill(context.Background(), "x", export.FormatPDF); !errors.IsType(err, errors.TypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPriceListRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	if _, _, err := a.Pricing.Define(ctx, "0-18", "8"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Pricing.SetPriceFor(ctx, "0-18", 8, "120"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := a.ExportPriceList(ctx, &buf, pricelist.FormatYAML); err != nil {
		t.Fatal(err)
	}

	other := newTestApp(t)
	table, err := other.ImportPriceList(ctx, &buf, pricelist.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	original, _ := a.Pricing.Current(ctx)
	if table.ContentHash != original.ContentHash {
		t.Error("imported table differs from exported one")
	}

	ranges, lengths, _ := other.Pricing.Inputs(ctx)
	if ranges != "0.0-18.0" || lengths != "8.0" {
		t.Errorf("inputs = %q %q", ranges, lengths)
	}
}
