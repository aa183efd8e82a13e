package pricelist

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"timbercalc/core/pricing"
	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

func sampleTable() *pricing.Table {
	low := types.GirthRange{Start: 0, End: 18}
	high := types.GirthRange{Start: 18, End: 20.5}
	return pricing.NewBuilder().
		WithRanges([]types.GirthRange{low, high}).
		WithLengths([]float64{8, 12}).
		SetPrice(types.NewPriceKey(low, 8), decimal.RequireFromString("120")).
		SetPrice(types.NewPriceKey(low, 12), decimal.RequireFromString("130.5")).
		SetPrice(types.NewPriceKey(high, 8), decimal.Zero).
		Build()
}

func TestRoundTrip(t *testing.T) {
	table := sampleTable()

	for _, format := range []Format{FormatJSON, FormatYAML, FormatHCL} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, table, format); err != nil {
				t.Fatalf("encode: %v", err)
			}

			d, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("decode: %v\n%s", err, buf.String())
			}
			if err := d.Validate(pricing.DefaultLimits()); err != nil {
				t.Fatalf("validate: %v", err)
			}

			back, err := pricing.FromData(d, pricing.SourceImport)
			if err != nil {
				t.Fatal(err)
			}
			if back.ContentHash != table.ContentHash {
				t.Errorf("content changed in %s round trip", format)
			}
		})
	}
}

func TestDecodeLegacyJSON(t *testing.T) {
	src := `{"unitPrices":{"G_0.0-18.0_L_8.0":120.0},"girthRanges":[{"start":0.0,"end":18.0}],"lengthValues":[8.0]}`
	d, err := Decode(strings.NewReader(src), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if d.UnitPrices["G_0.0-18.0_L_8.0"] != 120 || len(d.GirthRanges) != 1 || d.LengthValues[0] != 8 {
		t.Errorf("unexpected data %+v", d)
	}
}

func TestDecodeIncompleteJSONFailsValidation(t *testing.T) {
	d, err := Decode(strings.NewReader(`{"girthRanges":[{"start":0,"end":18}]}`), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	err = d.Validate(pricing.DefaultLimits())
	if err == nil || !strings.Contains(err.Error(), "Invalid or incomplete price list data") {
		t.Errorf("expected incomplete data error, got %v", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		src    string
	}{
		{"json", FormatJSON, `{"unitPrices":`},
		{"yaml", FormatYAML, "unitPrices: [\n"},
		{"hcl syntax", FormatHCL, `lengths = [8`},
		{"hcl missing lengths", FormatHCL, "girth_range {\n start = 0\n end = 18\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.src), tt.format); !errors.IsType(err, errors.TypeParsing) {
				t.Errorf("expected parsing error, got %v", err)
			}
		})
	}

	if _, err := Decode(strings.NewReader(""), FormatXLSX); !errors.IsType(err, errors.TypeValidation) {
		t.Errorf("xlsx import should be rejected, got %v", err)
	}
}

func TestEncodeEmptyTable(t *testing.T) {
	unpriced := pricing.NewBuilder().
		WithRanges([]types.GirthRange{{Start: 0, End: 18}}).
		WithLengths([]float64{8}).
		Build()

	for _, table := range []*pricing.Table{nil, pricing.Empty(), unpriced} {
		err := Encode(&bytes.Buffer{}, table, FormatJSON)
		if err == nil || err.Error() != "[VALIDATION_ERROR] No price table data to export." {
			t.Errorf("expected no data error, got %v", err)
		}
	}
}

func TestEncodeXLSXGrid(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleTable(), FormatXLSX); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1": `G\L`,
		"B1": "8",
		"C1": "12",
		"A2": "0.0-18.0",
		"B2": "120",
		"C2": "130.5",
		"A3": "18.0-20.5",
		"B3": "0",
		"C3": "",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(gridSheet, cell)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"prices.json", FormatJSON, true},
		{"prices.YAML", FormatYAML, true},
		{"prices.yml", FormatYAML, true},
		{"/tmp/a.hcl", FormatHCL, true},
		{"grid.xlsx", FormatXLSX, true},
		{"prices.csv", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if tt.ok != (err == nil) || got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, %v", tt.path, got, err)
		}
	}

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	if got := FileName(at, FormatJSON); got != "wood_price_list_20240309_140507.json" {
		t.Errorf("FileName = %s", got)
	}
}
