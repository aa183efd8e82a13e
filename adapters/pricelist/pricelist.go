// Package pricelist reads and writes price table files.
// JSON keeps the shape written by earlier releases; YAML and HCL carry the
// same data; XLSX is an export-only grid for printing.
package pricelist

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"timbercalc/core/pricing"
	"timbercalc/internal/errors"
)

// Format is a price list file format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
	FormatXLSX Format = "xlsx"
)

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// ParseFormat parses a format name; empty means JSON
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "hcl":
		return FormatHCL, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", errors.Validationf("unsupported price list format: %s", s)
	}
}

// DetectFormat picks the format from a file extension
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.Validationf("cannot detect price list format of %s", path)
	}
	return ParseFormat(ext)
}

// FileName returns the export file name for a moment in time
func FileName(at time.Time, format Format) string {
	return fmt.Sprintf("wood_price_list_%s.%s", at.Format("20060102_150405"), format.Extension())
}

// Decode reads a price list. The result is not validated; call
// Data.Validate before using it.
func Decode(r io.Reader, format Format) (pricing.Data, error) {
	var d pricing.Data
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return pricing.Data{}, errors.Parsing("Invalid price list file", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&d); err != nil {
			return pricing.Data{}, errors.Parsing("Invalid price list file", err)
		}
	case FormatHCL:
		src, err := io.ReadAll(r)
		if err != nil {
			return pricing.Data{}, errors.Parsing("read price list", err)
		}
		return decodeHCL(src)
	case FormatXLSX:
		return pricing.Data{}, errors.Validation("xlsx price lists can be exported but not imported")
	default:
		return pricing.Data{}, errors.Validationf("unsupported price list format: %s", format)
	}
	return d, nil
}

// Encode writes table in format. A table without bands, lengths or prices
// has nothing to export.
func Encode(w io.Writer, table *pricing.Table, format Format) error {
	if table == nil || !table.IsConfigured() || len(table.Cells()) == 0 {
		return errors.Validation("No price table data to export.")
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(table.Data()); err != nil {
			return errors.Internal("encode price list", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(table.Data()); err != nil {
			return errors.Internal("encode price list", err)
		}
		return enc.Close()
	case FormatHCL:
		_, err := w.Write(encodeHCL(table.Data()))
		return err
	case FormatXLSX:
		return encodeXLSX(w, table)
	default:
		return errors.Validationf("unsupported price list format: %s", format)
	}
}
