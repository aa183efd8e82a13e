// Package api - HTTP API types
// Request and response bodies for the /api/v1 endpoints.
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"timbercalc/adapters/export"
	"timbercalc/core/pricing"
	"timbercalc/core/types"
)

// NumberText accepts a JSON number or string and keeps its text, so the
// core parsers see exactly what the client sent.
type NumberText string

// UnmarshalJSON implements json.Unmarshaler
func (n *NumberText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NumberText(num.String())
	return nil
}

// TokenRequest is the body of POST /auth/token
type TokenRequest struct {
	Passcode string `json:"passcode"`
}

// TokenResponse carries a signed admin token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeasurementRequest is the body of POST /resolve and POST /bill/entries
type MeasurementRequest struct {
	Girth  NumberText `json:"girth"`
	Length NumberText `json:"length"`
}

// EditEntryRequest is the body of PUT /bill/entries/:slno. Omitted fields
// keep their current value.
type EditEntryRequest struct {
	Girth  NumberText `json:"girth"`
	Length NumberText `json:"length"`
	Price  NumberText `json:"price"`
}

// DefineTableRequest is the body of PUT /price-table
type DefineTableRequest struct {
	Ranges  string `json:"ranges"`
	Lengths string `json:"lengths"`
}

// SetPriceRequest is the body of PUT /price-table/prices
type SetPriceRequest struct {
	Range  string     `json:"range"`
	Length float64    `json:"length"`
	Price  NumberText `json:"price"`
}

// ExportBillRequest is the body of POST /bill/export
type ExportBillRequest struct {
	Client string `json:"client"`
	Format string `json:"format"`
}

// ResolveResponse is a quote for one log
type ResolveResponse struct {
	Entry      types.LogEntry     `json:"entry"`
	Resolution pricing.Resolution `json:"resolution"`
	Key        string             `json:"key"`
}

// PriceTableResponse describes the stored table
type PriceTableResponse struct {
	ID         string       `json:"id"`
	Hash       string       `json:"hash"`
	Source     string       `json:"source"`
	Configured bool         `json:"configured"`
	Ranges     string       `json:"ranges_input"`
	Lengths    string       `json:"lengths_input"`
	Data       pricing.Data `json:"data"`
}

// DefineTableResponse reports the new table and whether prices were dropped
type DefineTableResponse struct {
	PriceTableResponse
	PricesCleared bool `json:"prices_cleared"`
}

// BillResponse is the current bill
type BillResponse struct {
	Entries []types.LogEntry `json:"entries"`
	Totals  types.Totals     `json:"totals"`
}

// BillsResponse lists saved bill files
type BillsResponse struct {
	Bills []export.SavedBill `json:"bills"`
	Count int                `json:"count"`
}

// ErrorBody is the error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
