package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"timbercalc/adapters/storage"
	"timbercalc/core/types"
	"timbercalc/internal/app"
	"timbercalc/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Export.Directory = filepath.Join(t.TempDir(), "WoodBills")
	cfg.Server.Passcode = "7898"
	cfg.Server.JWTSecret = "test-secret"

	a := app.NewWithBackends(cfg, storage.NewMemoryKV(), types.NopPublisher{}, nil)
	t.Cleanup(func() { a.Close() })
	return NewServer(a, "test")
}

func do(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/v1/auth/token", "", TokenRequest{Passcode: "7898"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var resp TokenResponse
	decode(t, w, &resp)
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp map[string]interface{}
	decode(t, w, &resp)
	if resp["status"] != "healthy" || resp["version"] != "test" {
		t.Errorf("unexpected body %v", resp)
	}
}

func TestTokenRejectsWrongPasscode(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/auth/token", "", TokenRequest{Passcode: "0000"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
	var resp ErrorBody
	decode(t, w, &resp)
	if resp.Error.Message != "Incorrect Passcode. Cannot edit." {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	s := newTestServer(t)
	body := DefineTableRequest{Ranges: "0-18", Lengths: "8"}

	if w := do(t, s, http.MethodPut, "/api/v1/price-table", "", body); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", w.Code)
	}
	if w := do(t, s, http.MethodPut, "/api/v1/price-table", "garbage", body); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d", w.Code)
	}
	if w := do(t, s, http.MethodPut, "/api/v1/price-table", login(t, s), body); w.Code != http.StatusOK {
		t.Errorf("valid token: status %d: %s", w.Code, w.Body.String())
	}
}

func TestPriceTableAndBillFlow(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	w := do(t, s, http.MethodPut, "/api/v1/price-table", token, DefineTableRequest{Ranges: "0-18, 18-20", Lengths: "8, 10"})
	if w.Code != http.StatusOK {
		t.Fatalf("define: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPut, "/api/v1/price-table/prices", token, `{"range":"0-18","length":10,"price":100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set price: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/api/v1/resolve", "", `{"girth":12,"length":"10"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", w.Code, w.Body.String())
	}
	var quote ResolveResponse
	decode(t, w, &quote)
	if !quote.Resolution.Matched || quote.Key != "G_0.0-18.0_L_10.0" {
		t.Errorf("quote = %+v", quote)
	}

	w = do(t, s, http.MethodPost, "/api/v1/bill/entries", "", MeasurementRequest{Girth: "12", Length: "10"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/api/v1/bill/entries", "", MeasurementRequest{Girth: "-1", Length: "10"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid add: status %d", w.Code)
	}

	w = do(t, s, http.MethodPut, "/api/v1/bill/entries/1", "", EditEntryRequest{Price: "0"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/v1/bill", "", nil)
	var bill BillResponse
	decode(t, w, &bill)
	if len(bill.Entries) != 1 || !bill.Entries[0].UnitPrice.IsZero() {
		t.Fatalf("bill = %+v", bill)
	}

	if w := do(t, s, http.MethodDelete, "/api/v1/bill/entries/5", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("delete out of range: status %d", w.Code)
	}

	w = do(t, s, http.MethodPost, "/api/v1/bill/export", "", ExportBillRequest{Client: "Ravi", Format: "xlsx"})
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "Bill_Ravi_") {
		t.Errorf("disposition = %q", w.Header().Get("Content-Disposition"))
	}

	w = do(t, s, http.MethodGet, "/api/v1/bills?client=rav", "", nil)
	var bills BillsResponse
	decode(t, w, &bills)
	if bills.Count != 1 {
		t.Errorf("bills = %+v", bills)
	}

	if w := do(t, s, http.MethodDelete, "/api/v1/bill", "", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear: status %d", w.Code)
	}
}

func TestPriceTableExportImport(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	if w := do(t, s, http.MethodGet, "/api/v1/price-table/export", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty export: status %d", w.Code)
	}

	src := `{"unitPrices":{"G_0.0-18.0_L_8.0":120.0},"girthRanges":[{"start":0,"end":18}],"lengthValues":[8]}`
	w := do(t, s, http.MethodPost, "/api/v1/price-table/import?format=json", token, src)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/v1/price-table/export?format=json", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "G_0.0-18.0_L_8.0") {
		t.Errorf("export: %d %s", w.Code, w.Body.String())
	}

	gap := `{"unitPrices":{},"girthRanges":[{"start":0,"end":18},{"start":20,"end":30}],"lengthValues":[8]}`
	w = do(t, s, http.MethodPost, "/api/v1/price-table/import?format=json", token, gap)
	if w.Code != http.StatusBadRequest {
		t.Errorf("gap import: status %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/health", "", nil)
	w := do(t, s, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "timbercalc_http_requests_total") {
		t.Errorf("metrics: %d", w.Code)
	}
}

func TestNumberText(t *testing.T) {
	var req MeasurementRequest
	if err := json.Unmarshal([]byte(`{"girth":12.50,"length":"8"}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.Girth != "12.50" || req.Length != "8" {
		t.Errorf("req = %+v", req)
	}
}
