package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"timbercalc/core/types"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

func newTestWebhook(t *testing.T, url string, cfg config.WebhookConfig) *WebhookPublisher {
	t.Helper()
	cfg.URL = url
	p, err := NewWebhookPublisher(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.retryDelay = time.Millisecond
	return p
}

func TestWebhookPublisherSignsBody(t *testing.T) {
	var (
		body []byte
		sig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := newTestWebhook(t, srv.URL, config.WebhookConfig{Secret: "s3cret"})
	defer p.Close()

	event := types.NewEvent(types.EventBillGenerated, "bill", map[string]interface{}{"client": "Ravi"})
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	if !VerifySignature(body, sig, "s3cret") {
		t.Errorf("signature %q does not verify", sig)
	}
	var decoded types.Event
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID != event.ID || decoded.Type != types.EventBillGenerated {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWebhookPublisherRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestWebhook(t, srv.URL, config.WebhookConfig{RetryCount: 2})
	if err := p.Publish(context.Background(), types.NewEvent(types.EventBillCleared, "bill", nil)); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestWebhookPublisherGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestWebhook(t, srv.URL, config.WebhookConfig{RetryCount: 1})
	err := p.Publish(context.Background(), types.NewEvent(types.EventBillCleared, "bill", nil))
	if !errors.IsType(err, errors.TypeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestWebhookSlackBody(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	p := newTestWebhook(t, srv.URL, config.WebhookConfig{Provider: "slack"})
	event := types.NewEvent(types.EventPriceTableUpdated, "price_table", map[string]interface{}{"action": "define", "ranges": 2})
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	if payload["text"] != "timbercalc: price_table.updated (price_table)" {
		t.Errorf("text = %v", payload["text"])
	}
	attachments, _ := payload["attachments"].([]interface{})
	if len(attachments) != 1 {
		t.Fatalf("attachments = %v", payload["attachments"])
	}
	fields, _ := attachments[0].(map[string]interface{})["fields"].([]interface{})
	if len(fields) != 2 || fields[0].(map[string]interface{})["title"] != "action" {
		t.Errorf("fields = %v", fields)
	}
}
