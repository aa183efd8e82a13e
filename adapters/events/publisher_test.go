package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"timbercalc/core/types"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "timbercalc.events", nil)

	event := types.NewEvent(types.EventBillGenerated, "bill", map[string]interface{}{"client": "Ravi"})
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event_type"] != "bill.generated" || headers["event_id"] != event.ID.String() {
		t.Errorf("headers = %v", headers)
	}

	var decoded types.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID != event.ID || decoded.Payload["client"] != "Ravi" {
		t.Errorf("decoded = %+v", decoded)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("close did not reach writer")
	}
}

func TestKafkaPublisherWriteFailure(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: stderrors.New("broker down")}, "t", nil)
	err := p.Publish(context.Background(), types.NewEvent(types.EventBillCleared, "bill", nil))
	if !errors.IsType(err, errors.TypeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	event := types.NewEvent(types.EventPriceTableUpdated, "price_table", map[string]interface{}{"action": "define"})
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("event").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log line, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["event_type"]; got != "price_table.updated" {
		t.Errorf("event_type = %v", got)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.EventsConfig
		want interface{}
		ok   bool
	}{
		{"default", config.EventsConfig{}, &LogPublisher{}, true},
		{"none", config.EventsConfig{Backend: "none"}, types.NopPublisher{}, true},
		{"kafka", config.EventsConfig{Backend: "kafka", Brokers: []string{"localhost:9092"}, Topic: "t"}, &KafkaPublisher{}, true},
		{"kafka without brokers", config.EventsConfig{Backend: "kafka", Topic: "t"}, nil, false},
		{"kafka without topic", config.EventsConfig{Backend: "kafka", Brokers: []string{"b:9092"}}, nil, false},
		{"webhook", config.EventsConfig{Backend: "webhook", Webhook: config.WebhookConfig{URL: "http://localhost/hook"}}, &WebhookPublisher{}, true},
		{"webhook without url", config.EventsConfig{Backend: "webhook"}, nil, false},
		{"webhook unknown provider", config.EventsConfig{Backend: "webhook", Webhook: config.WebhookConfig{URL: "http://x", Provider: "teams"}}, nil, false},
		{"unknown", config.EventsConfig{Backend: "pigeon"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Open(tt.cfg, nil)
			if !tt.ok {
				if !errors.IsType(err, errors.TypeConfig) {
					t.Errorf("expected config error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			switch tt.want.(type) {
			case *LogPublisher:
				if _, ok := p.(*LogPublisher); !ok {
					t.Errorf("got %T", p)
				}
			case types.NopPublisher:
				if _, ok := p.(types.NopPublisher); !ok {
					t.Errorf("got %T", p)
				}
			case *KafkaPublisher:
				if _, ok := p.(*KafkaPublisher); !ok {
					t.Errorf("got %T", p)
				}
			case *WebhookPublisher:
				if _, ok := p.(*WebhookPublisher); !ok {
					t.Errorf("got %T", p)
				}
			}
		})
	}
}
