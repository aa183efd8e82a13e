package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"timbercalc/core/types"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

// Provider shapes the webhook body
type Provider string

const (
	ProviderCustom Provider = "custom"
	ProviderSlack  Provider = "slack"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body
const SignatureHeader = "X-Signature"

var _ types.Publisher = (*WebhookPublisher)(nil)

// WebhookPublisher POSTs each event to an HTTP endpoint, retrying on failure
type WebhookPublisher struct {
	endpoint   string
	provider   Provider
	secret     string
	retryCount int
	retryDelay time.Duration
	httpClient *http.Client
	log        *zap.Logger
}

// NewWebhookPublisher creates a webhook publisher
func NewWebhookPublisher(cfg config.WebhookConfig, log *zap.Logger) (*WebhookPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.Config("webhook events require a url", nil)
	}
	provider := Provider(strings.ToLower(cfg.Provider))
	switch provider {
	case "":
		provider = ProviderCustom
	case ProviderCustom, ProviderSlack:
	default:
		return nil, errors.Config("unknown webhook provider: "+cfg.Provider, nil)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookPublisher{
		endpoint:   cfg.URL,
		provider:   provider,
		secret:     cfg.Secret,
		retryCount: cfg.RetryCount,
		retryDelay: time.Second,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

// Publish implements types.Publisher
func (p *WebhookPublisher) Publish(ctx context.Context, event types.Event) error {
	body, err := p.formatPayload(event)
	if err != nil {
		return errors.Internal("encode event", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(errors.TypeInternal, "publish event", ctx.Err())
			case <-time.After(p.retryDelay):
			}
		}

		if err := p.sendOnce(ctx, body); err != nil {
			lastErr = err
			p.log.Debug("webhook attempt failed",
				zap.String("event_id", event.ID.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		p.log.Debug("event delivered",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.Type.String()))
		return nil
	}

	p.log.Error("failed to deliver event",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.Type.String()),
		zap.Error(lastErr))
	return errors.Wrap(errors.TypeInternal,
		fmt.Sprintf("webhook failed after %d attempts", p.retryCount+1), lastErr)
}

func (p *WebhookPublisher) sendOnce(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, p.secret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

func (p *WebhookPublisher) formatPayload(event types.Event) ([]byte, error) {
	if p.provider == ProviderSlack {
		return formatSlack(event)
	}
	return json.Marshal(event)
}

// formatSlack renders the event as a Slack attachment with one field per
// payload entry, in key order
func formatSlack(event types.Event) ([]byte, error) {
	keys := make([]string, 0, len(event.Payload))
	for k := range event.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, map[string]interface{}{
			"title": k,
			"value": fmt.Sprint(event.Payload[k]),
			"short": true,
		})
	}

	slack := map[string]interface{}{
		"text": fmt.Sprintf("timbercalc: %s (%s)", event.Type, event.Subject),
		"attachments": []map[string]interface{}{
			{
				"color":  "good",
				"fields": fields,
				"footer": event.ID.String(),
				"ts":     event.OccurredAt.Unix(),
			},
		},
	}
	return json.Marshal(slack)
}

// Close implements types.Publisher
func (p *WebhookPublisher) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature produced by Sign
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(payload, secret)))
}
