package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

const (
	defaultWebhookTimeout = 5 * time.Second
	SignatureHeader       = "X-SST-Signature-256"
)

type WebhookConfig struct {
	BaseURL string
	Timeout time.Duration
	// Secret signs the body with HMAC-SHA256 when set.
	Secret string
}

// Webhook posts each event as JSON to <base>/<event-type>, with underscores
// in the event type replaced by dashes.
type Webhook struct {
	baseURL string
	secret  string
	client  *http.Client
}

func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("webhook base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &Webhook{
		baseURL: base,
		secret:  strings.TrimSpace(cfg.Secret),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (w *Webhook) Channel() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, event ports.Event) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if strings.TrimSpace(event.Type) == "" {
		return errors.New("event type is required")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal event")
	}

	url := w.baseURL + "/" + EndpointFor(event.Type)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errs.Wrapf(err, "post webhook %s", url)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "notify.webhook")),
		"event delivered",
		slog.String("event_type", event.Type),
		slog.String("entity_id", event.EntityID),
	)
	return nil
}

// EndpointFor maps an event type to its webhook path segment.
func EndpointFor(eventType string) string {
	return strings.ReplaceAll(strings.TrimSpace(eventType), "_", "-")
}

// Sign returns the signature header value for payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
