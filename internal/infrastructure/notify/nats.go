package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

const (
	DefaultSubjectPrefix = "sst.events"
	DefaultFlushTimeout  = 5 * time.Second
)

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
	// FlushTimeout bounds the server round trip when the caller's context
	// carries no deadline.
	FlushTimeout time.Duration
}

// NATSPublisher publishes events to <prefix>.<event_type>.
type NATSPublisher struct {
	conn         *nats.Conn
	prefix       string
	flushTimeout time.Duration
}

func NewNATSPublisher(ctx context.Context, cfg NATSConfig) (*NATSPublisher, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "sstcompliance"
	}

	conn, err := nats.Connect(url, nats.Name(name), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "notify.nats")),
		"nats connected",
		slog.String("url", conn.ConnectedUrlRedacted()),
	)
	return newNATSPublisher(conn, cfg.SubjectPrefix, cfg.FlushTimeout), nil
}

func newNATSPublisher(conn *nats.Conn, prefix string, flushTimeout time.Duration) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	return &NATSPublisher{conn: conn, prefix: prefix, flushTimeout: flushTimeout}
}

func (p *NATSPublisher) Channel() string { return "nats" }

func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + strings.TrimSpace(eventType)
}

func (p *NATSPublisher) Notify(ctx context.Context, event ports.Event) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if strings.TrimSpace(event.Type) == "" {
		return errors.New("event type is required")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal event")
	}
	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return errs.Wrapf(err, "publish %s", subject)
	}
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, p.flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return errs.Wrapf(err, "flush %s", subject)
	}
	return nil
}

// Close drains pending publishes before closing the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
