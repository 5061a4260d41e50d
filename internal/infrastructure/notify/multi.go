package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

// Channel is a notifier with a stable name used in metrics and logs.
type Channel interface {
	ports.Notifier
	Channel() string
}

type DeliveryRecorder interface {
	RecordNotification(eventType, channel string, err error)
}

// FanOut delivers every event to all channels concurrently. One failing
// channel never stops the others; failures are joined in the returned error.
type FanOut struct {
	channels []Channel
	recorder DeliveryRecorder
}

func NewFanOut(recorder DeliveryRecorder, channels ...Channel) *FanOut {
	kept := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			kept = append(kept, ch)
		}
	}
	return &FanOut{channels: kept, recorder: recorder}
}

func (f *FanOut) Len() int { return len(f.channels) }

func (f *FanOut) Notify(ctx context.Context, event ports.Event) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if len(f.channels) == 0 {
		return nil
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "notify.fanout"))

	var (
		mu      sync.Mutex
		failure []error
	)
	var g errgroup.Group
	for _, ch := range f.channels {
		g.Go(func() error {
			err := ch.Notify(ctx, event)
			if f.recorder != nil {
				f.recorder.RecordNotification(event.Type, ch.Channel(), err)
			}
			if err != nil {
				logging.Warn(
					logCtx,
					"notification channel failed",
					slog.String("channel", ch.Channel()),
					slog.String("event_type", event.Type),
					slog.Any("err", errs.Loggable(err)),
				)
				mu.Lock()
				failure = append(failure, errs.Wrap(err, ch.Channel()))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(failure...)
}

// Discard drops every event. Used when no channel is configured.
type Discard struct{}

func (Discard) Notify(context.Context, ports.Event) error { return nil }
