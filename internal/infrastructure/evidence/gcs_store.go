package evidence

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

// GCSStore writes evidence objects to a bucket and returns gs:// references.
type GCSStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("evidence gcs bucket is required")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(err, "create gcs client")
	}

	return &GCSStore{client: client, bucket: bucket, now: time.Now}, nil
}

func (s *GCSStore) Put(ctx context.Context, obj ports.EvidenceObject) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	key, err := ObjectKey(obj, s.now(), uuid.New())
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if obj.ContentType != "" {
		w.ContentType = obj.ContentType
	}
	w.Metadata = map[string]string{
		"entity_type": obj.EntityType,
		"entity_id":   obj.EntityID,
	}
	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return "", errs.Wrapf(err, "write gcs object %q", key)
	}
	if err := w.Close(); err != nil {
		return "", errs.Wrapf(err, "close gcs object %q", key)
	}

	ref := "gs://" + s.bucket + "/" + key
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "evidence.gcs")),
		"evidence stored",
		slog.String("ref", ref),
		slog.Int("bytes", len(obj.Data)),
	)
	return ref, nil
}

func (s *GCSStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
