package evidence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

// FSStore writes evidence under a local root directory. The returned
// reference is the slash-separated key relative to the root.
type FSStore struct {
	root string
	now  func() time.Time
}

func NewFSStore(root string) (*FSStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("evidence root is required")
	}
	return &FSStore{root: root, now: time.Now}, nil
}

func (s *FSStore) Put(ctx context.Context, obj ports.EvidenceObject) (string, error) {
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

	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errs.Wrapf(err, "create evidence directory %q", filepath.Dir(target))
	}
	// O_EXCL: keys are unique, an existing file means something is wrong.
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errs.Wrapf(err, "create evidence file %q", target)
	}
	if _, err := f.Write(obj.Data); err != nil {
		_ = f.Close()
		return "", errs.Wrapf(err, "write evidence file %q", target)
	}
	if err := f.Close(); err != nil {
		return "", errs.Wrapf(err, "close evidence file %q", target)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "evidence.fs")),
		"evidence stored",
		slog.String("key", key),
		slog.Int("bytes", len(obj.Data)),
	)
	return key, nil
}
