package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

type catalogFile struct {
	Version   int                   `toml:"version"`
	Equipment []ports.EquipmentItem `toml:"equipment"`
	Parties   []ports.Party         `toml:"parties"`
}

// TOMLCatalog serves equipment items and parties from a TOML file. The
// in-memory index is swapped atomically on Reload, so a bad edit leaves the
// previous contents in place.
type TOMLCatalog struct {
	path string

	mu        sync.RWMutex
	equipment map[string]ports.EquipmentItem
	parties   map[string]ports.Party
}

func NewTOMLCatalog(ctx context.Context, path string) (*TOMLCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog file is required")
	}
	c := &TOMLCatalog{
		path:      path,
		equipment: map[string]ports.EquipmentItem{},
		parties:   map[string]ports.Party{},
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *TOMLCatalog) Reload(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return errs.Wrapf(err, "read catalog %q", c.path)
	}
	var file catalogFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return errs.Wrapf(err, "parse catalog %q", c.path)
	}

	equipment, parties, err := index(file)
	if err != nil {
		return errs.Wrapf(err, "validate catalog %q", c.path)
	}

	c.mu.Lock()
	c.equipment = equipment
	c.parties = parties
	c.mu.Unlock()

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "catalog.toml")),
		"catalog loaded",
		slog.String("path", c.path),
		slog.Int("equipment", len(equipment)),
		slog.Int("parties", len(parties)),
	)
	return nil
}

func index(file catalogFile) (map[string]ports.EquipmentItem, map[string]ports.Party, error) {
	equipment := make(map[string]ports.EquipmentItem, len(file.Equipment))
	for i, item := range file.Equipment {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, nil, fmt.Errorf("equipment[%d].id is required", i)
		}
		if item.ValidityMonths < 1 {
			return nil, nil, fmt.Errorf("equipment %q: validity_months must be >= 1", item.ID)
		}
		if _, dup := equipment[item.ID]; dup {
			return nil, nil, fmt.Errorf("equipment %q declared twice", item.ID)
		}
		equipment[item.ID] = item
	}

	parties := make(map[string]ports.Party, len(file.Parties))
	for i, p := range file.Parties {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, nil, fmt.Errorf("parties[%d].id is required", i)
		}
		if _, dup := parties[p.ID]; dup {
			return nil, nil, fmt.Errorf("party %q declared twice", p.ID)
		}
		parties[p.ID] = p
	}
	return equipment, parties, nil
}

func (c *TOMLCatalog) EquipmentItem(_ context.Context, id string) (ports.EquipmentItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.equipment[strings.TrimSpace(id)]
	if !ok {
		return ports.EquipmentItem{}, compliance.NewNotFound("equipment_item", id)
	}
	return item, nil
}

func (c *TOMLCatalog) Party(_ context.Context, id string) (ports.Party, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.parties[strings.TrimSpace(id)]
	if !ok {
		return ports.Party{}, compliance.NewNotFound("party", id)
	}
	return p, nil
}

// Watch reloads the catalog whenever the file changes and blocks until ctx
// is done. The parent directory is watched because editors often replace
// files by rename.
func (c *TOMLCatalog) Watch(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if c.path == "" {
		return errors.New("catalog has no backing file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create catalog watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return errs.Wrapf(err, "watch %q", filepath.Dir(c.path))
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "catalog.watch"), slog.String("path", c.path))
	target := filepath.Clean(c.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := c.Reload(ctx); err != nil {
				logging.Warn(logCtx, "catalog reload failed, keeping previous contents", slog.Any("err", errs.Loggable(err)))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "catalog watcher error", slog.Any("err", errs.Loggable(err)))
		}
	}
}
