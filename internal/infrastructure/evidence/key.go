package evidence

import (
	"errors"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"sstcompliance/internal/ports"
)

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds {entity_type}/{entity_id}/[{sub}/]{YYYYMMDD_HHMMSS}_{uuid}.{ext}.
// The extension comes from the original filename and falls back to "bin".
func ObjectKey(obj ports.EvidenceObject, now time.Time, id uuid.UUID) (string, error) {
	entityType := cleanSegment(obj.EntityType)
	entityID := cleanSegment(obj.EntityID)
	if entityType == "" {
		return "", errors.New("evidence entity type is required")
	}
	if entityID == "" {
		return "", errors.New("evidence entity id is required")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(obj.Filename)), ".")
	ext = cleanSegment(ext)
	if ext == "" {
		ext = "bin"
	}

	name := now.UTC().Format("20060102_150405") + "_" + id.String() + "." + ext

	parts := []string{entityType, entityID}
	if sub := cleanSegment(obj.Subfolder); sub != "" {
		parts = append(parts, sub)
	}
	parts = append(parts, name)
	return path.Join(parts...), nil
}

func cleanSegment(s string) string {
	s = unsafeSegment.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "._")
}
