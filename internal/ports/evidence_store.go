package ports

import "context"

type EvidenceObject struct {
	EntityType  string
	EntityID    string
	Subfolder   string
	Filename    string
	ContentType string
	Data        []byte
}

// EvidenceStore persists raw evidence bytes and returns an opaque reference
// that is stored verbatim on the owning entity.
type EvidenceStore interface {
	Put(ctx context.Context, obj EvidenceObject) (ref string, err error)
}
