package ports

import "context"

type EquipmentItem struct {
	ID             string `toml:"id" json:"id"`
	Name           string `toml:"name" json:"name"`
	Category       string `toml:"category" json:"category"`
	ValidityMonths int    `toml:"validity_months" json:"validity_months"`
}

type Party struct {
	ID       string `toml:"id" json:"id"`
	Name     string `toml:"name" json:"name"`
	Position string `toml:"position" json:"position"`
	Area     string `toml:"area" json:"area"`
	Email    string `toml:"email" json:"email"`
}

// ReferenceCatalog serves read-only lookups. Misses return a
// compliance.NotFoundError.
type ReferenceCatalog interface {
	EquipmentItem(ctx context.Context, id string) (EquipmentItem, error)
	Party(ctx context.Context, id string) (Party, error)
}
