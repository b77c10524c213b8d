package persona

import "context"

// Repository defines persona persistence.
// Implementations: internal/repository/postgres, internal/repository/file, internal/repository/cache.
type Repository interface {
	// Get returns errors.ErrNotFound (wrapped) when no persona exists for userID
	Get(ctx context.Context, userID string) (*Persona, error)
	Upsert(ctx context.Context, p *Persona) error
}
