package cache

import (
	"context"
	"time"

	"phi/internal/adapters/redis"
	"phi/internal/domain/persona"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// Compile-time check
var _ persona.Repository = (*PersonaRepository)(nil)

const personaKeyPrefix = "phi:persona:"

// PersonaRepository is a read-through redis cache in front of another
// persona.Repository. Cache failures fall back to the backing store.
type PersonaRepository struct {
	next  persona.Repository
	cache *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewPersonaRepository wraps next with a cache whose entries expire after ttl
func NewPersonaRepository(next persona.Repository, cache *redis.Client, ttl time.Duration) *PersonaRepository {
	return &PersonaRepository{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   logger.Component("persona_cache"),
	}
}

// Get serves from cache, loading and filling it on a miss
func (r *PersonaRepository) Get(ctx context.Context, userID string) (*persona.Persona, error) {
	var cached persona.Persona
	err := r.cache.Get(ctx, personaKey(userID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		r.log.Warnw("Persona cache read failed", "user_id", userID, "error", err)
	}

	p, err := r.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, personaKey(userID), p, r.ttl); err != nil {
		r.log.Warnw("Persona cache fill failed", "user_id", userID, "error", err)
	}
	return p, nil
}

// Upsert writes through and drops the cached copy
func (r *PersonaRepository) Upsert(ctx context.Context, p *persona.Persona) error {
	if err := r.next.Upsert(ctx, p); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, personaKey(p.UserID)); err != nil {
		r.log.Warnw("Persona cache invalidation failed", "user_id", p.UserID, "error", err)
	}
	return nil
}

func personaKey(userID string) string {
	return personaKeyPrefix + userID
}
