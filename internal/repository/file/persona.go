package file

import (
	"context"
	"path/filepath"
	"sync"

	"phi/internal/domain/persona"
	"phi/pkg/errors"
)

// Compile-time check
var _ persona.Repository = (*PersonaRepository)(nil)

// PersonaRepository keeps personas in a JSON object keyed by user id
type PersonaRepository struct {
	mu   sync.Mutex
	path string
}

// NewPersonaRepository stores personas in dir/personas.json
func NewPersonaRepository(dir string) *PersonaRepository {
	return &PersonaRepository{path: filepath.Join(dir, "personas.json")}
}

// Get returns the persona for userID
func (r *PersonaRepository) Get(_ context.Context, userID string) (*persona.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}
	p, ok := all[userID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "persona %s", userID)
	}
	return p, nil
}

// Upsert replaces the persona stored for p.UserID
func (r *PersonaRepository) Upsert(_ context.Context, p *persona.Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	all[p.UserID] = p
	return writeJSON(r.path, all)
}

// Count returns the number of stored personas
func (r *PersonaRepository) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	return len(all), err
}

func (r *PersonaRepository) load() (map[string]*persona.Persona, error) {
	all := map[string]*persona.Persona{}
	if err := readJSON(r.path, &all); err != nil {
		return nil, err
	}
	return all, nil
}
