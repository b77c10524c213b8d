package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"phi/internal/domain/prediction"
	"phi/pkg/errors"
)

// Compile-time check
var _ prediction.Repository = (*PredictionRepository)(nil)

// PredictionRepository keeps predictions as a JSON list. Every write is a
// read-modify-write under one mutex, so concurrent appends are never lost.
type PredictionRepository struct {
	mu   sync.Mutex
	path string
}

// NewPredictionRepository stores predictions in dir/predictions.json
func NewPredictionRepository(dir string) *PredictionRepository {
	return &PredictionRepository{path: filepath.Join(dir, "predictions.json")}
}

// Append adds p to the end of the list
func (r *PredictionRepository) Append(_ context.Context, p *prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.ID == p.ID {
			return errors.Wrapf(errors.ErrAlreadyExists, "prediction %s", p.ID)
		}
	}
	return writeJSON(r.path, append(all, p))
}

// GetByID returns one prediction
func (r *PredictionRepository) GetByID(_ context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "prediction %s", id)
}

// ListByUser returns userID's predictions, newest first
func (r *PredictionRepository) ListByUser(_ context.Context, userID string) ([]*prediction.Prediction, error) {
	return r.filter(func(p *prediction.Prediction) bool { return p.UserID == userID })
}

// ListByEvent returns eventID's predictions, newest first
func (r *PredictionRepository) ListByEvent(_ context.Context, eventID string) ([]*prediction.Prediction, error) {
	return r.filter(func(p *prediction.Prediction) bool { return p.EventID == eventID })
}

// UpdateAnchor sets the ledger references of id
func (r *PredictionRepository) UpdateAnchor(_ context.Context, id uuid.UUID, txHash, contentObjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	for _, p := range all {
		if p.ID == id {
			p.TxHash = &txHash
			p.ContentObjectID = &contentObjectID
			return writeJSON(r.path, all)
		}
	}
	return errors.Wrapf(errors.ErrNotFound, "prediction %s", id)
}

// Count returns the number of stored predictions
func (r *PredictionRepository) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	return len(all), err
}

func (r *PredictionRepository) filter(keep func(*prediction.Prediction) bool) ([]*prediction.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]*prediction.Prediction, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if keep(all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *PredictionRepository) load() ([]*prediction.Prediction, error) {
	var all []*prediction.Prediction
	if err := readJSON(r.path, &all); err != nil {
		return nil, err
	}
	return all, nil
}
