package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/image-compressor/internal/model"
	"github.com/aliskhannn/image-compressor/internal/storage/kv"
)

// Prefix namespaces job records inside the key-value store.
const Prefix = "job-"

var ErrJobNotFound = errors.New("job not found")

// Repository keeps job records in the key-value store. Records expire after
// the configured TTL; a zero TTL keeps them forever.
type Repository struct {
	store *kv.Storage
	ttl   time.Duration
}

// NewRepository creates a new Repository over store.
func NewRepository(store *kv.Storage, ttl time.Duration) *Repository {
	return &Repository{store: store, ttl: ttl}
}

// SaveJob stores a new job record.
func (r *Repository) SaveJob(ctx context.Context, job model.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.store.Set(job.ID.String(), job, r.ttl); err != nil {
		return fmt.Errorf("save: failed to save job: %w", err)
	}

	return nil
}

// GetJob retrieves a job record by ID.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (model.Job, error) {
	if err := ctx.Err(); err != nil {
		return model.Job{}, err
	}

	var job model.Job
	found, err := r.store.GetInto(id.String(), &job)
	if err != nil {
		return model.Job{}, fmt.Errorf("get: failed to decode job: %w", err)
	}
	if !found {
		return model.Job{}, ErrJobNotFound
	}

	return job, nil
}

// UpdateJob replaces an existing job record. The TTL restarts from now.
func (r *Repository) UpdateJob(ctx context.Context, job model.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !r.store.Has(job.ID.String()) {
		return ErrJobNotFound
	}

	if err := r.store.Set(job.ID.String(), job, r.ttl); err != nil {
		return fmt.Errorf("update: failed to update job: %w", err)
	}

	return nil
}

// DeleteJob deletes a job record by ID.
func (r *Repository) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !r.store.Has(id.String()) {
		return ErrJobNotFound
	}

	if err := r.store.Remove(id.String()); err != nil {
		return fmt.Errorf("delete: failed to delete job: %w", err)
	}

	return nil
}
