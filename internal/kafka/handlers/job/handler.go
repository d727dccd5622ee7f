package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-compressor/internal/model"
	jobrepo "github.com/aliskhannn/image-compressor/internal/repository/job"
)

// service defines the interface for processing queued jobs.
type service interface {
	ProcessJob(ctx context.Context, job model.Job) (model.Job, error)
}

// Handler handles Kafka messages carrying compression jobs.
type Handler struct {
	service service
}

// NewHandler creates a new handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Handle decodes the job and compresses it. Jobs deleted before they were
// processed are acknowledged and skipped.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var job model.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("unmarshal job: %w", err)
	}

	processed, err := h.service.ProcessJob(ctx, job)
	if err != nil {
		if errors.Is(err, jobrepo.ErrJobNotFound) {
			zlog.Logger.Warn().Str("id", job.ID.String()).Msg("job no longer exists, skipping")
			return nil
		}

		return fmt.Errorf("process job: %w", err)
	}

	zlog.Logger.Info().
		Str("id", processed.ID.String()).
		Str("status", string(processed.Status)).
		Msg("job handled")

	return nil
}
