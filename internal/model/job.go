package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/image-compressor/internal/compress"
)

// JobStatus is the processing state of a compression job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusProcessed JobStatus = "processed"
	StatusFailed    JobStatus = "failed"
)

// Job represents an image compression job that is sent to the queue.
type Job struct {
	ID           uuid.UUID          `json:"id"`
	Filename     string             `json:"filename"`
	ContentType  string             `json:"content_type"`
	OriginalPath string             `json:"original_path"`
	ResultPath   string             `json:"result_path,omitempty"`
	ResultType   string             `json:"result_type,omitempty"`
	Width        int                `json:"width,omitempty"`
	Height       int                `json:"height,omitempty"`
	Options      compress.Overrides `json:"options"`
	Status       JobStatus          `json:"status"` // pending / processed / failed
	Error        string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
