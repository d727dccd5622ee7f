package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-compressor/internal/api/respond"
	"github.com/aliskhannn/image-compressor/internal/compress"
	"github.com/aliskhannn/image-compressor/internal/model"
	jobrepo "github.com/aliskhannn/image-compressor/internal/repository/job"
	imagesvc "github.com/aliskhannn/image-compressor/internal/service/image"
)

// service defines the interface for image-related operations.
type service interface {
	Compress(ctx context.Context, f compress.File, ov compress.Overrides) (*compress.Result, error)
	FileToBase64(ctx context.Context, f compress.File) (string, error)
	SubmitJob(ctx context.Context, f compress.File, ov compress.Overrides) (uuid.UUID, error)
	GetJob(ctx context.Context, id uuid.UUID) (model.Job, error)
	GetResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

// Handler provides HTTP handlers for compression endpoints.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// CompressResponse is the JSON body for base64 results.
type CompressResponse struct {
	DataURL  string `json:"data_url"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Compress compresses the uploaded image inline. Blob results are returned
// as raw bytes, base64 results as JSON.
func (h *Handler) Compress(c *ginext.Context) {
	file, ov, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.service.Compress(c.Request.Context(), file, ov)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to compress the image")
		respond.Fail(c, statusFor(err), err)
		return
	}
	if res == nil {
		respond.Fail(c, http.StatusBadRequest, compress.ErrMissingInput)
		return
	}

	if res.Blob != nil {
		c.Header("Cache-Control", "no-store")
		respond.Bytes(c, http.StatusOK, res.Blob.Type, res.Blob.Data)
		return
	}

	respond.OK(c, CompressResponse{
		DataURL:  res.DataURL,
		MimeType: res.MimeType(),
		Width:    res.Width,
		Height:   res.Height,
	})
}

// Base64 returns the uploaded file as a data URL without compressing it.
func (h *Handler) Base64(c *ginext.Context) {
	file, err := formFile(c)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to upload the file")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	dataURL, err := h.service.FileToBase64(c.Request.Context(), file)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read the file")
		respond.Fail(c, statusFor(err), err)
		return
	}

	respond.OK(c, map[string]string{"data_url": dataURL})
}

// Submit stores the uploaded image and queues it for compression.
func (h *Handler) Submit(c *ginext.Context) {
	file, ov, ok := h.readUpload(c)
	if !ok {
		return
	}

	id, err := h.service.SubmitJob(c.Request.Context(), file, ov)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to submit the job")
		respond.Fail(c, statusFor(err), err)
		return
	}

	zlog.Logger.Info().Str("id", id.String()).Msg("job submitted")

	respond.Accepted(c, map[string]interface{}{
		"id":     id,
		"status": model.StatusPending,
	})
}

// GetJob returns the job record.
func (h *Handler) GetJob(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), id)
	if err != nil {
		respond.Fail(c, statusFor(err), err)
		return
	}

	respond.OK(c, job)
}

// GetResult serves the compressed image of a processed job.
func (h *Handler) GetResult(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	reader, contentType, err := h.service.GetResult(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, jobrepo.ErrJobNotFound) && !errors.Is(err, imagesvc.ErrJobNotReady) {
			zlog.Logger.Err(err).Msg("failed to get result")
		}
		respond.Fail(c, statusFor(err), err)
		return
	}
	defer reader.Close()

	// Disable browser caching to always fetch the latest image.
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	respond.Stream(c, http.StatusOK, contentType, reader)
}

// DeleteJob removes a job and its stored images.
func (h *Handler) DeleteJob(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteJob(c.Request.Context(), id); err != nil {
		if !errors.Is(err, jobrepo.ErrJobNotFound) {
			zlog.Logger.Err(err).Msg("failed to delete the job")
		}
		respond.Fail(c, statusFor(err), err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) readUpload(c *ginext.Context) (compress.File, compress.Overrides, bool) {
	file, err := formFile(c)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to upload the file")
		respond.Fail(c, http.StatusBadRequest, err)
		return nil, compress.Overrides{}, false
	}

	ov, err := parseOverrides(c)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("invalid compression options")
		respond.Fail(c, http.StatusBadRequest, err)
		return nil, compress.Overrides{}, false
	}

	return file, ov, true
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return uuid.Nil, false
	}

	return id, true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobrepo.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, imagesvc.ErrJobNotReady):
		return http.StatusConflict
	case compress.IsKind(err, compress.KindMissingInput),
		compress.IsKind(err, compress.KindInvalidOptions),
		compress.IsKind(err, compress.KindRead):
		return http.StatusBadRequest
	case compress.IsKind(err, compress.KindDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, compress.ErrMissingInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
