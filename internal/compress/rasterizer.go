package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	// Register WebP so webp uploads can be loaded.
	_ "golang.org/x/image/webp"
)

// DefaultDecodeTimeout bounds how long a source bitmap may take to load.
const DefaultDecodeTimeout = 10 * time.Second

// Surface is the offscreen raster the image is drawn on.
type Surface struct {
	Image  image.Image
	Width  int
	Height int
}

// Rasterizer loads a data URL into a bitmap and renders it, scaled and
// upright, onto a fresh surface.
type Rasterizer struct {
	decodeTimeout time.Duration
}

// NewRasterizer creates a Rasterizer. A non-positive timeout selects
// DefaultDecodeTimeout.
func NewRasterizer(decodeTimeout time.Duration) *Rasterizer {
	if decodeTimeout <= 0 {
		decodeTimeout = DefaultDecodeTimeout
	}
	return &Rasterizer{decodeTimeout: decodeTimeout}
}

// Rasterize draws the image encoded in dataURL onto a surface that fits
// within opts.MaxWidth x opts.MaxHeight, rotated according to
// opts.Orientation.
func (r *Rasterizer) Rasterize(ctx context.Context, dataURL string, opts Options) (*Surface, error) {
	src, err := r.load(ctx, dataURL)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := FitWithin(float64(b.Dx()), float64(b.Dy()), float64(opts.MaxWidth), float64(opts.MaxHeight))
	p := PlanPlacement(opts.Orientation, w, h)

	dw, dh := p.DrawSize()
	switch {
	case dw != b.Dx() || dh != b.Dy():
		src = imaging.Resize(src, dw, dh, imaging.Lanczos)
	case b.Min.X != 0 || b.Min.Y != 0:
		// gg draws from the bitmap's own origin; rebase it to (0, 0).
		src = imaging.Clone(src)
	}

	dc := gg.NewContext(p.SurfaceWidth, p.SurfaceHeight)
	dc.Rotate(gg.Radians(p.Degrees))
	x, y := p.DrawOrigin()
	dc.DrawImage(src, x, y)

	return &Surface{
		Image:  dc.Image(),
		Width:  p.SurfaceWidth,
		Height: p.SurfaceHeight,
	}, nil
}

type loadResult struct {
	img image.Image
	err error
}

// load decodes the data URL in the background and gives up after the decode
// timeout.
func (r *Rasterizer) load(ctx context.Context, dataURL string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.decodeTimeout)
	defer cancel()

	if ctx.Err() != nil {
		return nil, r.abortErr(ctx)
	}

	done := make(chan loadResult, 1)
	go func() {
		_, payload, err := parseDataURL(dataURL)
		if err != nil {
			done <- loadResult{err: err}
			return
		}

		img, err := imaging.Decode(bytes.NewReader(payload))
		done <- loadResult{img: img, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, newError(KindDecode, "load", fmt.Errorf("failed to decode image: %w", res.err))
		}
		return res.img, nil
	case <-ctx.Done():
		return nil, r.abortErr(ctx)
	}
}

// abortErr reports a load that was cut short by the decode timeout or by
// the caller.
func (r *Rasterizer) abortErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(KindDecode, "load", fmt.Errorf("%w after %s", ErrDecodeTimeout, r.decodeTimeout))
	}
	return newError(KindDecode, "load", ctx.Err())
}
