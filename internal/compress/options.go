package compress

import (
	"fmt"
)

// ResultFormat selects what Compress resolves with.
type ResultFormat string

const (
	ResultBase64 ResultFormat = "base64" // data URL string
	ResultBlob   ResultFormat = "blob"   // raw encoded bytes
)

// Default option values.
const (
	DefaultMaxWidth  = 1280
	DefaultMaxHeight = 1280
	DefaultQuality   = 90
)

// Options is the full configuration for one Compress call. It is a value
// type: every modification returns a copy.
type Options struct {
	Result      ResultFormat
	Fix         bool // correct orientation using EXIF
	MaxWidth    int
	MaxHeight   int
	Quality     int // 0..100
	MimeType    string
	Orientation Orientation
}

// Overrides carries caller-supplied options. Nil fields keep the default.
type Overrides struct {
	Result    *ResultFormat `json:"result,omitempty"`
	Fix       *bool         `json:"fix,omitempty"`
	MaxWidth  *int          `json:"max_width,omitempty"`
	MaxHeight *int          `json:"max_height,omitempty"`
	Quality   *int          `json:"quality,omitempty"`
}

// DefaultOptions returns result=base64, fix=true, 1280x1280, quality 90.
func DefaultOptions() Options {
	return Options{
		Result:    ResultBase64,
		Fix:       true,
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
	}
}

// Merge returns a copy of o with every non-nil override applied.
// Quality is clamped to [0, 100].
func (o Options) Merge(ov Overrides) Options {
	if ov.Result != nil {
		o.Result = *ov.Result
	}
	if ov.Fix != nil {
		o.Fix = *ov.Fix
	}
	if ov.MaxWidth != nil {
		o.MaxWidth = *ov.MaxWidth
	}
	if ov.MaxHeight != nil {
		o.MaxHeight = *ov.MaxHeight
	}
	if ov.Quality != nil {
		o.Quality = *ov.Quality
	}
	o.Quality = clampQuality(o.Quality)

	return o
}

// WithOrientation returns a copy of o carrying the detected orientation.
func (o Options) WithOrientation(or Orientation) Options {
	o.Orientation = or
	return o
}

// WithMimeType returns a copy of o with the source mime type set.
func (o Options) WithMimeType(mime string) Options {
	o.MimeType = mime
	return o
}

// QualityRatio returns the quality as the 0.0..1.0 ratio encoders expect.
func (o Options) QualityRatio() float64 {
	return float64(clampQuality(o.Quality)) / 100
}

// Validate checks that the options can drive the pipeline.
func (o Options) Validate() error {
	switch o.Result {
	case ResultBase64, ResultBlob:
	default:
		return newError(KindInvalidOptions, "validate", fmt.Errorf("unknown result format %q", o.Result))
	}
	if o.MaxWidth <= 0 {
		return newError(KindInvalidOptions, "validate", fmt.Errorf("max width must be positive, got %d", o.MaxWidth))
	}
	if o.MaxHeight <= 0 {
		return newError(KindInvalidOptions, "validate", fmt.Errorf("max height must be positive, got %d", o.MaxHeight))
	}

	return nil
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}
