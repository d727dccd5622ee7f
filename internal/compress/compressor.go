package compress

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"
)

// Config configures a Compressor.
type Config struct {
	Defaults      Options
	DecodeTimeout time.Duration
	NativeBlob    bool // false selects the data URL blob fallback
}

// DefaultConfig returns the stock defaults with native blob export.
func DefaultConfig() Config {
	return Config{
		Defaults:      DefaultOptions(),
		DecodeTimeout: DefaultDecodeTimeout,
		NativeBlob:    true,
	}
}

// Compressor runs the decode -> orientation -> rasterize -> encode pipeline.
// It holds no per-call state and is safe for concurrent use.
type Compressor struct {
	defaults    Options
	orientation OrientationReader
	rasterizer  *Rasterizer
	encoder     *Encoder
}

// New creates a Compressor reading orientation from EXIF.
func New(cfg Config) *Compressor {
	return NewWithReader(cfg, EXIFReader{})
}

// NewWithReader creates a Compressor with a custom orientation reader.
func NewWithReader(cfg Config, or OrientationReader) *Compressor {
	return &Compressor{
		defaults:    cfg.Defaults,
		orientation: or,
		rasterizer:  NewRasterizer(cfg.DecodeTimeout),
		encoder:     NewEncoder(NewBlobExporter(cfg.NativeBlob)),
	}
}

// Defaults returns the options Compress merges overrides onto.
func (c *Compressor) Defaults() Options {
	return c.defaults
}

// FileToBase64 returns the file as a data URL.
func (c *Compressor) FileToBase64(ctx context.Context, f File) (string, error) {
	return FileToBase64(ctx, f)
}

// Compress scales, re-orients and re-encodes f. A nil file is logged and
// yields a nil result with a nil error.
func (c *Compressor) Compress(ctx context.Context, f File, ov Overrides) (*Result, error) {
	if f == nil {
		zlog.Logger.Warn().Str("kind", KindMissingInput.String()).Msg(ErrMissingInput.Error())
		return nil, nil
	}

	opts := c.defaults.Merge(ov)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		dataURL     string
		orientation = OrientationUnspecified
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dataURL, err = FileToBase64(gctx, f)
		return err
	})
	if opts.Fix {
		g.Go(func() error {
			orientation = c.orientation.ReadOrientation(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts = opts.WithOrientation(orientation).WithMimeType(MimeTypeOf(dataURL))

	zlog.Logger.Debug().
		Str("file", f.Name()).
		Str("mime", opts.MimeType).
		Int("orientation", int(opts.Orientation)).
		Msg("compressing image")

	surface, err := c.rasterizer.Rasterize(ctx, dataURL, opts)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, newError(KindEncode, "encode", err)
	}

	return c.encoder.Encode(surface, opts)
}
