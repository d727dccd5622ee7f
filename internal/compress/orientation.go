package compress

import (
	"context"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/wb-go/wbf/zlog"
)

// Orientation is the EXIF orientation code describing how the camera was
// held. Only 3, 6 and 8 change the rendering.
type Orientation int

const (
	OrientationUnspecified Orientation = 0
	OrientationNormal      Orientation = 1
	OrientationRotate180   Orientation = 3 // home button on the left
	OrientationRotate90    Orientation = 6 // portrait, home button at the bottom
	OrientationRotate270   Orientation = 8 // portrait, home button at the top
)

// Degrees returns the clockwise rotation that undoes the camera rotation.
func (o Orientation) Degrees() float64 {
	switch o {
	case OrientationRotate180:
		return 180
	case OrientationRotate90:
		return 90
	case OrientationRotate270:
		return 270
	default:
		return 0
	}
}

// SwapsAxes reports whether the upright image has width and height swapped.
func (o Orientation) SwapsAxes() bool {
	return o == OrientationRotate90 || o == OrientationRotate270
}

// OrientationReader extracts the orientation code of a file.
type OrientationReader interface {
	ReadOrientation(ctx context.Context, f File) Orientation
}

// EXIFReader reads the Orientation tag from the file's EXIF segment.
type EXIFReader struct{}

// ReadOrientation returns OrientationUnspecified when the file has no EXIF
// segment, no Orientation tag, or an out-of-range value. It never fails.
func (EXIFReader) ReadOrientation(ctx context.Context, f File) Orientation {
	if ctx.Err() != nil {
		return OrientationUnspecified
	}

	rc, err := f.Open()
	if err != nil {
		zlog.Logger.Debug().Err(err).Str("file", f.Name()).Msg("orientation: failed to open file")
		return OrientationUnspecified
	}
	defer rc.Close()

	return readOrientation(rc, f.Name())
}

func readOrientation(r io.Reader, name string) Orientation {
	x, err := exif.Decode(r)
	if err != nil {
		zlog.Logger.Debug().Err(err).Str("file", name).Msg("orientation: no exif data")
		return OrientationUnspecified
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationUnspecified
	}

	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return OrientationUnspecified
	}

	return Orientation(v)
}
