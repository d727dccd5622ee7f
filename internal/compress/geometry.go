package compress

import "math"

// FitWithin scales w x h down so it fits inside maxW x maxH while keeping the
// aspect ratio. Images that already fit are returned unchanged.
func FitWithin(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return w, h
	}

	scale := w / h
	if scale >= maxW/maxH {
		if w > maxW {
			h = maxW / scale
			w = maxW
		}
	} else if h > maxH {
		w = maxH * scale
		h = maxH
	}

	return w, h
}

// Placement describes how a scaled image is drawn onto the surface.
// DrawWidth and DrawHeight are signed: a negative value means the image is
// drawn on the negative side of that axis before the surface is rotated.
type Placement struct {
	SurfaceWidth  int
	SurfaceHeight int
	Degrees       float64
	DrawWidth     float64
	DrawHeight    float64
}

// PlanPlacement computes the surface size, rotation and signed draw size for
// an image of w x h (already scaled) with the given orientation.
func PlanPlacement(o Orientation, w, h float64) Placement {
	p := Placement{
		SurfaceWidth:  pixels(w),
		SurfaceHeight: pixels(h),
		DrawWidth:     w,
		DrawHeight:    h,
	}

	switch o {
	case OrientationRotate180:
		p.Degrees = 180
		p.DrawWidth = -w
		p.DrawHeight = -h
	case OrientationRotate90:
		p.Degrees = 90
		p.SurfaceWidth, p.SurfaceHeight = pixels(h), pixels(w)
		p.DrawHeight = -h
	case OrientationRotate270:
		p.Degrees = 270
		p.SurfaceWidth, p.SurfaceHeight = pixels(h), pixels(w)
		p.DrawWidth = -w
	}

	return p
}

// DrawSize returns the unsigned integer size of the drawn bitmap.
func (p Placement) DrawSize() (int, int) {
	return pixels(math.Abs(p.DrawWidth)), pixels(math.Abs(p.DrawHeight))
}

// DrawOrigin returns the top-left corner of the drawn bitmap in the rotated
// coordinate frame.
func (p Placement) DrawOrigin() (int, int) {
	w, h := p.DrawSize()
	x, y := 0, 0
	if p.DrawWidth < 0 {
		x = -w
	}
	if p.DrawHeight < 0 {
		y = -h
	}
	return x, y
}

// pixels truncates a fractional size the way a canvas does, keeping at
// least one pixel so degenerate sizes still encode.
func pixels(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
