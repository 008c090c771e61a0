package annotation

import (
	"math"

	"snaplabel/pkg/geometry"
)

// minScale guards the inverse mapping against a degenerate fit.
const minScale = 1e-9

// Mapping converts between image pixel space and widget space for an image
// scaled to fit and centred inside the widget.
//
//	widget = image*Scale + Offset
type Mapping struct {
	Scale     float64
	Offset    geometry.Point2D
	Region    geometry.Rect // image draw region in widget space
	ImageSize geometry.Size

	forward geometry.AffineTransform
	inverse geometry.AffineTransform
	valid   bool
}

// Fit computes the aspect-preserving scale-to-fit mapping of an image into a
// widget. The result is invalid if either size is empty.
func Fit(img, widget geometry.Size) Mapping {
	if img.Empty() || widget.Width < 0 || widget.Height < 0 {
		return Mapping{Scale: 1, ImageSize: img}
	}

	scale := math.Min(widget.Width/img.Width, widget.Height/img.Height)
	dw := img.Width * scale
	dh := img.Height * scale
	offset := geometry.NewPoint2D((widget.Width-dw)/2, (widget.Height-dh)/2)

	m := Mapping{
		Scale:     scale,
		Offset:    offset,
		Region:    geometry.NewRect(offset.X, offset.Y, dw, dh),
		ImageSize: img,
	}
	m.forward = geometry.Translation(offset.X, offset.Y).Compose(geometry.Scale(scale, scale))
	if scale > minScale {
		m.inverse, m.valid = m.forward.Inverse()
	}
	return m
}

// Valid reports whether the inverse mapping is defined.
func (m Mapping) Valid() bool {
	return m.valid
}

// Scaled returns the mapping multiplied by k, used when the raster backing a
// widget has more device pixels than the widget has logical units.
func (m Mapping) Scaled(k float64) Mapping {
	widget := geometry.NewSize(
		(m.Region.Width+2*m.Offset.X)*k,
		(m.Region.Height+2*m.Offset.Y)*k,
	)
	return Fit(m.ImageSize, widget)
}

// ToWidget maps an image point to widget space.
func (m Mapping) ToWidget(p geometry.Point2D) geometry.Point2D {
	return m.forward.Apply(p)
}

// ToImage maps a widget point to image space. It returns false, without
// evaluating, when the mapping is invalid.
func (m Mapping) ToImage(p geometry.Point2D) (geometry.Point2D, bool) {
	if !m.valid {
		return geometry.Point2D{}, false
	}
	return m.inverse.Apply(p), true
}

// RectToWidget maps an image rectangle to widget space.
func (m Mapping) RectToWidget(r geometry.Rect) geometry.Rect {
	tl := m.ToWidget(r.TopLeft())
	return geometry.NewRect(tl.X, tl.Y, r.Width*m.Scale, r.Height*m.Scale)
}

// InRegion reports whether a widget point lies on the displayed image.
func (m Mapping) InRegion(p geometry.Point2D) bool {
	return m.valid && m.Region.Contains(p)
}
