// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Midpoint returns the point halfway between p and other.
func (p Point2D) Midpoint(other Point2D) Point2D {
	return Point2D{X: (p.X + other.X) / 2, Y: (p.Y + other.Y) / 2}
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// RectFromPoints returns the axis-aligned rectangle spanned by two corners,
// normalized so that Width and Height are non-negative.
func RectFromPoints(a, b Point2D) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

// SquareAround returns a square of the given side centred on c.
func SquareAround(c Point2D, side float64) Rect {
	half := side / 2
	return Rect{X: c.X - half, Y: c.Y - half, Width: side, Height: side}
}

// Contains returns true if the point is inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// TopLeft returns the top-left corner.
func (r Rect) TopLeft() Point2D {
	return Point2D{X: r.X, Y: r.Y}
}

// BottomRight returns the bottom-right corner.
func (r Rect) BottomRight() Point2D {
	return Point2D{X: r.X + r.Width, Y: r.Y + r.Height}
}

// Empty reports whether the rectangle has zero area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	if math.Abs(t.A*t.D-t.B*t.C) < 1e-10 {
		return AffineTransform{}, false
	}

	var inv mat.Dense
	if err := inv.Inverse(t.homogeneous()); err != nil {
		return AffineTransform{}, false
	}
	return AffineTransform{
		A: inv.At(0, 0), B: inv.At(0, 1), TX: inv.At(0, 2),
		C: inv.At(1, 0), D: inv.At(1, 1), TY: inv.At(1, 2),
	}, true
}

// homogeneous returns the 3x3 homogeneous form of the transform.
func (t AffineTransform) homogeneous() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.A, t.B, t.TX,
		t.C, t.D, t.TY,
		0, 0, 1,
	})
}
