// Package annotation implements the annotation canvas model: shape records in
// image pixel space, the image<->widget coordinate mapping, the drawing
// session state machine and hit-testing.
package annotation

import (
	"fmt"

	"snaplabel/pkg/geometry"
)

// Kind identifies the shape family of an annotation.
type Kind int

const (
	KindRectangle Kind = iota + 1
	KindCenterSquare
	KindCircle
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindRectangle:
		return "rectangle"
	case KindCenterSquare:
		return "center_square"
	case KindCircle:
		return "circle"
	case KindLine:
		return "line"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Shape is the geometry of an annotation. The set of implementations is
// closed: Rectangle, CenterSquare, Circle and Line.
type Shape interface {
	Kind() Kind
	// Bounds returns the axis-aligned bounding box in image pixels.
	Bounds() geometry.Rect
	shape()
}

// Rectangle is an axis-aligned box with non-negative size.
type Rectangle struct {
	Rect geometry.Rect
}

// CenterSquare is a fixed-size square created from a single click.
type CenterSquare struct {
	Rect geometry.Rect
}

// Circle is defined by its centre and radius.
type Circle struct {
	Center geometry.Point2D
	Radius float64
}

// Line is a segment between two points.
type Line struct {
	Start geometry.Point2D
	End   geometry.Point2D
}

func (Rectangle) Kind() Kind    { return KindRectangle }
func (CenterSquare) Kind() Kind { return KindCenterSquare }
func (Circle) Kind() Kind       { return KindCircle }
func (Line) Kind() Kind         { return KindLine }

func (r Rectangle) Bounds() geometry.Rect    { return r.Rect }
func (s CenterSquare) Bounds() geometry.Rect { return s.Rect }

func (c Circle) Bounds() geometry.Rect {
	return geometry.NewRect(c.Center.X-c.Radius, c.Center.Y-c.Radius, 2*c.Radius, 2*c.Radius)
}

func (l Line) Bounds() geometry.Rect {
	return geometry.RectFromPoints(l.Start, l.End)
}

func (Rectangle) shape()    {}
func (CenterSquare) shape() {}
func (Circle) shape()       {}
func (Line) shape()         {}

// Annotation is one record on the canvas. A record with an empty Class is
// provisional: it was drawn but the host has not yet attached a label.
type Annotation struct {
	Shape Shape
	Class string
}

// Provisional reports whether the record is still waiting for a class label.
func (a Annotation) Provisional() bool {
	return a.Class == ""
}

// Mode selects how pointer input is interpreted.
type Mode int

const (
	ModeNone Mode = iota // selection
	ModeRectangle
	ModeCircle
	ModeLine
	ModeCenterSquare
)

// Modes lists every drawing mode in menu order.
var Modes = []Mode{ModeNone, ModeRectangle, ModeCircle, ModeLine, ModeCenterSquare}

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "Select"
	case ModeRectangle:
		return "Rectangle"
	case ModeCircle:
		return "Circle"
	case ModeLine:
		return "Line"
	case ModeCenterSquare:
		return "Center Square"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes {
		if m.String() == s {
			return m, true
		}
	}
	return ModeNone, false
}
