package annotation

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"snaplabel/pkg/geometry"
)

const (
	// NoSelection is the selected index when nothing is selected.
	NoSelection = -1

	// DefaultSquareSize is the centre-square side length in image pixels.
	DefaultSquareSize = 50.0
)

// ErrIndexOutOfRange is returned for an annotation index past the end.
var ErrIndexOutOfRange = errors.New("annotation index out of range")

// Canvas is the annotation canvas model. It is not safe for concurrent use;
// callers running on more than one goroutine must serialise access.
//
// Annotation indices are positional. Removing any record other than the
// last one shifts the indices of every later record.
type Canvas struct {
	// Tag is passed through unchanged to every event.
	Tag string

	// Event callbacks, invoked synchronously.
	OnAdded    func(annotations []Annotation, tag string)
	OnCleared  func(tag string)
	OnSelected func(index int, tag string)

	image       image.Image
	annotations []Annotation
	mode        Mode
	selected    int

	widgetSize geometry.Size
	mapping    Mapping

	dragging   bool
	start, end geometry.Point2D // widget space
	hovering   bool
	hover      geometry.Point2D // widget space

	still      bool
	squareSize float64
	colors     *ClassColors
}

// New creates an empty canvas in selection mode with no image.
func New() *Canvas {
	return &Canvas{
		selected:   NoSelection,
		squareSize: DefaultSquareSize,
		colors:     NewClassColors(),
	}
}

// LoadOption modifies SetImage.
type LoadOption func(*loadOptions)

type loadOptions struct {
	keep bool
}

// KeepAnnotations keeps the current annotations when the image is replaced,
// e.g. when reloading the same image after restoring its label file.
func KeepAnnotations() LoadOption {
	return func(o *loadOptions) { o.keep = true }
}

// SetImage replaces the current image. A live frame (still == false) is
// ignored while the canvas is frozen on a still image, and SetImage then
// returns false. A nil image is valid and means "no image".
func (c *Canvas) SetImage(img image.Image, still bool, opts ...LoadOption) bool {
	if !still && c.still {
		return false
	}
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.image = img
	c.refit()
	c.cancelDrag()
	c.clearSelection()
	if !o.keep {
		c.annotations = nil
	}
	c.still = still
	return true
}

// Thaw lets live frames replace the image again.
func (c *Canvas) Thaw() {
	c.still = false
}

// Still reports whether the canvas is frozen on a still image.
func (c *Canvas) Still() bool {
	return c.still
}

// Image returns the current image, or nil.
func (c *Canvas) Image() image.Image {
	return c.image
}

// Resize records the widget size and recomputes the mapping. An in-progress
// drag is discarded because its points were taken under the old mapping.
func (c *Canvas) Resize(size geometry.Size) {
	if size == c.widgetSize {
		return
	}
	c.widgetSize = size
	c.refit()
	c.cancelDrag()
}

// Mapping returns the current image<->widget mapping.
func (c *Canvas) Mapping() Mapping {
	return c.mapping
}

// SetDrawingMode switches the drawing mode, clearing the selection and any
// in-progress drag.
func (c *Canvas) SetDrawingMode(mode Mode) {
	c.mode = mode
	c.cancelDrag()
	c.clearSelection()
}

// Mode returns the current drawing mode.
func (c *Canvas) Mode() Mode {
	return c.mode
}

// SquareSize returns the centre-square side length in image pixels.
func (c *Canvas) SquareSize() float64 {
	return c.squareSize
}

// SetSquareSize sets the centre-square side length. Non-positive values
// restore the default.
func (c *Canvas) SetSquareSize(size float64) {
	if size <= 0 {
		size = DefaultSquareSize
	}
	c.squareSize = size
}

// Annotations returns a copy of the annotation list.
func (c *Canvas) Annotations() []Annotation {
	return append([]Annotation(nil), c.annotations...)
}

// Len returns the number of annotations.
func (c *Canvas) Len() int {
	return len(c.annotations)
}

// Selected returns the selected index or NoSelection.
func (c *Canvas) Selected() int {
	return c.selected
}

// Select selects index i, or clears the selection for NoSelection.
func (c *Canvas) Select(i int) error {
	if i == NoSelection {
		c.clearSelection()
		return nil
	}
	if i < 0 || i >= len(c.annotations) {
		return fmt.Errorf("select %d of %d: %w", i, len(c.annotations), ErrIndexOutOfRange)
	}
	c.selected = i
	return nil
}

// SetAnnotations replaces the annotation list, e.g. with records restored
// from a label file. The selection is cleared.
func (c *Canvas) SetAnnotations(anns []Annotation) {
	c.annotations = append([]Annotation(nil), anns...)
	for _, a := range c.annotations {
		c.colors.EnsureColor(a.Class)
	}
	c.clearSelection()
}

// SetClass attaches a class label to annotation i.
func (c *Canvas) SetClass(i int, label string) error {
	if i < 0 || i >= len(c.annotations) {
		return fmt.Errorf("set class on %d of %d: %w", i, len(c.annotations), ErrIndexOutOfRange)
	}
	c.annotations[i].Class = label
	c.colors.EnsureColor(label)
	return nil
}

// CancelProvisional removes trailing provisional records and returns how
// many were removed.
func (c *Canvas) CancelProvisional() int {
	n := 0
	for len(c.annotations) > 0 && c.annotations[len(c.annotations)-1].Provisional() {
		c.annotations = c.annotations[:len(c.annotations)-1]
		n++
	}
	if n > 0 {
		c.clampSelection()
	}
	return n
}

// ClearAnnotations removes every annotation and emits OnCleared.
func (c *Canvas) ClearAnnotations() {
	c.annotations = nil
	c.clearSelection()
	if c.OnCleared != nil {
		c.OnCleared(c.Tag)
	}
}

// RemoveLastAnnotation pops the most recent record. It reports whether a
// record was removed.
func (c *Canvas) RemoveLastAnnotation() bool {
	if len(c.annotations) == 0 {
		return false
	}
	c.annotations = c.annotations[:len(c.annotations)-1]
	c.clampSelection()
	return true
}

// RemoveAt removes annotation i. Later indices shift down by one, and the
// selection follows the record it pointed at.
func (c *Canvas) RemoveAt(i int) error {
	if i < 0 || i >= len(c.annotations) {
		return fmt.Errorf("remove %d of %d: %w", i, len(c.annotations), ErrIndexOutOfRange)
	}
	c.annotations = append(c.annotations[:i], c.annotations[i+1:]...)
	switch {
	case c.selected == i:
		c.selected = NoSelection
	case c.selected > i:
		c.selected--
	}
	return nil
}

// ColorFor returns the color assigned to a class label.
func (c *Canvas) ColorFor(label string) color.RGBA {
	return c.colors.Color(label)
}

// Colors returns the class color assignment.
func (c *Canvas) Colors() *ClassColors {
	return c.colors
}

// Dragging reports whether a drawing drag is in progress.
func (c *Canvas) Dragging() bool {
	return c.dragging
}

// Press handles a primary pointer press at widget point p.
func (c *Canvas) Press(p geometry.Point2D) {
	if c.image == nil || !c.mapping.Valid() {
		return
	}
	if !c.mapping.InRegion(p) {
		c.cancelDrag()
		c.clearSelection()
		return
	}

	if c.mode == ModeNone {
		c.selectAt(p)
		return
	}

	c.dragging = true
	c.start = p
	c.end = p
	c.clearSelection()
}

// Move handles pointer motion at widget point p.
func (c *Canvas) Move(p geometry.Point2D) {
	if c.image == nil || !c.mapping.Valid() {
		return
	}
	if !c.mapping.InRegion(p) {
		c.cancelDrag()
		c.hovering = false
		return
	}

	if c.dragging {
		c.end = p
		return
	}
	if c.mode == ModeCenterSquare {
		c.hover = p
		c.hovering = true
	}
}

// Leave handles the pointer leaving the widget.
func (c *Canvas) Leave() {
	c.hovering = false
}

// Release handles a primary pointer release at widget point p. A release
// ending a drag appends exactly one record, selects it and emits OnAdded.
func (c *Canvas) Release(p geometry.Point2D) {
	if c.image == nil || !c.dragging {
		return
	}
	c.dragging = false
	c.end = p

	start, ok := c.mapping.ToImage(c.start)
	if !ok {
		return
	}
	end, _ := c.mapping.ToImage(c.end)

	shape := c.shapeFor(c.mode, start, end)
	if shape == nil {
		return
	}
	c.annotations = append(c.annotations, Annotation{Shape: shape})
	c.selected = len(c.annotations) - 1
	if c.OnAdded != nil {
		c.OnAdded(c.Annotations(), c.Tag)
	}
}

// shapeFor builds the shape for a drag from start to end in image space.
func (c *Canvas) shapeFor(mode Mode, start, end geometry.Point2D) Shape {
	switch mode {
	case ModeRectangle:
		return Rectangle{Rect: geometry.RectFromPoints(start, end)}
	case ModeCircle:
		return Circle{Center: start.Midpoint(end), Radius: start.Distance(end) / 2}
	case ModeLine:
		return Line{Start: start, End: end}
	case ModeCenterSquare:
		return CenterSquare{Rect: geometry.SquareAround(start, c.squareSize)}
	default:
		return nil
	}
}

// selectAt hit-tests annotations from topmost (last created) down.
func (c *Canvas) selectAt(p geometry.Point2D) {
	c.selected = NoSelection
	for i := len(c.annotations) - 1; i >= 0; i-- {
		if c.hit(c.annotations[i].Shape, p) {
			c.selected = i
			if c.OnSelected != nil {
				c.OnSelected(i, c.Tag)
			}
			return
		}
	}
}

// hit reports whether widget point p falls on shape. Only box shapes are
// hit-testable; circles and lines never match.
func (c *Canvas) hit(s Shape, p geometry.Point2D) bool {
	switch s := s.(type) {
	case Rectangle:
		return c.mapping.RectToWidget(s.Rect).Contains(p)
	case CenterSquare:
		return c.mapping.RectToWidget(s.Rect).Contains(p)
	default:
		return false
	}
}

// Preview returns the in-progress shape in widget space: the shape being
// dragged, or the centre-square hover preview.
func (c *Canvas) Preview() (Shape, bool) {
	if c.image == nil || !c.mapping.Valid() || c.mode == ModeNone {
		return nil, false
	}
	if c.mode == ModeCenterSquare {
		side := c.squareSize * c.mapping.Scale
		switch {
		case c.dragging:
			return CenterSquare{Rect: geometry.SquareAround(c.start, side)}, true
		case c.hovering:
			return CenterSquare{Rect: geometry.SquareAround(c.hover, side)}, true
		}
		return nil, false
	}
	if !c.dragging {
		return nil, false
	}
	switch c.mode {
	case ModeRectangle:
		return Rectangle{Rect: geometry.RectFromPoints(c.start, c.end)}, true
	case ModeCircle:
		return Circle{Center: c.start.Midpoint(c.end), Radius: c.start.Distance(c.end) / 2}, true
	case ModeLine:
		return Line{Start: c.start, End: c.end}, true
	}
	return nil, false
}

// Scene is an immutable snapshot of everything needed to render the canvas.
type Scene struct {
	Image       image.Image
	Mapping     Mapping
	Annotations []Annotation
	Selected    int
	Preview     Shape // widget space, nil if none
	Colors      map[string]color.RGBA
}

// ColorFor returns the color for a class label within the scene.
func (s Scene) ColorFor(label string) (color.RGBA, bool) {
	col, ok := s.Colors[label]
	return col, ok
}

// Scene returns a render snapshot of the canvas.
func (c *Canvas) Scene() Scene {
	preview, _ := c.Preview()
	return Scene{
		Image:       c.image,
		Mapping:     c.mapping,
		Annotations: c.Annotations(),
		Selected:    c.selected,
		Preview:     preview,
		Colors:      c.colors.snapshot(),
	}
}

func (c *Canvas) refit() {
	if c.image == nil {
		c.mapping = Fit(geometry.Size{}, c.widgetSize)
		return
	}
	b := c.image.Bounds()
	c.mapping = Fit(geometry.NewSize(float64(b.Dx()), float64(b.Dy())), c.widgetSize)
}

func (c *Canvas) cancelDrag() {
	c.dragging = false
	c.hovering = false
	c.start = geometry.Point2D{}
	c.end = geometry.Point2D{}
}

func (c *Canvas) clearSelection() {
	c.selected = NoSelection
}

// clampSelection clears a selection that no longer points at a record.
func (c *Canvas) clampSelection() {
	if c.selected >= len(c.annotations) {
		c.selected = NoSelection
	}
}
