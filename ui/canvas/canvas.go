// Package canvas provides the annotation canvas widget.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"snaplabel/internal/annotation"
	"snaplabel/pkg/geometry"
)

// AnnotationCanvas displays an image scaled to fit and lets the user draw
// annotations over it. It is safe to call from any goroutine: model access
// is serialised and callbacks run after the lock is released, so a callback
// may call back into the canvas.
type AnnotationCanvas struct {
	widget.BaseWidget

	mu      sync.Mutex
	model   *annotation.Canvas
	pending []func()
	lastPos geometry.Point2D

	raster *fynecanvas.Raster

	// Callbacks
	OnAnnotationAdded    func(annotations []annotation.Annotation, tag string)
	OnAnnotationsCleared func(tag string)
	OnAnnotationSelected func(index int, tag string)
}

// NewAnnotationCanvas creates a canvas whose events carry tag.
func NewAnnotationCanvas(tag string) *AnnotationCanvas {
	ac := &AnnotationCanvas{model: annotation.New()}
	ac.model.Tag = tag
	ac.model.OnAdded = func(anns []annotation.Annotation, tag string) {
		ac.queue(func() {
			if ac.OnAnnotationAdded != nil {
				ac.OnAnnotationAdded(anns, tag)
			}
		})
	}
	ac.model.OnCleared = func(tag string) {
		ac.queue(func() {
			if ac.OnAnnotationsCleared != nil {
				ac.OnAnnotationsCleared(tag)
			}
		})
	}
	ac.model.OnSelected = func(i int, tag string) {
		ac.queue(func() {
			if ac.OnAnnotationSelected != nil {
				ac.OnAnnotationSelected(i, tag)
			}
		})
	}

	ac.raster = fynecanvas.NewRaster(ac.draw)
	ac.raster.ScaleMode = fynecanvas.ImageScalePixels

	ac.ExtendBaseWidget(ac)
	return ac
}

// queue must be called with mu held.
func (ac *AnnotationCanvas) queue(fn func()) {
	ac.pending = append(ac.pending, fn)
}

// update runs fn against the model under the lock, then dispatches any
// events it produced and redraws.
func (ac *AnnotationCanvas) update(fn func(m *annotation.Canvas)) {
	ac.mu.Lock()
	fn(ac.model)
	events := ac.pending
	ac.pending = nil
	ac.mu.Unlock()

	for _, e := range events {
		e()
	}
	ac.raster.Refresh()
}

func (ac *AnnotationCanvas) read(fn func(m *annotation.Canvas)) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	fn(ac.model)
}

// Tag returns the tag passed through to events.
func (ac *AnnotationCanvas) Tag() string {
	var tag string
	ac.read(func(m *annotation.Canvas) { tag = m.Tag })
	return tag
}

// SetImage displays img. Live frames (still false) are dropped while a
// still image is shown. Annotations are cleared unless KeepAnnotations is
// given. It reports whether the image was accepted.
func (ac *AnnotationCanvas) SetImage(img image.Image, still bool, opts ...annotation.LoadOption) bool {
	var ok bool
	ac.update(func(m *annotation.Canvas) { ok = m.SetImage(img, still, opts...) })
	return ok
}

// Thaw lets live frames replace the still image again.
func (ac *AnnotationCanvas) Thaw() {
	ac.update(func(m *annotation.Canvas) { m.Thaw() })
}

// Still reports whether a still image is frozen on the canvas.
func (ac *AnnotationCanvas) Still() bool {
	var still bool
	ac.read(func(m *annotation.Canvas) { still = m.Still() })
	return still
}

// Image returns the displayed image.
func (ac *AnnotationCanvas) Image() image.Image {
	var img image.Image
	ac.read(func(m *annotation.Canvas) { img = m.Image() })
	return img
}

// Mapping returns the current image to widget mapping.
func (ac *AnnotationCanvas) Mapping() annotation.Mapping {
	var mp annotation.Mapping
	ac.read(func(m *annotation.Canvas) { mp = m.Mapping() })
	return mp
}

// SetDrawingMode switches the drawing tool.
func (ac *AnnotationCanvas) SetDrawingMode(mode annotation.Mode) {
	ac.update(func(m *annotation.Canvas) { m.SetDrawingMode(mode) })
}

// Mode returns the drawing tool.
func (ac *AnnotationCanvas) Mode() annotation.Mode {
	var mode annotation.Mode
	ac.read(func(m *annotation.Canvas) { mode = m.Mode() })
	return mode
}

// SetSquareSize sets the centre-square side in image pixels.
func (ac *AnnotationCanvas) SetSquareSize(size float64) {
	ac.update(func(m *annotation.Canvas) { m.SetSquareSize(size) })
}

// SquareSize returns the centre-square side in image pixels.
func (ac *AnnotationCanvas) SquareSize() float64 {
	var size float64
	ac.read(func(m *annotation.Canvas) { size = m.SquareSize() })
	return size
}

// Annotations returns a copy of the annotation list.
func (ac *AnnotationCanvas) Annotations() []annotation.Annotation {
	var anns []annotation.Annotation
	ac.read(func(m *annotation.Canvas) { anns = m.Annotations() })
	return anns
}

// Len returns the number of annotations.
func (ac *AnnotationCanvas) Len() int {
	var n int
	ac.read(func(m *annotation.Canvas) { n = m.Len() })
	return n
}

// SetAnnotations replaces the annotation list.
func (ac *AnnotationCanvas) SetAnnotations(anns []annotation.Annotation) {
	ac.update(func(m *annotation.Canvas) { m.SetAnnotations(anns) })
}

// Selected returns the selected index or annotation.NoSelection.
func (ac *AnnotationCanvas) Selected() int {
	var i int
	ac.read(func(m *annotation.Canvas) { i = m.Selected() })
	return i
}

// Select selects the annotation at i.
func (ac *AnnotationCanvas) Select(i int) error {
	var err error
	ac.update(func(m *annotation.Canvas) { err = m.Select(i) })
	return err
}

// SetClass labels the annotation at i.
func (ac *AnnotationCanvas) SetClass(i int, label string) error {
	var err error
	ac.update(func(m *annotation.Canvas) { err = m.SetClass(i, label) })
	return err
}

// CancelProvisional drops trailing unlabelled annotations and returns how
// many were removed.
func (ac *AnnotationCanvas) CancelProvisional() int {
	var n int
	ac.update(func(m *annotation.Canvas) { n = m.CancelProvisional() })
	return n
}

// ClearAnnotations removes every annotation.
func (ac *AnnotationCanvas) ClearAnnotations() {
	ac.update(func(m *annotation.Canvas) { m.ClearAnnotations() })
}

// RemoveLastAnnotation removes the newest annotation.
func (ac *AnnotationCanvas) RemoveLastAnnotation() bool {
	var ok bool
	ac.update(func(m *annotation.Canvas) { ok = m.RemoveLastAnnotation() })
	return ok
}

// RemoveAt removes the annotation at i.
func (ac *AnnotationCanvas) RemoveAt(i int) error {
	var err error
	ac.update(func(m *annotation.Canvas) { err = m.RemoveAt(i) })
	return err
}

// ColorFor returns the color assigned to a class label.
func (ac *AnnotationCanvas) ColorFor(label string) color.RGBA {
	var col color.RGBA
	ac.read(func(m *annotation.Canvas) { col = m.ColorFor(label) })
	return col
}

func position(p fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(p.X), float64(p.Y))
}

// MouseDown implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	ac.update(func(m *annotation.Canvas) {
		ac.lastPos = position(ev.Position)
		m.Press(ac.lastPos)
	})
}

// MouseUp implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	ac.update(func(m *annotation.Canvas) {
		ac.lastPos = position(ev.Position)
		m.Release(ac.lastPos)
	})
}

// MouseIn implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseIn(ev *desktop.MouseEvent) {
	ac.MouseMoved(ev)
}

// MouseMoved implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ac.update(func(m *annotation.Canvas) {
		ac.lastPos = position(ev.Position)
		m.Move(ac.lastPos)
	})
}

// MouseOut implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseOut() {
	ac.update(func(m *annotation.Canvas) { m.Leave() })
}

// Dragged implements fyne.Draggable. Drivers deliver pointer motion with a
// button held as drag events rather than hover events.
func (ac *AnnotationCanvas) Dragged(ev *fyne.DragEvent) {
	ac.update(func(m *annotation.Canvas) {
		ac.lastPos = position(ev.Position)
		m.Move(ac.lastPos)
	})
}

// DragEnd implements fyne.Draggable. It completes a drag whose MouseUp was
// not delivered.
func (ac *AnnotationCanvas) DragEnd() {
	ac.update(func(m *annotation.Canvas) {
		if m.Dragging() {
			m.Release(ac.lastPos)
		}
	})
}

// draw is the raster drawing function.
func (ac *AnnotationCanvas) draw(w, h int) image.Image {
	var scene annotation.Scene
	ac.read(func(m *annotation.Canvas) { scene = m.Scene() })

	k := 1.0
	if size := ac.Size(); size.Width > 0 {
		k = float64(w) / float64(size.Width)
	}
	return Render(scene, w, h, k)
}

// CreateRenderer implements fyne.Widget.
func (ac *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &annotationCanvasRenderer{canvas: ac}
}

type annotationCanvasRenderer struct {
	canvas *AnnotationCanvas
}

func (r *annotationCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.update(func(m *annotation.Canvas) {
		m.Resize(geometry.NewSize(float64(size.Width), float64(size.Height)))
	})
}

func (r *annotationCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

func (r *annotationCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *annotationCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *annotationCanvasRenderer) Destroy() {}
