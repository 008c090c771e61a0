package canvas

import (
	"image"
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplabel/internal/annotation"
	"snaplabel/pkg/colorutil"
)

func newTestCanvas(t *testing.T) *AnnotationCanvas {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	c := NewAnnotationCanvas("camera")
	c.Resize(fyne.NewSize(200, 200))
	require.True(t, c.SetImage(whiteImage(100, 50), true))
	return c
}

func mouse(x, y float32, button desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     button,
	}
}

func drag(x, y float32) *fyne.DragEvent {
	return &fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}}
}

func pixel(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestCanvasResizeUpdatesMapping(t *testing.T) {
	c := newTestCanvas(t)
	m := c.Mapping()
	assert.InDelta(t, 2.0, m.Scale, 1e-9)
	assert.InDelta(t, 50.0, m.Offset.Y, 1e-9)

	c.Resize(fyne.NewSize(100, 100))
	assert.InDelta(t, 1.0, c.Mapping().Scale, 1e-9)
}

func TestCanvasDrawRectangle(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(annotation.ModeRectangle)

	var added [][]annotation.Annotation
	var tags []string
	c.OnAnnotationAdded = func(anns []annotation.Annotation, tag string) {
		added = append(added, anns)
		tags = append(tags, tag)
	}

	c.MouseDown(mouse(20, 70, desktop.MouseButtonPrimary))
	c.Dragged(drag(60, 90))
	c.MouseUp(mouse(60, 90, desktop.MouseButtonPrimary))

	require.Len(t, added, 1)
	assert.Equal(t, []string{c.Tag()}, tags)
	assert.Equal(t, "camera", c.Tag())
	require.Len(t, added[0], 1)
	r := added[0][0].Shape.Bounds()
	assert.InDelta(t, 10.0, r.X, 1e-9)
	assert.InDelta(t, 10.0, r.Y, 1e-9)
	assert.InDelta(t, 20.0, r.Width, 1e-9)
	assert.InDelta(t, 10.0, r.Height, 1e-9)
	assert.Equal(t, 0, c.Selected())
}

func TestCanvasCallbackMayReenter(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(annotation.ModeRectangle)
	c.OnAnnotationAdded = func(anns []annotation.Annotation, _ string) {
		require.NoError(t, c.SetClass(len(anns)-1, "cat"))
	}

	c.MouseDown(mouse(20, 70, desktop.MouseButtonPrimary))
	c.Dragged(drag(60, 90))
	c.MouseUp(mouse(60, 90, desktop.MouseButtonPrimary))

	anns := c.Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "cat", anns[0].Class)
	assert.NotEqual(t, colorutil.Fallback, c.ColorFor("cat"))
}

func TestCanvasIgnoresSecondaryButton(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(annotation.ModeRectangle)

	c.MouseDown(mouse(20, 70, desktop.MouseButtonSecondary))
	c.Dragged(drag(60, 90))
	c.MouseUp(mouse(60, 90, desktop.MouseButtonSecondary))
	assert.Empty(t, c.Annotations())
}

func TestCanvasDragEndCompletesOnce(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(annotation.ModeLine)

	count := 0
	c.OnAnnotationAdded = func([]annotation.Annotation, string) { count++ }

	c.MouseDown(mouse(20, 70, desktop.MouseButtonPrimary))
	c.Dragged(drag(60, 90))
	c.DragEnd()
	c.MouseUp(mouse(60, 90, desktop.MouseButtonPrimary))

	assert.Equal(t, 1, count)
	require.Len(t, c.Annotations(), 1)
	line, ok := c.Annotations()[0].Shape.(annotation.Line)
	require.True(t, ok)
	assert.InDelta(t, 30.0, line.End.X, 1e-9)
}

func TestCanvasClearAndSelectEvents(t *testing.T) {
	c := newTestCanvas(t)
	c.SetAnnotations([]annotation.Annotation{rectAnn(10, 10, 20, 10, "a")})

	selected := annotation.NoSelection
	c.OnAnnotationSelected = func(i int, _ string) { selected = i }
	cleared := 0
	c.OnAnnotationsCleared = func(string) { cleared++ }

	c.MouseDown(mouse(40, 80, desktop.MouseButtonPrimary))
	assert.Equal(t, 0, selected)
	assert.Equal(t, 0, c.Selected())

	c.ClearAnnotations()
	assert.Equal(t, 1, cleared)
	assert.Empty(t, c.Annotations())
	assert.Equal(t, annotation.NoSelection, c.Selected())
}

func TestCanvasLiveFramesWhileFrozen(t *testing.T) {
	c := newTestCanvas(t)
	assert.True(t, c.Still())
	assert.False(t, c.SetImage(whiteImage(10, 10), false))

	c.Thaw()
	assert.True(t, c.SetImage(whiteImage(10, 10), false))
	assert.False(t, c.Still())
}

func TestCanvasHoverPreview(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(annotation.ModeCenterSquare)
	c.SetSquareSize(10)

	c.MouseIn(mouse(100, 100, desktop.MouseButtonPrimary))
	assert.Equal(t, colorutil.PreviewDot, pixel(c.draw(200, 200), 100, 100))

	c.MouseOut()
	assert.Equal(t, colorutil.White, pixel(c.draw(200, 200), 100, 100))
}

func TestCanvasDrawUsesDeviceScale(t *testing.T) {
	c := newTestCanvas(t)
	c.SetAnnotations([]annotation.Annotation{rectAnn(10, 10, 20, 10, "a")})

	// 200x200 widget rendered into 400x400 pixels: scale 4, offset y 100.
	out := c.draw(400, 400)
	assert.Equal(t, c.ColorFor("a"), pixel(out, 80, 140))
	assert.Equal(t, colorutil.White, pixel(out, 80, 160))
}
