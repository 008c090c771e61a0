package annotation

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplabel/pkg/colorutil"
	"snaplabel/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D { return geometry.NewPoint2D(x, y) }

// newTestCanvas returns a canvas showing a still 1000x500 image in a 500x500
// widget: scale 0.5, draw region (0,125)-(500,375).
func newTestCanvas(t *testing.T) *Canvas {
	t.Helper()
	c := New()
	c.Resize(geometry.NewSize(500, 500))
	require.True(t, c.SetImage(image.NewRGBA(image.Rect(0, 0, 1000, 500)), true))
	return c
}

func assertPoint(t *testing.T, want, got geometry.Point2D) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

func assertRect(t *testing.T, want, got geometry.Rect) {
	t.Helper()
	assertPoint(t, want.TopLeft(), got.TopLeft())
	assert.InDelta(t, want.Width, got.Width, 1e-9)
	assert.InDelta(t, want.Height, got.Height, 1e-9)
}

func drag(c *Canvas, a, b geometry.Point2D) {
	c.Press(a)
	c.Move(b)
	c.Release(b)
}

func TestRectangleDragIsNormalizedBoundingBox(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)

	a, b := pt(300, 350), pt(100, 150)
	drag(c, a, b)

	anns := c.Annotations()
	require.Len(t, anns, 1)
	ia, _ := c.Mapping().ToImage(a)
	ib, _ := c.Mapping().ToImage(b)
	assert.Equal(t, Rectangle{Rect: geometry.RectFromPoints(ia, ib)}, anns[0].Shape)
	assertRect(t, geometry.NewRect(200, 50, 400, 400), anns[0].Shape.Bounds())
	assert.True(t, anns[0].Provisional())
	assert.Equal(t, 0, c.Selected())
}

func TestCircleAndLineShapes(t *testing.T) {
	c := newTestCanvas(t)

	c.SetDrawingMode(ModeCircle)
	drag(c, pt(100, 150), pt(200, 150))
	c.SetDrawingMode(ModeLine)
	drag(c, pt(10, 200), pt(60, 250))

	anns := c.Annotations()
	require.Len(t, anns, 2)

	circle, ok := anns[0].Shape.(Circle)
	require.True(t, ok)
	assert.InDelta(t, 300, circle.Center.X, 1e-9)
	assert.InDelta(t, 50, circle.Center.Y, 1e-9)
	assert.InDelta(t, 100, circle.Radius, 1e-9)

	line, ok := anns[1].Shape.(Line)
	require.True(t, ok)
	assertPoint(t, pt(20, 150), line.Start)
	assertPoint(t, pt(120, 250), line.End)
}

func TestCenterSquareIgnoresDragDistance(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeCenterSquare)

	p := pt(250, 250)
	c.Press(p)
	c.Move(pt(400, 300))
	c.Move(pt(20, 140))
	c.Release(pt(20, 140))

	anns := c.Annotations()
	require.Len(t, anns, 1)
	center, _ := c.Mapping().ToImage(p)
	sq, ok := anns[0].Shape.(CenterSquare)
	require.True(t, ok)
	assert.Equal(t, geometry.SquareAround(center, DefaultSquareSize), sq.Rect)
	assertPoint(t, center, sq.Rect.Center())
}

func TestCenterSquareCustomSize(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeCenterSquare)
	c.SetSquareSize(80)

	c.Press(pt(250, 250))
	c.Release(pt(250, 250))

	require.Equal(t, 1, c.Len())
	b := c.Annotations()[0].Shape.Bounds()
	assert.Equal(t, 80.0, b.Width)
	assert.Equal(t, 80.0, b.Height)
}

func TestZeroMovementDragStillCreatesRecord(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)

	c.Press(pt(100, 200))
	c.Release(pt(100, 200))

	require.Equal(t, 1, c.Len())
	assert.True(t, c.Annotations()[0].Shape.Bounds().Empty())
}

func TestMoveOutsideRegionAbortsDrag(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)

	c.Press(pt(100, 200))
	require.True(t, c.Dragging())
	c.Move(pt(100, 50)) // above the letterboxed image
	assert.False(t, c.Dragging())
	c.Release(pt(100, 50))

	assert.Equal(t, 0, c.Len())
}

func TestPressOutsideRegionIsIgnored(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)

	c.Press(pt(250, 10))
	c.Release(pt(250, 200))

	assert.Equal(t, 0, c.Len())
}

func TestEventsWithoutImageAreSkipped(t *testing.T) {
	c := New()
	c.Resize(geometry.NewSize(500, 500))
	c.SetDrawingMode(ModeRectangle)

	c.Press(pt(100, 100))
	c.Move(pt(200, 200))
	c.Release(pt(200, 200))

	assert.Equal(t, 0, c.Len())
	_, ok := c.Preview()
	assert.False(t, ok)
}

func TestOnAddedReceivesListAndTag(t *testing.T) {
	c := newTestCanvas(t)
	c.Tag = "main"
	c.SetDrawingMode(ModeRectangle)

	var got []Annotation
	var gotTag string
	c.OnAdded = func(anns []Annotation, tag string) {
		got = anns
		gotTag = tag
	}
	drag(c, pt(10, 130), pt(20, 140))
	drag(c, pt(30, 130), pt(40, 140))

	assert.Len(t, got, 2)
	assert.Equal(t, "main", gotTag)
}

func TestTopmostRectangleWinsSelection(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	for i := 0; i < 3; i++ {
		drag(c, pt(100, 200), pt(200, 300))
	}

	var selected []int
	c.OnSelected = func(i int, _ string) { selected = append(selected, i) }
	c.SetDrawingMode(ModeNone)
	c.Press(pt(150, 250))

	assert.Equal(t, 2, c.Selected())
	assert.Equal(t, []int{2}, selected)
}

func TestSelectionMissClearsSelection(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	drag(c, pt(100, 200), pt(200, 300))
	c.SetDrawingMode(ModeNone)

	c.Press(pt(150, 250))
	require.Equal(t, 0, c.Selected())
	c.Press(pt(400, 150))
	assert.Equal(t, NoSelection, c.Selected())

	c.Press(pt(150, 250))
	require.Equal(t, 0, c.Selected())
	c.Press(pt(150, 10)) // outside region
	assert.Equal(t, NoSelection, c.Selected())
	assert.Equal(t, 1, c.Len())
}

func TestCircleAndLineAreNotHitTestable(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeCircle)
	drag(c, pt(100, 200), pt(200, 300))
	c.SetDrawingMode(ModeLine)
	drag(c, pt(100, 200), pt(200, 300))

	c.SetDrawingMode(ModeNone)
	c.Press(pt(150, 250))

	assert.Equal(t, NoSelection, c.Selected())
}

func TestCenterSquareIsHitTestable(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeCenterSquare)
	c.Press(pt(250, 250))
	c.Release(pt(250, 250))

	c.SetDrawingMode(ModeNone)
	c.Press(pt(255, 245))
	assert.Equal(t, 0, c.Selected())
}

func TestSetDrawingModeClearsSelection(t *testing.T) {
	for _, mode := range Modes {
		c := newTestCanvas(t)
		c.SetDrawingMode(ModeRectangle)
		drag(c, pt(100, 200), pt(200, 300))
		require.Equal(t, 0, c.Selected())

		c.SetDrawingMode(mode)
		assert.Equal(t, NoSelection, c.Selected(), mode.String())
	}
}

func TestRemoveLastAnnotationEmptiesList(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	const n = 4
	for i := 0; i < n; i++ {
		drag(c, pt(100, 200), pt(200, 300))
	}
	for i := 0; i < n; i++ {
		assert.True(t, c.RemoveLastAnnotation())
	}

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, NoSelection, c.Selected())
	assert.False(t, c.RemoveLastAnnotation())
}

func TestRemoveLastKeepsEarlierSelection(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	drag(c, pt(100, 200), pt(200, 300))
	drag(c, pt(300, 200), pt(400, 300))
	require.NoError(t, c.Select(0))

	c.RemoveLastAnnotation()
	assert.Equal(t, 0, c.Selected())
}

func TestRemoveAtShiftsSelection(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	for i := 0; i < 3; i++ {
		drag(c, pt(100, 200), pt(200, 300))
	}
	require.NoError(t, c.Select(2))

	require.NoError(t, c.RemoveAt(0))
	assert.Equal(t, 1, c.Selected())

	require.NoError(t, c.RemoveAt(1))
	assert.Equal(t, NoSelection, c.Selected())

	assert.ErrorIs(t, c.RemoveAt(5), ErrIndexOutOfRange)
}

func TestClearAnnotationsEmitsCleared(t *testing.T) {
	c := newTestCanvas(t)
	c.Tag = "t"
	c.SetDrawingMode(ModeRectangle)
	drag(c, pt(100, 200), pt(200, 300))

	var cleared string
	c.OnCleared = func(tag string) { cleared = tag }
	c.ClearAnnotations()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, NoSelection, c.Selected())
	assert.Equal(t, "t", cleared)
}

func TestLiveFrameIgnoredWhileStill(t *testing.T) {
	c := newTestCanvas(t)
	still := c.Image()

	assert.False(t, c.SetImage(image.NewRGBA(image.Rect(0, 0, 64, 64)), false))
	assert.Same(t, still, c.Image())

	c.Thaw()
	assert.True(t, c.SetImage(image.NewRGBA(image.Rect(0, 0, 64, 64)), false))
	assert.False(t, c.Still())
}

func TestSetImageResetsStateUnlessKept(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	drag(c, pt(100, 200), pt(200, 300))
	c.Press(pt(100, 200)) // leave a drag in flight

	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	c.SetImage(img, true, KeepAnnotations())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, NoSelection, c.Selected())
	assert.False(t, c.Dragging())

	c.SetImage(img, true)
	assert.Equal(t, 0, c.Len())
}

func TestSetClassAssignsColorsInFirstSeenOrder(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	for i := 0; i < 3; i++ {
		drag(c, pt(100, 200), pt(200, 300))
	}

	require.NoError(t, c.SetClass(0, "cat"))
	require.NoError(t, c.SetClass(1, "dog"))
	require.NoError(t, c.SetClass(2, "cat"))
	assert.ErrorIs(t, c.SetClass(3, "cow"), ErrIndexOutOfRange)

	assert.Equal(t, colorutil.Palette[0], c.ColorFor("cat"))
	assert.Equal(t, colorutil.Palette[1], c.ColorFor("dog"))
	assert.Equal(t, colorutil.Fallback, c.ColorFor("unseen"))
	assert.Equal(t, []string{"cat", "dog"}, c.Colors().Labels())
}

func TestCancelProvisionalRemovesUnlabelled(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	drag(c, pt(100, 200), pt(200, 300))
	require.NoError(t, c.SetClass(0, "cat"))
	drag(c, pt(100, 200), pt(200, 300))

	assert.Equal(t, 1, c.CancelProvisional())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, NoSelection, c.Selected())
	assert.Equal(t, 0, c.CancelProvisional())
}

func TestSetAnnotationsRestoresAndColors(t *testing.T) {
	c := newTestCanvas(t)
	c.SetAnnotations([]Annotation{
		{Shape: Rectangle{Rect: geometry.NewRect(0, 0, 10, 10)}, Class: "b"},
		{Shape: Rectangle{Rect: geometry.NewRect(5, 5, 10, 10)}, Class: "a"},
	})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"b", "a"}, c.Colors().Labels())
}

func TestPreviewStates(t *testing.T) {
	c := newTestCanvas(t)

	c.SetDrawingMode(ModeCenterSquare)
	_, ok := c.Preview()
	assert.False(t, ok)

	c.Move(pt(250, 250))
	s, ok := c.Preview()
	require.True(t, ok)
	assert.Equal(t, 25.0, s.Bounds().Width) // 50 image px at scale 0.5

	c.Move(pt(250, 10))
	_, ok = c.Preview()
	assert.False(t, ok)

	c.SetDrawingMode(ModeRectangle)
	c.Press(pt(100, 200))
	c.Move(pt(150, 260))
	s, ok = c.Preview()
	require.True(t, ok)
	assert.Equal(t, geometry.NewRect(100, 200, 50, 60), s.Bounds())
}

func TestResizeRefitsAndCancelsDrag(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	c.Press(pt(100, 200))

	c.Resize(geometry.NewSize(1000, 1000))
	assert.False(t, c.Dragging())
	assert.InDelta(t, 1.0, c.Mapping().Scale, 1e-12)
}

func TestSceneIsSnapshot(t *testing.T) {
	c := newTestCanvas(t)
	c.SetDrawingMode(ModeRectangle)
	drag(c, pt(100, 200), pt(200, 300))
	require.NoError(t, c.SetClass(0, "cat"))

	scene := c.Scene()
	c.RemoveLastAnnotation()

	assert.Len(t, scene.Annotations, 1)
	col, ok := scene.ColorFor("cat")
	assert.True(t, ok)
	assert.Equal(t, colorutil.Palette[0], col)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := ParseMode("Polygon")
	assert.False(t, ok)
}
