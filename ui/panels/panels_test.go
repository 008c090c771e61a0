package panels

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplabel/internal/annotation"
	"snaplabel/internal/app"
	"snaplabel/internal/capture"
	"snaplabel/internal/project"
	"snaplabel/internal/train"
	"snaplabel/ui/canvas"
	"snaplabel/ui/prefs"
)

type fixture struct {
	state  *app.State
	canvas *canvas.AnnotationCanvas
	panel  *AnnotatePanel
	hook   *logtest.Hook
}

// newFixture opens a fresh project of type t with one 100x50 image, a.png,
// shown in a 200x200 canvas.
func newFixture(t *testing.T, typ project.Type) *fixture {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	log, hook := logtest.NewNullLogger()
	state := app.NewState(log)
	cvs := canvas.NewAnnotationCanvas("annotate")
	cvs.Resize(fyne.NewSize(200, 200))
	ap := NewAnnotatePanel(state, cvs)

	require.NoError(t, state.CreateProject("demo", typ, filepath.Join(t.TempDir(), "demo")))
	writeImage(t, state.Project.ImagePath("a.png"))
	state.Emit(app.EventImagesChanged, nil)
	return &fixture{state: state, canvas: cvs, panel: ap, hook: hook}
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, imaging.Save(image.NewRGBA(image.Rect(0, 0, 100, 50)), path))
}

func press(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Button: desktop.MouseButtonPrimary}
}

// drawRect drags image rect (10,10,20,10) on the 100x50 image.
func drawRect(c *canvas.AnnotationCanvas) {
	c.SetDrawingMode(annotation.ModeRectangle)
	c.MouseDown(press(20, 70))
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 90)}})
	c.MouseUp(press(60, 90))
}

func TestNaturalLess(t *testing.T) {
	names := []string{"img10.png", "img2.png", "IMG1.png", "a.png"}
	sortNatural(names)
	assert.Equal(t, []string{"a.png", "IMG1.png", "img2.png", "img10.png"}, names)
	assert.False(t, naturalLess("x", "x"))
	assert.True(t, naturalLess("x", "x1"))
}

func TestAnnotateLabelsWithSelectedClass(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	require.NoError(t, f.panel.AddClass("cat"))
	assert.Equal(t, []string{"a.png"}, f.panel.images)
	assert.Equal(t, []string{"cat"}, f.panel.classes)

	f.panel.SelectClass("cat")
	require.NoError(t, f.panel.OpenImage("a.png"))
	drawRect(f.canvas)

	data, err := os.ReadFile(f.state.Project.LabelPath("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "cat 0.200000 0.300000 0.200000 0.200000\n", string(data))

	require.NoError(t, f.panel.OpenImage("a.png"))
	anns := f.canvas.Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "cat", anns[0].Class)
}

func TestAnnotateWithoutClassCancels(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	require.NoError(t, f.panel.OpenImage("a.png"))
	drawRect(f.canvas)

	assert.Empty(t, f.canvas.Annotations())
	_, err := os.Stat(f.state.Project.LabelPath("a.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestAnnotateLiveFrameRemovesRecord(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	require.NoError(t, f.panel.AddClass("cat"))
	f.panel.SelectClass("cat")
	f.canvas.SetImage(image.NewRGBA(image.Rect(0, 0, 100, 50)), false)

	drawRect(f.canvas)
	assert.Empty(t, f.canvas.Annotations())
}

func TestAnnotateCameraFrameAfterOpenImage(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	require.NoError(t, f.panel.AddClass("cat"))
	f.panel.SelectClass("cat")
	require.NoError(t, f.panel.OpenImage("a.png"))

	f.canvas.Thaw()
	f.canvas.SetImage(image.NewRGBA(image.Rect(0, 0, 100, 50)), true)
	drawRect(f.canvas)

	assert.Empty(t, f.canvas.Annotations())
	_, err := os.Stat(f.state.Project.LabelPath("a.png"))
	assert.True(t, os.IsNotExist(err), "camera frames never write into a project image's labels")
}

func TestUndoAndClearPersist(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	require.NoError(t, f.panel.AddClass("cat"))
	f.panel.SelectClass("cat")
	require.NoError(t, f.panel.OpenImage("a.png"))
	drawRect(f.canvas)
	drawRect(f.canvas)

	labelPath := f.state.Project.LabelPath("a.png")
	data, err := os.ReadFile(labelPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	f.panel.Undo()
	data, err = os.ReadFile(labelPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))

	f.panel.Clear()
	data, err = os.ReadFile(labelPath)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestDeleteSelectedPersists(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	require.NoError(t, f.panel.AddClass("cat"))
	f.panel.SelectClass("cat")
	require.NoError(t, f.panel.OpenImage("a.png"))
	drawRect(f.canvas)
	drawRect(f.canvas)

	require.NoError(t, f.canvas.Select(0))
	assert.True(t, f.panel.DeleteSelected())
	assert.Equal(t, 1, f.canvas.Len())

	data, err := os.ReadFile(f.state.Project.LabelPath("a.png"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))

	f.canvas.SetDrawingMode(annotation.ModeNone)
	assert.False(t, f.panel.DeleteSelected(), "nothing selected")
}

func TestNextImageWraps(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	writeImage(t, f.state.Project.ImagePath("b.png"))

	require.NoError(t, f.panel.NextImage())
	assert.Equal(t, "a.png", f.panel.Current())
	require.NoError(t, f.panel.NextImage())
	assert.Equal(t, "b.png", f.panel.Current())
	require.NoError(t, f.panel.NextImage())
	assert.Equal(t, "a.png", f.panel.Current())
}

func TestClassificationAssign(t *testing.T) {
	f := newFixture(t, project.ImageClassification)
	require.NoError(t, f.panel.AddClass("dog"))

	assert.ErrorIs(t, f.panel.AssignImageClass(), ErrNoImage)
	require.NoError(t, f.panel.OpenImage("a.png"))
	assert.Error(t, f.panel.AssignImageClass(), "no class selected")

	f.panel.SelectClass("dog")
	require.NoError(t, f.panel.AssignImageClass())
	c, ok := f.state.ImageClass("a.png")
	assert.True(t, ok)
	assert.Equal(t, "dog", c)
	assert.Equal(t, "Labelled: dog", f.panel.classLabel.Text)

	require.NoError(t, f.panel.ClearImageClass())
	_, ok = f.state.ImageClass("a.png")
	assert.False(t, ok)

	// Drawing is not used for classification projects.
	drawRect(f.canvas)
	assert.Empty(t, f.canvas.Annotations())
}

func TestDeleteCurrent(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	assert.ErrorIs(t, f.panel.DeleteCurrent(), ErrNoImage)

	require.NoError(t, f.panel.OpenImage("a.png"))
	require.NoError(t, f.panel.DeleteCurrent())
	assert.Equal(t, "", f.panel.Current())
	assert.Nil(t, f.canvas.Image())
	assert.Empty(t, f.panel.images)
}

func TestCameraShots(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	p := prefs.LoadFrom(filepath.Join(t.TempDir(), "prefs.json"))
	cam := NewCamera(f.state, f.canvas, p)

	_, err := cam.TakeShot()
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.False(t, cam.Freeze())

	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))
	cam.deliver(frame)
	assert.Same(t, frame, f.canvas.Image())

	path, err := cam.TakeShot()
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.True(t, cam.Freeze())
	assert.True(t, f.canvas.Still())
	cam.deliver(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.Same(t, frame, f.canvas.Image(), "live frames are dropped while frozen")
	cam.Live()
	assert.False(t, f.canvas.Still())
}

func TestCameraTimedShots(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	cam := NewCamera(f.state, f.canvas, prefs.LoadFrom(filepath.Join(t.TempDir(), "prefs.json")))
	assert.Error(t, cam.StartTimedShots(0))

	cam.deliver(image.NewRGBA(image.Rect(0, 0, 16, 16)))
	require.NoError(t, cam.StartTimedShots(5*time.Millisecond))
	assert.True(t, cam.TimedShots())

	require.Eventually(t, func() bool {
		images, _ := f.state.Images()
		return len(images) > 1
	}, 5*time.Second, 10*time.Millisecond)

	cam.Stop()
	assert.False(t, cam.TimedShots())
	assert.False(t, cam.Running())
}

func TestCameraConfigFromPrefs(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	p := prefs.LoadFrom(filepath.Join(t.TempDir(), "prefs.json"))
	cam := NewCamera(f.state, f.canvas, p)
	assert.Equal(t, 1.0, cam.Config().Alpha)

	p.SetInt(prefs.KeyCameraIndex, 2)
	cam.SetAdjustment(1.5, 10)
	cfg := cam.Config()
	assert.Equal(t, 2, cfg.Device)
	assert.Equal(t, 1.5, cfg.Alpha)
	assert.Equal(t, 10.0, cfg.Beta)
	assert.Equal(t, capture.Resolution{Width: 1920, Height: 1080}, cfg.Resolution())

	cam.SetResolution(capture.Resolution{Width: 800, Height: 600})
	assert.Equal(t, "800x600", p.String(prefs.KeyCameraResolution))
	assert.Equal(t, capture.Resolution{Width: 800, Height: 600}, cam.Config().Resolution())
	assert.False(t, cam.Running(), "a stopped camera stays stopped")

	p.SetString(prefs.KeyCameraResolution, "huge")
	assert.Equal(t, capture.Resolution{Width: 1920, Height: 1080}, cam.Config().Resolution())
}

func TestProjectPanelAppliesResolution(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	p := prefs.LoadFrom(filepath.Join(t.TempDir(), "prefs.json"))
	pp := NewProjectPanel(f.state, NewCamera(f.state, f.canvas, p), p)
	assert.Equal(t, "1920x1080", pp.resSelect.Selected)

	pp.resSelect.SetSelected("640x480")
	require.NoError(t, pp.applyResolution())
	assert.Equal(t, "640x480", p.String(prefs.KeyCameraResolution))
	assert.Zero(t, pp.camera.Config().ProcessWidth)
}

func TestDatasetPanelBuildAndTrain(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	dp := NewDatasetPanel(f.state)

	require.NoError(t, f.panel.AddClass("cat"))
	f.panel.SelectClass("cat")
	require.NoError(t, f.panel.OpenImage("a.png"))
	drawRect(f.canvas)

	res, err := dp.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
	require.NotEmpty(t, dp.datasetSelect.Selected)

	var got train.Params
	dp.runTraining = func(ctx context.Context, p train.Params, log logrus.FieldLogger) error {
		got = p
		log.Info("epoch 1/100")
		return nil
	}
	dp.titleEntry.SetText("first")

	done := make(chan error, 1)
	require.NoError(t, dp.StartTraining(func(err error) { done <- err }))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("training did not finish")
	}

	assert.Equal(t, train.Detect, got.Task)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, "data.yaml", filepath.Base(got.Data))
	assert.Equal(t, f.state.Project.TrainedModelsDir(), got.Project)
	assert.Contains(t, dp.logView.Text(), "epoch 1/100")
	assert.False(t, dp.Training())
}

func TestDatasetPanelNeedsDataset(t *testing.T) {
	f := newFixture(t, project.ObjectDetection)
	dp := NewDatasetPanel(f.state)
	assert.Error(t, dp.StartTraining(nil))
}

func TestLogViewKeepsTail(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	v := NewLogView()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.AddHook(v)
	log.Warn("low disk")
	assert.Equal(t, "WARNING: low disk", v.Text())

	for i := 0; i < logViewLines+10; i++ {
		v.Append("line")
	}
	assert.Equal(t, logViewLines, strings.Count(v.Text(), "\n")+1)

	v.Clear()
	assert.Empty(t, v.Text())
}
