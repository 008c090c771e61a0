package mainwindow

import (
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplabel/internal/annotation"
	"snaplabel/internal/app"
	"snaplabel/internal/project"
	"snaplabel/ui/prefs"
)

func newTestWindow(t *testing.T) (*MainWindow, *prefs.Prefs, *logtest.Hook) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	log, hook := logtest.NewNullLogger()
	p := prefs.LoadFrom(filepath.Join(t.TempDir(), "preferences.json"))
	return New(a, app.NewState(log), p), p, hook
}

func TestWindowTitleFollowsProject(t *testing.T) {
	mw, p, _ := newTestWindow(t)
	assert.Equal(t, appTitle, mw.Title())

	dir := filepath.Join(t.TempDir(), "demo")
	pf, err := project.Create("demo", project.ObjectDetection, dir)
	require.NoError(t, err)

	require.NoError(t, mw.OpenProject(pf.Path()))
	assert.Equal(t, "SnapLabel - demo (Object Detection)", mw.Title())
	assert.Equal(t, pf.Path(), p.String(prefs.KeyLastProject))
	assert.Equal(t, "Freeze", mw.freezeButton.Text)
}

func TestRestoreLastProjectMissingFile(t *testing.T) {
	mw, p, hook := newTestWindow(t)
	p.SetString(prefs.KeyLastProject, filepath.Join(t.TempDir(), "gone.json"))

	mw.RestoreLastProject()
	assert.Equal(t, appTitle, mw.Title())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "could not reopen last project", hook.LastEntry().Message)
	assert.Contains(t, mw.statusBar.Text, "Could not reopen")
}

func TestWindowStartsInCenterSquareMode(t *testing.T) {
	mw, _, _ := newTestWindow(t)
	assert.Equal(t, annotation.ModeCenterSquare, mw.canvas.Mode())
	assert.Equal(t, "Center Square", mw.modeSelect.Selected)
}

func TestModeSelectSetsCanvasMode(t *testing.T) {
	mw, _, _ := newTestWindow(t)
	mw.modeSelect.SetSelected("Rectangle")
	assert.Equal(t, "Rectangle", mw.canvas.Mode().String())
	assert.Equal(t, "Tool: Rectangle", mw.statusBar.Text)
}
