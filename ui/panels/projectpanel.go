package panels

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"snaplabel/internal/app"
	"snaplabel/internal/capture"
	imgio "snaplabel/internal/image"
	"snaplabel/internal/project"
	"snaplabel/ui/dialogs"
	"snaplabel/ui/prefs"
)

const defaultShotInterval = 5

const shotPreviewWidth, shotPreviewHeight = 160, 120

// ProjectPanel opens and creates projects and runs the camera.
type ProjectPanel struct {
	state     *app.State
	camera    *Camera
	prefs     *prefs.Prefs
	window    fyne.Window
	container fyne.CanvasObject
	status    func(string)

	nameLabel   *widget.Label
	typeLabel   *widget.Label
	dirLabel    *widget.Label
	countsLabel *widget.Label

	deviceEntry   *widget.Entry
	alphaEntry    *widget.Entry
	betaEntry     *widget.Entry
	intervalEntry *widget.Entry
	resSelect     *widget.Select
	cameraButton  *widget.Button
	timedCheck    *widget.Check
	shotPreview   *fynecanvas.Image
}

// NewProjectPanel creates the project tab.
func NewProjectPanel(state *app.State, camera *Camera, p *prefs.Prefs) *ProjectPanel {
	pp := &ProjectPanel{
		state:  state,
		camera: camera,
		prefs:  p,
		status: func(string) {},
	}

	pp.nameLabel = widget.NewLabel("No project open")
	pp.typeLabel = widget.NewLabel("")
	pp.dirLabel = widget.NewLabel("")
	pp.dirLabel.Wrapping = fyne.TextWrapBreak
	pp.countsLabel = widget.NewLabel("")

	newButton := widget.NewButton("New Project...", pp.ShowNewProject)
	openButton := widget.NewButton("Open Project...", pp.ShowOpenProject)
	settingsButton := widget.NewButton("Settings...", pp.ShowSettings)

	cfg := camera.Config()
	pp.deviceEntry = widget.NewEntry()
	pp.deviceEntry.SetText(strconv.Itoa(cfg.Device))
	pp.alphaEntry = widget.NewEntry()
	pp.alphaEntry.SetText(strconv.FormatFloat(cfg.Alpha, 'f', -1, 64))
	pp.betaEntry = widget.NewEntry()
	pp.betaEntry.SetText(strconv.FormatFloat(cfg.Beta, 'f', -1, 64))
	resolutions := make([]string, len(capture.Resolutions))
	for i, r := range capture.Resolutions {
		resolutions[i] = r.String()
	}
	pp.resSelect = widget.NewSelect(resolutions, nil)
	pp.resSelect.SetSelected(cfg.Resolution().String())
	pp.intervalEntry = widget.NewEntry()
	pp.intervalEntry.SetText(strconv.Itoa(p.Int(prefs.KeyShotInterval, defaultShotInterval)))

	pp.cameraButton = widget.NewButton("Start Camera", pp.onToggleCamera)
	applyButton := widget.NewButton("Apply", pp.onApplyAdjustment)
	shotButton := widget.NewButton("Take Shot", pp.onTakeShot)
	pp.timedCheck = widget.NewCheck("Timed shots", pp.onTimedShots)
	pp.shotPreview = fynecanvas.NewImageFromImage(nil)
	pp.shotPreview.FillMode = fynecanvas.ImageFillContain
	pp.shotPreview.SetMinSize(fyne.NewSize(shotPreviewWidth, shotPreviewHeight))

	cameraForm := widget.NewForm(
		widget.NewFormItem("Device", pp.deviceEntry),
		widget.NewFormItem("Resolution", pp.resSelect),
		widget.NewFormItem("Contrast (α)", pp.alphaEntry),
		widget.NewFormItem("Brightness (β)", pp.betaEntry),
		widget.NewFormItem("Interval (s)", pp.intervalEntry),
	)

	pp.container = container.NewVScroll(container.NewVBox(
		widget.NewLabelWithStyle("Project", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		pp.nameLabel,
		pp.typeLabel,
		pp.dirLabel,
		pp.countsLabel,
		container.NewGridWithColumns(3, newButton, openButton, settingsButton),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Camera", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		cameraForm,
		container.NewGridWithColumns(2, pp.cameraButton, applyButton),
		container.NewGridWithColumns(2, shotButton, pp.timedCheck),
		pp.shotPreview,
	))

	for _, ev := range []app.EventType{app.EventProjectLoaded, app.EventImagesChanged, app.EventClassesChanged, app.EventSettingsChanged} {
		state.On(ev, func(interface{}) { pp.refresh() })
	}
	camera.OnError = func(err error) {
		pp.cameraButton.SetText("Start Camera")
		pp.status("Camera error: " + err.Error())
	}
	return pp
}

// Container returns the panel container.
func (pp *ProjectPanel) Container() fyne.CanvasObject {
	return pp.container
}

// SetWindow sets the parent window for dialogs.
func (pp *ProjectPanel) SetWindow(w fyne.Window) {
	pp.window = w
}

// SetStatus sets the status bar callback.
func (pp *ProjectPanel) SetStatus(fn func(string)) {
	pp.status = fn
}

func (pp *ProjectPanel) refresh() {
	p := pp.state.Project
	if p == nil {
		pp.nameLabel.SetText("No project open")
		pp.typeLabel.SetText("")
		pp.dirLabel.SetText("")
		pp.countsLabel.SetText("")
		return
	}
	pp.nameLabel.SetText("Name: " + p.Name)
	pp.typeLabel.SetText("Type: " + string(p.Type))
	pp.dirLabel.SetText("Directory: " + p.Directory)

	images, _ := pp.state.Images()
	classes, _ := pp.state.Classes()
	pp.countsLabel.SetText(fmt.Sprintf("%d images, %d classes", len(images), len(classes)))
}

// OpenProject opens a project file and remembers it.
func (pp *ProjectPanel) OpenProject(path string) error {
	if err := pp.state.OpenProject(path); err != nil {
		return err
	}
	pp.remember(path)
	pp.status("Project loaded: " + path)
	return nil
}

func (pp *ProjectPanel) remember(path string) {
	pp.prefs.SetString(prefs.KeyLastProject, path)
	if err := pp.prefs.Save(); err != nil {
		pp.state.Log().WithError(err).Warn("could not save preferences")
	}
}

// ShowNewProject asks for a new project and creates it.
func (pp *ProjectPanel) ShowNewProject() {
	parent := ""
	if last := pp.prefs.String(prefs.KeyLastProject); last != "" {
		parent = filepath.Dir(filepath.Dir(last))
	}
	dialogs.NewNewProjectDialog(pp.window, parent, func(name string, t project.Type, dir string) {
		if err := pp.state.CreateProject(name, t, dir); err != nil {
			dialog.ShowError(err, pp.window)
			return
		}
		pp.remember(pp.state.ProjectPath)
		pp.status("Project created: " + pp.state.ProjectPath)
	}).Show()
}

// ShowOpenProject lets the user pick a project file to open.
func (pp *ProjectPanel) ShowOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		if err := pp.OpenProject(reader.URI().Path()); err != nil {
			dialog.ShowError(err, pp.window)
		}
	}, pp.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if last := pp.prefs.String(prefs.KeyLastProject); last != "" {
		if loc, err := storage.ListerForURI(storage.NewFileURI(filepath.Dir(last))); err == nil {
			fd.SetLocation(loc)
		}
	}
	fd.Show()
}

// ShowSettings edits the open project's settings.
func (pp *ProjectPanel) ShowSettings() {
	p := pp.state.Project
	if p == nil {
		dialog.ShowError(app.ErrNoProject, pp.window)
		return
	}
	dialogs.NewSettingsDialog(p.Settings, pp.window, func(s project.Settings) {
		if err := pp.state.UpdateSettings(func(ps *project.Settings) { *ps = s }); err != nil {
			dialog.ShowError(err, pp.window)
		}
	}).Show()
}

func (pp *ProjectPanel) onToggleCamera() {
	if pp.camera.Running() {
		pp.camera.Stop()
		pp.timedCheck.SetChecked(false)
		pp.cameraButton.SetText("Start Camera")
		pp.status("Camera stopped")
		return
	}
	device, err := strconv.Atoi(pp.deviceEntry.Text)
	if err != nil || device < 0 {
		dialog.ShowError(fmt.Errorf("device must be a camera index"), pp.window)
		return
	}
	pp.prefs.SetInt(prefs.KeyCameraIndex, device)
	if r, err := capture.ParseResolution(pp.resSelect.Selected); err == nil {
		pp.prefs.SetString(prefs.KeyCameraResolution, r.String())
	}
	if err := pp.applyAdjustment(); err != nil {
		dialog.ShowError(err, pp.window)
		return
	}
	pp.camera.Start()
	pp.cameraButton.SetText("Stop Camera")
	pp.status(fmt.Sprintf("Camera %d started", device))
}

func (pp *ProjectPanel) onApplyAdjustment() {
	if err := pp.applyAdjustment(); err != nil {
		dialog.ShowError(err, pp.window)
		return
	}
	if err := pp.applyResolution(); err != nil {
		dialog.ShowError(err, pp.window)
	}
}

// applyResolution switches the capture size, restarting a running stream.
func (pp *ProjectPanel) applyResolution() error {
	r, err := capture.ParseResolution(pp.resSelect.Selected)
	if err != nil {
		return err
	}
	if r != pp.camera.Config().Resolution() {
		pp.camera.SetResolution(r)
	}
	return nil
}

func (pp *ProjectPanel) applyAdjustment() error {
	alpha, err := parseNumber("contrast", pp.alphaEntry.Text)
	if err != nil {
		return err
	}
	beta, err := parseNumber("brightness", pp.betaEntry.Text)
	if err != nil {
		return err
	}
	pp.camera.SetAdjustment(alpha, beta)
	return nil
}

func (pp *ProjectPanel) onTakeShot() {
	path, err := pp.camera.TakeShot()
	if err != nil {
		dialog.ShowError(err, pp.window)
		return
	}
	if img := pp.camera.latest.Load(); img != nil {
		pp.shotPreview.Image = imgio.Thumbnail(img, shotPreviewWidth, shotPreviewHeight)
		pp.shotPreview.Refresh()
	}
	pp.status("Saved " + filepath.Base(path))
}

func (pp *ProjectPanel) onTimedShots(on bool) {
	if !on {
		pp.camera.StopTimedShots()
		return
	}
	if !pp.state.HasProject() {
		pp.timedCheck.SetChecked(false)
		dialog.ShowError(app.ErrNoProject, pp.window)
		return
	}
	secs, err := parsePositive("interval", pp.intervalEntry.Text)
	if err == nil {
		err = pp.camera.StartTimedShots(time.Duration(secs) * time.Second)
	}
	if err != nil {
		pp.timedCheck.SetChecked(false)
		dialog.ShowError(err, pp.window)
		return
	}
	pp.prefs.SetInt(prefs.KeyShotInterval, secs)
	pp.status(fmt.Sprintf("Taking a shot every %ds", secs))
}
