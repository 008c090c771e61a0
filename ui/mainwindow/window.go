// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"snaplabel/internal/annotation"
	"snaplabel/internal/app"
	"snaplabel/internal/dataset"
	"snaplabel/internal/project"
	"snaplabel/internal/version"
	"snaplabel/ui/canvas"
	"snaplabel/ui/panels"
	"snaplabel/ui/prefs"
)

const appTitle = "SnapLabel"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.AnnotationCanvas
	camera    *panels.Camera
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	modeSelect   *widget.Select
	freezeButton *widget.Button
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.SetCloseIntercept(mw.onClose)
	mw.Resize(fyne.NewSize(1280, 800))

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewAnnotationCanvas("main")
	mw.camera = panels.NewCamera(mw.state, mw.canvas, mw.prefs)

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas, mw.camera, mw.prefs)
	mw.sidePanel.SetWindow(mw.Window)
	mw.sidePanel.SetStatus(mw.updateStatus)

	mw.statusBar = widget.NewLabel("Ready")

	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil,                // bottom
		nil,                // left
		nil,                // right
		mw.canvas,          // center
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)
}

// createToolbar creates the drawing toolbar.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	modes := make([]string, len(annotation.Modes))
	for i, m := range annotation.Modes {
		modes[i] = m.String()
	}
	mw.modeSelect = widget.NewSelect(modes, func(selected string) {
		if m, ok := annotation.ParseMode(selected); ok {
			mw.canvas.SetDrawingMode(m)
			mw.updateStatus("Tool: " + mw.canvas.Mode().String())
		}
	})
	mw.modeSelect.SetSelected(annotation.ModeCenterSquare.String())

	undoBtn := widget.NewButton("Undo", mw.sidePanel.Annotate.Undo)
	clearBtn := widget.NewButton("Clear", mw.onClear)
	nextBtn := widget.NewButton("Next", mw.onNextImage)
	mw.freezeButton = widget.NewButton("Freeze", mw.onToggleFreeze)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		mw.modeSelect,
		undoBtn,
		clearBtn,
		nextBtn,
		widget.NewSeparator(),
		mw.freezeButton,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Project...", mw.sidePanel.Project.ShowNewProject),
		fyne.NewMenuItem("Open Project...", mw.sidePanel.Project.ShowOpenProject),
		fyne.NewMenuItem("Open Last Project", mw.RestoreLastProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Project Settings...", mw.sidePanel.Project.ShowSettings),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", mw.onClose),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.sidePanel.Annotate.Undo),
		fyne.NewMenuItem("Delete Selected", func() {
			if !mw.sidePanel.Annotate.DeleteSelected() {
				mw.updateStatus("Select an annotation with the Select tool first")
			}
		}),
		fyne.NewMenuItem("Clear Annotations", mw.onClear),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Next Image", mw.onNextImage),
	)

	cameraMenu := fyne.NewMenu("Camera",
		fyne.NewMenuItem("Start", mw.camera.Start),
		fyne.NewMenuItem("Stop", mw.camera.Stop),
		fyne.NewMenuItem("Take Shot", mw.onTakeShot),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, cameraMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		if p, ok := data.(*project.File); ok {
			mw.SetTitle(fmt.Sprintf("%s - %s (%s)", appTitle, p.Name, p.Type))
		}
		mw.syncFreezeButton()
	})

	mw.state.On(app.EventDatasetBuilt, func(data interface{}) {
		if res, ok := data.(dataset.Result); ok {
			mw.updateStatus(fmt.Sprintf("Dataset built with %d images", res.Total()))
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// OpenProject opens a project file, e.g. one given on the command line.
func (mw *MainWindow) OpenProject(path string) error {
	return mw.sidePanel.Project.OpenProject(path)
}

// RestoreLastProject reopens the project used last time, if any.
func (mw *MainWindow) RestoreLastProject() {
	path := mw.prefs.String(prefs.KeyLastProject)
	if path == "" {
		return
	}
	if err := mw.OpenProject(path); err != nil {
		mw.state.Log().WithError(err).WithField("project", path).Warn("could not reopen last project")
		mw.updateStatus("Could not reopen " + path)
	}
}

func (mw *MainWindow) syncFreezeButton() {
	if mw.canvas.Still() {
		mw.freezeButton.SetText("Live")
	} else {
		mw.freezeButton.SetText("Freeze")
	}
}

func (mw *MainWindow) onToggleFreeze() {
	if mw.canvas.Still() {
		mw.camera.Live()
		mw.updateStatus("Live")
	} else if !mw.camera.Freeze() {
		mw.updateStatus("No camera frame to freeze")
	} else {
		mw.updateStatus("Frozen")
	}
	mw.syncFreezeButton()
}

func (mw *MainWindow) onNextImage() {
	if err := mw.sidePanel.Annotate.NextImage(); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.sidePanel.ShowAnnotate()
	mw.syncFreezeButton()
}

func (mw *MainWindow) onClear() {
	if mw.canvas.Len() == 0 {
		return
	}
	dialog.ShowConfirm("Clear Annotations", "Remove every annotation on this image?", func(ok bool) {
		if ok {
			mw.sidePanel.Annotate.Clear()
		}
	}, mw.Window)
}

func (mw *MainWindow) onTakeShot() {
	path, err := mw.camera.TakeShot()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus("Saved " + path)
}

func (mw *MainWindow) onClose() {
	mw.camera.Stop()
	mw.sidePanel.Dataset.StopTraining()
	if err := mw.prefs.Save(); err != nil {
		mw.state.Log().WithError(err).Warn("could not save preferences")
	}
	mw.Close()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Capture images from a camera, annotate them,\n"+
			"build YOLO datasets and train models.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
