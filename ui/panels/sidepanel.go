// Package panels provides UI panels for the application.
package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"snaplabel/internal/app"
	"snaplabel/ui/canvas"
	"snaplabel/ui/prefs"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	container *container.AppTabs

	Project  *ProjectPanel
	Annotate *AnnotatePanel
	Dataset  *DatasetPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, cvs *canvas.AnnotationCanvas, camera *Camera, p *prefs.Prefs) *SidePanel {
	sp := &SidePanel{
		Project:  NewProjectPanel(state, camera, p),
		Annotate: NewAnnotatePanel(state, cvs),
		Dataset:  NewDatasetPanel(state),
	}

	sp.container = container.NewAppTabs(
		container.NewTabItem("Project", sp.Project.Container()),
		container.NewTabItem("Annotate", sp.Annotate.Container()),
		container.NewTabItem("Dataset", sp.Dataset.Container()),
	)
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.Project.SetWindow(w)
	sp.Annotate.SetWindow(w)
	sp.Dataset.SetWindow(w)
}

// SetStatus routes panel messages to the status bar.
func (sp *SidePanel) SetStatus(fn func(string)) {
	sp.Project.SetStatus(fn)
	sp.Annotate.SetStatus(fn)
	sp.Dataset.SetStatus(fn)
}

// ShowAnnotate switches to the annotate tab.
func (sp *SidePanel) ShowAnnotate() {
	sp.container.SelectIndex(1)
}
