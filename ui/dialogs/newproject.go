// Package dialogs provides application dialogs.
package dialogs

import (
	"errors"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"snaplabel/internal/project"
)

// NewProjectDialog asks for the name, type and location of a new project.
type NewProjectDialog struct {
	window fyne.Window

	nameEntry  *widget.Entry
	typeSelect *widget.Select
	dirEntry   *widget.Entry

	// Callback
	onCreate func(name string, t project.Type, dir string)
}

// NewNewProjectDialog creates the dialog. dir is the initial parent
// directory; the project is created in <dir>/<name>.
func NewNewProjectDialog(window fyne.Window, dir string, onCreate func(name string, t project.Type, dir string)) *NewProjectDialog {
	d := &NewProjectDialog{window: window, onCreate: onCreate}

	d.nameEntry = widget.NewEntry()
	d.nameEntry.SetPlaceHolder("my_project")

	types := make([]string, len(project.Types))
	for i, t := range project.Types {
		types[i] = string(t)
	}
	d.typeSelect = widget.NewSelect(types, nil)
	d.typeSelect.SetSelected(string(project.ObjectDetection))

	d.dirEntry = widget.NewEntry()
	d.dirEntry.SetText(dir)
	return d
}

// Show displays the dialog.
func (d *NewProjectDialog) Show() {
	browse := widget.NewButton("Browse...", func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			d.dirEntry.SetText(uri.Path())
		}, d.window)
	})

	form := widget.NewForm(
		widget.NewFormItem("Name", d.nameEntry),
		widget.NewFormItem("Type", d.typeSelect),
		widget.NewFormItem("Location", container.NewBorder(nil, nil, nil, browse, d.dirEntry)),
	)

	dlg := dialog.NewCustomConfirm("New Project", "Create", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		name, t, dir, err := d.values()
		if err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if d.onCreate != nil {
			d.onCreate(name, t, dir)
		}
	}, d.window)
	dlg.Resize(fyne.NewSize(480, 240))
	dlg.Show()
}

// values validates the form and returns the project directory to create.
func (d *NewProjectDialog) values() (string, project.Type, string, error) {
	name := strings.TrimSpace(d.nameEntry.Text)
	if name == "" {
		return "", "", "", errors.New("project name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", "", "", errors.New("project name must not contain path separators")
	}
	t, err := project.ParseType(d.typeSelect.Selected)
	if err != nil {
		return "", "", "", err
	}
	parent := strings.TrimSpace(d.dirEntry.Text)
	if parent == "" {
		return "", "", "", errors.New("project location is required")
	}
	return name, t, filepath.Join(parent, name), nil
}
