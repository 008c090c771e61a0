package dialogs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"snaplabel/internal/project"
	"snaplabel/internal/train"
)

// SettingsDialog provides a property sheet for the project settings.
type SettingsDialog struct {
	settings project.Settings
	window   fyne.Window

	squareEntry *widget.Entry
	modelEntry  *widget.Entry
	epochsEntry *widget.Entry
	sizeSelect  *widget.Select

	trainEntry *widget.Entry
	valEntry   *widget.Entry
	testEntry  *widget.Entry

	// Callback
	onSave func(project.Settings)
}

// NewSettingsDialog creates a settings dialog initialised from settings.
func NewSettingsDialog(settings project.Settings, window fyne.Window, onSave func(project.Settings)) *SettingsDialog {
	d := &SettingsDialog{settings: settings, window: window, onSave: onSave}

	d.squareEntry = widget.NewEntry()
	d.squareEntry.SetText(strconv.FormatFloat(settings.SquareSize, 'f', -1, 64))
	d.modelEntry = widget.NewEntry()
	d.modelEntry.SetText(settings.PretrainedModel)
	d.epochsEntry = widget.NewEntry()
	d.epochsEntry.SetText(strconv.Itoa(settings.Epochs))

	sizes := make([]string, len(train.ImageSizes))
	for i, s := range train.ImageSizes {
		sizes[i] = strconv.Itoa(s)
	}
	d.sizeSelect = widget.NewSelect(sizes, nil)
	d.sizeSelect.SetSelected(strconv.Itoa(settings.ImageSize))

	d.trainEntry = widget.NewEntry()
	d.trainEntry.SetText(formatRatio(settings.Split.Train))
	d.valEntry = widget.NewEntry()
	d.valEntry.SetText(formatRatio(settings.Split.Val))
	d.testEntry = widget.NewEntry()
	d.testEntry.SetText(formatRatio(settings.Split.Test))
	return d
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Show displays the dialog.
func (d *SettingsDialog) Show() {
	form := widget.NewForm(
		widget.NewFormItem("Square size (px)", d.squareEntry),
		widget.NewFormItem("Pretrained model", d.modelEntry),
		widget.NewFormItem("Epochs", d.epochsEntry),
		widget.NewFormItem("Image size", d.sizeSelect),
		widget.NewFormItem("Train split", d.trainEntry),
		widget.NewFormItem("Val split", d.valEntry),
		widget.NewFormItem("Test split", d.testEntry),
	)

	dlg := dialog.NewCustomConfirm("Project Settings", "Save", "Cancel", form, func(save bool) {
		if !save {
			return
		}
		s, err := d.values()
		if err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if d.onSave != nil {
			d.onSave(s)
		}
	}, d.window)
	dlg.Resize(fyne.NewSize(420, 420))
	dlg.Show()
}

// values parses the form into settings.
func (d *SettingsDialog) values() (project.Settings, error) {
	s := d.settings

	square, err := strconv.ParseFloat(strings.TrimSpace(d.squareEntry.Text), 64)
	if err != nil || square <= 0 {
		return s, fmt.Errorf("square size must be a positive number")
	}
	epochs, err := strconv.Atoi(strings.TrimSpace(d.epochsEntry.Text))
	if err != nil || epochs <= 0 {
		return s, fmt.Errorf("epochs must be a positive whole number")
	}
	size, err := strconv.Atoi(d.sizeSelect.Selected)
	if err != nil {
		return s, fmt.Errorf("choose an image size")
	}
	model := strings.TrimSpace(d.modelEntry.Text)
	if model == "" {
		return s, fmt.Errorf("pretrained model is required")
	}

	var ratios [3]float64
	for i, e := range []*widget.Entry{d.trainEntry, d.valEntry, d.testEntry} {
		v, err := strconv.ParseFloat(strings.TrimSpace(e.Text), 64)
		if err != nil || v < 0 || v > 1 {
			return s, fmt.Errorf("split ratios must be between 0 and 1")
		}
		ratios[i] = v
	}
	if math.Abs(ratios[0]+ratios[1]+ratios[2]-1) > 1e-6 {
		return s, fmt.Errorf("split ratios must add up to 1")
	}

	s.SquareSize = square
	s.PretrainedModel = model
	s.Epochs = epochs
	s.ImageSize = size
	s.Split = project.SplitRatio{Train: ratios[0], Val: ratios[1], Test: ratios[2]}
	return s, nil
}
