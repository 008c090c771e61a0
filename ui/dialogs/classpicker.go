package dialogs

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ShowClassPicker asks which class a new annotation belongs to. onPick
// receives the chosen class; onCancel runs when the user dismisses the
// dialog or confirms without a choice.
func ShowClassPicker(window fyne.Window, classes []string, onPick func(string), onCancel func()) {
	sel := widget.NewSelect(classes, nil)
	if len(classes) == 1 {
		sel.SetSelected(classes[0])
	}
	form := []*widget.FormItem{widget.NewFormItem("Class", sel)}
	dialog.ShowForm("Label Annotation", "OK", "Cancel", form, func(ok bool) {
		if !ok || sel.Selected == "" {
			if onCancel != nil {
				onCancel()
			}
			return
		}
		if onPick != nil {
			onPick(sel.Selected)
		}
	}, window)
}
