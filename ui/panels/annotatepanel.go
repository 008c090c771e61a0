package panels

import (
	"errors"
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"snaplabel/internal/annotation"
	"snaplabel/internal/app"
	imgio "snaplabel/internal/image"
	"snaplabel/internal/project"
	"snaplabel/pkg/geometry"
	"snaplabel/ui/canvas"
	"snaplabel/ui/dialogs"
)

// ErrNoImage is returned when an operation needs an opened image.
var ErrNoImage = errors.New("no image open")

// AnnotatePanel lists the project's images and classes and persists what is
// drawn on the canvas.
type AnnotatePanel struct {
	state     *app.State
	canvas    *canvas.AnnotationCanvas
	window    fyne.Window
	container fyne.CanvasObject
	status    func(string)

	images  []string
	classes []string

	// Open image
	current string
	shown   image.Image
	size    geometry.Size

	selectedClass string

	imageList  *widget.List
	classList  *widget.List
	classEntry *widget.Entry
	imageLabel *widget.Label
	classLabel *widget.Label
}

// NewAnnotatePanel creates the annotate tab and takes over the canvas
// callbacks.
func NewAnnotatePanel(state *app.State, cvs *canvas.AnnotationCanvas) *AnnotatePanel {
	ap := &AnnotatePanel{
		state:  state,
		canvas: cvs,
		status: func(string) {},
	}

	ap.imageLabel = widget.NewLabel("No image open")
	ap.classLabel = widget.NewLabel("")

	ap.imageList = widget.NewList(
		func() int { return len(ap.images) },
		func() fyne.CanvasObject { return widget.NewLabel("shot_00000000_000000_000.jpg") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < len(ap.images) {
				o.(*widget.Label).SetText(ap.images[id])
			}
		},
	)
	ap.imageList.OnSelected = func(id widget.ListItemID) {
		if id >= len(ap.images) {
			return
		}
		if err := ap.OpenImage(ap.images[id]); err != nil {
			ap.showError(err)
		}
	}

	ap.classList = widget.NewList(
		func() int { return len(ap.classes) },
		func() fyne.CanvasObject { return widget.NewLabel("class") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < len(ap.classes) {
				o.(*widget.Label).SetText(ap.classes[id])
			}
		},
	)
	ap.classList.OnSelected = func(id widget.ListItemID) {
		if id < len(ap.classes) {
			ap.SelectClass(ap.classes[id])
		}
	}
	ap.classList.OnUnselected = func(widget.ListItemID) { ap.selectedClass = "" }

	ap.classEntry = widget.NewEntry()
	ap.classEntry.SetPlaceHolder("new class")
	ap.classEntry.OnSubmitted = func(string) { ap.onAddClass() }
	addButton := widget.NewButton("Add", ap.onAddClass)
	deleteClassButton := widget.NewButton("Delete Class", ap.onDeleteClass)

	nextButton := widget.NewButton("Next Image", func() {
		if err := ap.NextImage(); err != nil {
			ap.showError(err)
		}
	})
	deleteImageButton := widget.NewButton("Delete Image", ap.onDeleteImage)
	assignButton := widget.NewButton("Assign Class", func() {
		if err := ap.AssignImageClass(); err != nil {
			ap.showError(err)
		}
	})
	unassignButton := widget.NewButton("Clear Class", func() {
		if err := ap.ClearImageClass(); err != nil {
			ap.showError(err)
		}
	})

	imagesBox := container.NewBorder(
		widget.NewLabelWithStyle("Images", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewGridWithColumns(2, nextButton, deleteImageButton),
		nil, nil,
		ap.imageList,
	)
	classesBox := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Classes", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			container.NewBorder(nil, nil, nil, addButton, ap.classEntry),
		),
		container.NewVBox(
			deleteClassButton,
			ap.imageLabel,
			ap.classLabel,
			container.NewGridWithColumns(2, assignButton, unassignButton),
		),
		nil, nil,
		ap.classList,
	)
	ap.container = container.NewVSplit(imagesBox, classesBox)

	cvs.OnAnnotationAdded = ap.onAnnotationAdded
	cvs.OnAnnotationsCleared = func(string) { ap.persist() }
	cvs.OnAnnotationSelected = func(i int, _ string) {
		anns := ap.canvas.Annotations()
		if i < len(anns) {
			ap.status(fmt.Sprintf("Selected %s %d: %s", anns[i].Shape.Kind(), i+1, anns[i].Class))
		}
	}

	state.On(app.EventProjectLoaded, func(data interface{}) {
		ap.closeImage()
		if p, ok := data.(*project.File); ok && p.Settings.SquareSize > 0 {
			ap.canvas.SetSquareSize(p.Settings.SquareSize)
		}
		ap.reloadImages()
		ap.reloadClasses()
	})
	state.On(app.EventImagesChanged, func(interface{}) { ap.reloadImages() })
	state.On(app.EventClassesChanged, func(interface{}) { ap.reloadClasses() })
	state.On(app.EventSettingsChanged, func(data interface{}) {
		if s, ok := data.(project.Settings); ok && s.SquareSize > 0 {
			ap.canvas.SetSquareSize(s.SquareSize)
		}
	})
	return ap
}

// Container returns the panel container.
func (ap *AnnotatePanel) Container() fyne.CanvasObject {
	return ap.container
}

// SetWindow sets the parent window for dialogs.
func (ap *AnnotatePanel) SetWindow(w fyne.Window) {
	ap.window = w
}

// SetStatus sets the status bar callback.
func (ap *AnnotatePanel) SetStatus(fn func(string)) {
	ap.status = fn
}

// Current returns the open image, or "" when the canvas shows the camera.
func (ap *AnnotatePanel) Current() string {
	return ap.current
}

func (ap *AnnotatePanel) showError(err error) {
	if ap.window != nil {
		dialog.ShowError(err, ap.window)
		return
	}
	ap.status(err.Error())
}

func (ap *AnnotatePanel) detection() bool {
	p := ap.state.Project
	return p != nil && p.Type == project.ObjectDetection
}

func (ap *AnnotatePanel) reloadImages() {
	images, err := ap.state.Images()
	if err != nil && !errors.Is(err, app.ErrNoProject) {
		ap.state.Log().WithError(err).Warn("could not list images")
	}
	sortNatural(images)
	ap.images = images
	ap.imageList.UnselectAll()
	ap.imageList.Refresh()
}

func (ap *AnnotatePanel) reloadClasses() {
	classes, err := ap.state.Classes()
	if err != nil && !errors.Is(err, app.ErrNoProject) {
		ap.state.Log().WithError(err).Warn("could not read classes")
	}
	ap.classes = classes
	found := false
	for _, c := range classes {
		if c == ap.selectedClass {
			found = true
		}
	}
	if !found {
		ap.selectedClass = ""
		ap.classList.UnselectAll()
	}
	ap.classList.Refresh()
}

// SelectClass makes label the class given to new annotations.
func (ap *AnnotatePanel) SelectClass(label string) {
	ap.selectedClass = label
	ap.status("Class: " + label)
}

// OpenImage shows a project image as a still and restores its labels.
func (ap *AnnotatePanel) OpenImage(name string) error {
	layer, err := ap.state.LoadImage(name)
	if err != nil {
		return err
	}
	ap.current = name
	ap.shown = layer.Image
	ap.size = imgio.SizeOf(layer.Image)
	ap.canvas.SetImage(layer.Image, true)

	if ap.detection() {
		anns, err := ap.state.LoadDetection(name, ap.size)
		if err != nil {
			return err
		}
		ap.canvas.SetAnnotations(anns)
	}
	ap.imageLabel.SetText("Image: " + name)
	ap.updateClassLabel()
	ap.status(fmt.Sprintf("Opened %s (%.0fx%.0f)", name, ap.size.Width, ap.size.Height))
	return nil
}

func (ap *AnnotatePanel) closeImage() {
	ap.current = ""
	ap.shown = nil
	ap.size = geometry.Size{}
	ap.canvas.Thaw()
	ap.canvas.SetImage(nil, false)
	ap.imageLabel.SetText("No image open")
	ap.classLabel.SetText("")
}

func (ap *AnnotatePanel) updateClassLabel() {
	if ap.detection() || ap.current == "" {
		ap.classLabel.SetText("")
		return
	}
	if c, ok := ap.state.ImageClass(ap.current); ok {
		ap.classLabel.SetText("Labelled: " + c)
	} else {
		ap.classLabel.SetText("Unlabelled")
	}
}

// NextImage opens the image after the current one, wrapping around.
func (ap *AnnotatePanel) NextImage() error {
	next, err := ap.state.NextImage(ap.current)
	if err != nil {
		return err
	}
	if next == "" {
		return errors.New("project has no images")
	}
	return ap.OpenImage(next)
}

// onProjectImage reports whether the canvas still shows the opened project
// image rather than a camera frame.
func (ap *AnnotatePanel) onProjectImage() bool {
	return ap.current != "" && ap.shown != nil && ap.canvas.Image() == ap.shown
}

// onAnnotationAdded labels the newest record with a class. Records drawn
// without an image open, or left without a class, are removed again.
func (ap *AnnotatePanel) onAnnotationAdded(anns []annotation.Annotation, _ string) {
	if !ap.onProjectImage() || !ap.detection() {
		ap.canvas.RemoveLastAnnotation()
		ap.status("Open a project image to annotate")
		return
	}
	idx := len(anns) - 1
	if ap.selectedClass != "" {
		ap.label(idx, ap.selectedClass)
		return
	}
	if ap.window == nil || len(ap.classes) == 0 {
		ap.canvas.CancelProvisional()
		ap.status("Add and select a class first")
		return
	}
	dialogs.ShowClassPicker(ap.window, ap.classes,
		func(class string) { ap.label(idx, class) },
		func() { ap.canvas.CancelProvisional() },
	)
}

func (ap *AnnotatePanel) label(idx int, class string) {
	if err := ap.canvas.SetClass(idx, class); err != nil {
		ap.showError(err)
		return
	}
	ap.persist()
}

// persist writes the open image's labelled annotations.
func (ap *AnnotatePanel) persist() {
	if !ap.onProjectImage() || !ap.detection() {
		return
	}
	if err := ap.state.SaveDetection(ap.current, ap.canvas.Annotations(), ap.size); err != nil {
		ap.showError(err)
		return
	}
	ap.status(fmt.Sprintf("Saved %d annotations for %s", ap.canvas.Len(), ap.current))
}

// Undo removes the newest annotation and saves.
func (ap *AnnotatePanel) Undo() {
	if ap.canvas.RemoveLastAnnotation() {
		ap.persist()
	}
}

// DeleteSelected removes the selected annotation and saves. It reports
// whether anything was selected.
func (ap *AnnotatePanel) DeleteSelected() bool {
	i := ap.canvas.Selected()
	if i == annotation.NoSelection {
		return false
	}
	if err := ap.canvas.RemoveAt(i); err != nil {
		ap.showError(err)
		return false
	}
	ap.persist()
	return true
}

// Clear removes every annotation of the open image and saves.
func (ap *AnnotatePanel) Clear() {
	ap.canvas.ClearAnnotations()
}

// AssignImageClass labels the open image with the selected class.
func (ap *AnnotatePanel) AssignImageClass() error {
	if ap.current == "" {
		return ErrNoImage
	}
	if ap.selectedClass == "" {
		return errors.New("select a class first")
	}
	if err := ap.state.SetImageClass(ap.current, ap.selectedClass); err != nil {
		return err
	}
	ap.updateClassLabel()
	return nil
}

// ClearImageClass removes the open image's classification label.
func (ap *AnnotatePanel) ClearImageClass() error {
	if ap.current == "" {
		return ErrNoImage
	}
	if err := ap.state.DeleteImageClass(ap.current); err != nil {
		return err
	}
	ap.updateClassLabel()
	return nil
}

// AddClass adds a class to the project.
func (ap *AnnotatePanel) AddClass(name string) error {
	return ap.state.AddClass(name)
}

func (ap *AnnotatePanel) onAddClass() {
	if err := ap.AddClass(ap.classEntry.Text); err != nil {
		ap.showError(err)
		return
	}
	ap.classEntry.SetText("")
}

func (ap *AnnotatePanel) onDeleteClass() {
	if ap.selectedClass == "" {
		return
	}
	name := ap.selectedClass
	dialog.ShowConfirm("Delete Class", fmt.Sprintf("Delete class %q? Existing labels keep it.", name), func(ok bool) {
		if !ok {
			return
		}
		if err := ap.state.DeleteClass(name); err != nil {
			ap.showError(err)
		}
	}, ap.window)
}

// DeleteCurrent removes the open image with its labels.
func (ap *AnnotatePanel) DeleteCurrent() error {
	if ap.current == "" {
		return ErrNoImage
	}
	name := ap.current
	ap.closeImage()
	if err := ap.state.DeleteImages([]string{name}); err != nil {
		return err
	}
	ap.status("Deleted " + name)
	return nil
}

func (ap *AnnotatePanel) onDeleteImage() {
	if ap.current == "" {
		return
	}
	dialog.ShowConfirm("Delete Image", fmt.Sprintf("Delete %s and its labels?", ap.current), func(ok bool) {
		if !ok {
			return
		}
		if err := ap.DeleteCurrent(); err != nil {
			ap.showError(err)
		}
	}, ap.window)
}
