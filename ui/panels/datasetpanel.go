package panels

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"snaplabel/internal/app"
	"snaplabel/internal/dataset"
	"snaplabel/internal/train"
)

// DatasetPanel builds datasets and runs training on them.
type DatasetPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject
	status    func(string)

	resultLabel   *widget.Label
	datasetSelect *widget.Select
	titleEntry    *widget.Entry
	trainButton   *widget.Button
	stopButton    *widget.Button
	modelsLabel   *widget.Label
	logView       *LogView

	mu        sync.Mutex
	stopTrain context.CancelFunc

	// runTraining is replaced in tests.
	runTraining func(ctx context.Context, p train.Params, log logrus.FieldLogger) error
}

// NewDatasetPanel creates the dataset tab.
func NewDatasetPanel(state *app.State) *DatasetPanel {
	dp := &DatasetPanel{
		state:       state,
		status:      func(string) {},
		runTraining: train.Run,
	}

	dp.resultLabel = widget.NewLabel("")
	dp.resultLabel.Wrapping = fyne.TextWrapWord
	buildButton := widget.NewButton("Build Dataset", dp.onBuild)

	dp.datasetSelect = widget.NewSelect(nil, nil)
	dp.datasetSelect.PlaceHolder = "(no datasets)"
	dp.titleEntry = widget.NewEntry()
	dp.titleEntry.SetPlaceHolder("run name")

	dp.trainButton = widget.NewButton("Train", dp.onTrain)
	dp.stopButton = widget.NewButton("Stop", dp.StopTraining)
	dp.stopButton.Disable()

	dp.modelsLabel = widget.NewLabel("")
	dp.modelsLabel.Wrapping = fyne.TextWrapWord
	dp.logView = NewLogView()

	form := widget.NewForm(
		widget.NewFormItem("Dataset", dp.datasetSelect),
		widget.NewFormItem("Run name", dp.titleEntry),
	)

	dp.container = container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Dataset", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			buildButton,
			dp.resultLabel,
			widget.NewSeparator(),
			widget.NewLabelWithStyle("Training", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			form,
			container.NewGridWithColumns(2, dp.trainButton, dp.stopButton),
			dp.modelsLabel,
		),
		nil, nil, nil,
		dp.logView.Container(),
	)

	state.On(app.EventProjectLoaded, func(interface{}) {
		dp.resultLabel.SetText("")
		dp.Refresh()
	})
	state.On(app.EventDatasetBuilt, func(interface{}) { dp.Refresh() })
	return dp
}

// Container returns the panel container.
func (dp *DatasetPanel) Container() fyne.CanvasObject {
	return dp.container
}

// SetWindow sets the parent window for dialogs.
func (dp *DatasetPanel) SetWindow(w fyne.Window) {
	dp.window = w
}

// SetStatus sets the status bar callback.
func (dp *DatasetPanel) SetStatus(fn func(string)) {
	dp.status = fn
}

func (dp *DatasetPanel) showError(err error) {
	if dp.window != nil {
		dialog.ShowError(err, dp.window)
		return
	}
	dp.status(err.Error())
}

// Refresh reloads the dataset and trained-model lists.
func (dp *DatasetPanel) Refresh() {
	datasets, err := dp.state.Datasets()
	if err != nil && !errors.Is(err, app.ErrNoProject) {
		dp.state.Log().WithError(err).Warn("could not list datasets")
	}
	dp.datasetSelect.Options = datasets
	if len(datasets) > 0 {
		dp.datasetSelect.SetSelected(datasets[0])
	} else {
		dp.datasetSelect.ClearSelected()
	}
	dp.datasetSelect.Refresh()

	models, _ := dp.state.TrainedModels()
	if len(models) == 0 {
		dp.modelsLabel.SetText("No trained models")
	} else {
		dp.modelsLabel.SetText("Trained models: " + strings.Join(models, ", "))
	}
}

// Build creates a dataset from the open project.
func (dp *DatasetPanel) Build() (dataset.Result, error) {
	res, err := dp.state.BuildDataset(nil)
	if err != nil {
		return res, err
	}
	dp.resultLabel.SetText(summary(res))
	return res, nil
}

func summary(res dataset.Result) string {
	var parts []string
	for _, s := range dataset.Splits {
		parts = append(parts, fmt.Sprintf("%s %d", s, res.Counts[s]))
	}
	text := fmt.Sprintf("%d images: %s", res.Total(), strings.Join(parts, ", "))
	if len(res.Failed) > 0 {
		text += fmt.Sprintf(" (%d failed)", len(res.Failed))
	}
	return text
}

func (dp *DatasetPanel) onBuild() {
	dp.status("Building dataset...")
	go func() {
		res, err := dp.Build()
		if err != nil {
			dp.showError(err)
			return
		}
		dp.status("Dataset built: " + res.Dir)
	}()
}

// Training reports whether a training run is in progress.
func (dp *DatasetPanel) Training() bool {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.stopTrain != nil
}

// StartTraining trains on the selected dataset in the background. done, if
// set, receives the result.
func (dp *DatasetPanel) StartTraining(done func(error)) error {
	name := dp.datasetSelect.Selected
	if name == "" {
		return errors.New("build or select a dataset first")
	}
	title := strings.TrimSpace(dp.titleEntry.Text)
	if title == "" {
		title = "run_" + time.Now().Format(dataset.TimestampLayout)
	}
	params, err := dp.state.TrainParams(name, title)
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}

	dp.mu.Lock()
	if dp.stopTrain != nil {
		dp.mu.Unlock()
		return errors.New("training already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	dp.stopTrain = cancel
	dp.mu.Unlock()

	log := logrus.New()
	log.AddHook(dp.logView)
	if base, ok := dp.state.Log().(*logrus.Logger); ok {
		log.SetOutput(base.Out)
		log.SetFormatter(base.Formatter)
	}

	dp.logView.Clear()
	dp.trainButton.Disable()
	dp.stopButton.Enable()
	dp.status("Training " + title)

	go func() {
		err := dp.runTraining(ctx, params, log)
		dp.mu.Lock()
		dp.stopTrain = nil
		dp.mu.Unlock()
		cancel()

		dp.trainButton.Enable()
		dp.stopButton.Disable()
		if err != nil {
			dp.status("Training stopped: " + err.Error())
		} else {
			dp.status("Training finished: " + params.WeightsPath())
		}
		dp.Refresh()
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// StopTraining cancels the running training.
func (dp *DatasetPanel) StopTraining() {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.stopTrain != nil {
		dp.stopTrain()
	}
}

func (dp *DatasetPanel) onTrain() {
	if err := dp.StartTraining(nil); err != nil {
		dp.showError(err)
	}
}
