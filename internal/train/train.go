// Package train runs Ultralytics YOLO training as an external process.
package train

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is the YOLO task name.
type Task string

const (
	Detect   Task = "detect"
	Classify Task = "classify"
)

// Defaults used when a project does not override them.
const (
	DefaultExecutable    = "yolo"
	DefaultDetectModel   = "yolov8n.pt"
	DefaultClassifyModel = "yolov8n-cls.pt"
	DefaultEpochs        = 100
	DefaultImageSize     = 640
	BestWeightsRelPath   = "weights/best.pt"
)

// ErrInvalidParams is wrapped by Validate failures.
var ErrInvalidParams = errors.New("invalid training parameters")

// ImageSizes are the input sizes offered for training.
var ImageSizes = []int{320, 416, 512, 640, 800, 1024, 1280}

// Params describes one training run.
type Params struct {
	Executable string
	Task       Task
	Data       string // data.yaml for detect, dataset directory for classify
	Model      string // pretrained weights
	Epochs     int
	ImageSize  int
	Project    string // output root, e.g. <project>/trained_models
	Name       string // run name under Project
}

// DefaultParams returns default parameters for task.
func DefaultParams(task Task) Params {
	model := DefaultDetectModel
	if task == Classify {
		model = DefaultClassifyModel
	}
	return Params{
		Executable: DefaultExecutable,
		Task:       task,
		Model:      model,
		Epochs:     DefaultEpochs,
		ImageSize:  DefaultImageSize,
	}
}

// Validate checks that the parameters describe a runnable training job.
func (p Params) Validate() error {
	var problems []string
	if p.Task != Detect && p.Task != Classify {
		problems = append(problems, fmt.Sprintf("unknown task %q", p.Task))
	}
	if p.Data == "" {
		problems = append(problems, "no dataset")
	}
	if p.Model == "" {
		problems = append(problems, "no model")
	}
	if p.Epochs <= 0 {
		problems = append(problems, "epochs must be positive")
	}
	if p.ImageSize <= 0 || p.ImageSize%32 != 0 {
		problems = append(problems, "image size must be a positive multiple of 32")
	}
	if p.Name == "" || strings.ContainsAny(p.Name, `/\`) {
		problems = append(problems, "run name must be a plain name")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}
	return nil
}

// Args returns the command-line arguments in Ultralytics key=value form.
func (p Params) Args() []string {
	args := []string{
		string(p.Task), "train",
		"data=" + p.Data,
		"model=" + p.Model,
		"epochs=" + strconv.Itoa(p.Epochs),
		"imgsz=" + strconv.Itoa(p.ImageSize),
	}
	if p.Project != "" {
		args = append(args, "project="+p.Project)
	}
	if p.Name != "" {
		args = append(args, "name="+p.Name)
	}
	return args
}

// WeightsPath returns where the best weights of the run will be written.
func (p Params) WeightsPath() string {
	return filepath.Join(p.Project, p.Name, BestWeightsRelPath)
}

// Run executes the training command and streams its output to log line by
// line. Cancelling ctx kills the process.
func Run(ctx context.Context, p Params, log logrus.FieldLogger) error {
	if err := p.Validate(); err != nil {
		return err
	}
	exe := p.Executable
	if exe == "" {
		exe = DefaultExecutable
	}
	log = log.WithFields(logrus.Fields{"task": p.Task, "run": p.Name})

	cmd := exec.CommandContext(ctx, exe, p.Args()...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	log.Infof("starting %s %s", exe, strings.Join(p.Args(), " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start training: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); pipeLines(stdout, log.WithField("stream", "stdout")) }()
	go func() { defer wg.Done(); pipeLines(stderr, log.WithField("stream", "stderr")) }()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("training cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("training failed: %w", err)
	}
	log.Info("training finished")
	return nil
}

// maxLineSize bounds one output line. Longer lines stop line logging for
// the stream; the rest is discarded so the process never blocks on a full
// pipe.
const maxLineSize = 1024 * 1024

func pipeLines(r io.Reader, log logrus.FieldLogger) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	sc.Split(scanOutputLines)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			log.Info(line)
		}
	}
	if err := sc.Err(); err != nil {
		log.WithError(err).Warn("output no longer logged")
	}
	_, _ = io.Copy(io.Discard, r)
}

// scanOutputLines splits on '\n' and on the bare '\r' progress bars use to
// redraw a line.
func scanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Runs lists the trained run names under a models directory that have best
// weights, sorted by name.
func Runs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list trained models: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), BestWeightsRelPath)); err == nil {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}
