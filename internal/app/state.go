// Package app provides the annotation session: the open project, its label
// artifacts, and the events the UI listens to.
package app

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"snaplabel/internal/annotation"
	"snaplabel/internal/capture"
	"snaplabel/internal/dataset"
	imgio "snaplabel/internal/image"
	"snaplabel/internal/labels"
	"snaplabel/internal/project"
	"snaplabel/internal/train"
	"snaplabel/pkg/geometry"
)

// ErrNoProject is returned by operations that need an open project.
var ErrNoProject = errors.New("no project open")

// ErrDuplicateClass is returned when adding a class that already exists.
var ErrDuplicateClass = errors.New("class already exists")

// EventType identifies different application events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventImagesChanged
	EventClassesChanged
	EventAnnotationsSaved
	EventImageClassChanged
	EventDatasetBuilt
	EventSettingsChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the current project and dispatches events about it.
type State struct {
	mu sync.RWMutex

	// Project
	Project     *project.File
	ProjectPath string

	info *labels.Info
	log  logrus.FieldLogger

	// Event listeners
	listeners map[EventType][]EventListener
}

// NewState creates a new application state.
func NewState(log logrus.FieldLogger) *State {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &State{
		log:       log,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Log returns the session logger.
func (s *State) Log() logrus.FieldLogger { return s.log }

// CreateProject creates a project directory and makes it current.
func (s *State) CreateProject(name string, t project.Type, dir string) error {
	p, err := project.Create(name, t, dir)
	if err != nil {
		return err
	}
	s.setProject(p, p.Path())
	return nil
}

// OpenProject loads a project file and makes it current.
func (s *State) OpenProject(path string) error {
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.DataDir(), 0755); err != nil {
		return fmt.Errorf("open project: %w", err)
	}
	s.setProject(p, path)
	return nil
}

func (s *State) setProject(p *project.File, path string) {
	info := labels.LoadInfo(p.InfoPath(), s.log)
	s.mu.Lock()
	s.Project = p
	s.ProjectPath = path
	s.info = info
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"project": p.Name, "type": p.Type}).Info("project loaded")
	s.Emit(EventProjectLoaded, p)
}

// HasProject reports whether a project is open.
func (s *State) HasProject() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Project != nil
}

func (s *State) current() (*project.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Project == nil {
		return nil, ErrNoProject
	}
	return s.Project, nil
}

// UpdateSettings applies fn to the project settings and saves the project.
func (s *State) UpdateSettings(fn func(*project.Settings)) error {
	s.mu.Lock()
	if s.Project == nil {
		s.mu.Unlock()
		return ErrNoProject
	}
	fn(&s.Project.Settings)
	p, path := s.Project, s.ProjectPath
	err := p.Save(path)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.Emit(EventSettingsChanged, p.Settings)
	return nil
}

// Images lists the project's image file names.
func (s *State) Images() ([]string, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return p.ListImages()
}

// NextImage returns the image after current, wrapping to the first. An
// unknown current yields the first image; an empty project yields "".
func (s *State) NextImage(current string) (string, error) {
	images, err := s.Images()
	if err != nil || len(images) == 0 {
		return "", err
	}
	for i, name := range images {
		if name == current {
			return images[(i+1)%len(images)], nil
		}
	}
	return images[0], nil
}

// LoadImage decodes an image from the data directory.
func (s *State) LoadImage(name string) (*imgio.Layer, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return imgio.Load(p.ImagePath(name))
}

// DeleteImages removes images together with their label files and
// classification entries. Missing files are ignored.
func (s *State) DeleteImages(names []string) error {
	p, err := s.current()
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		for _, path := range []string{p.ImagePath(name), p.LabelPath(name)} {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}

	s.mu.Lock()
	info := s.info
	for _, name := range names {
		info.Delete(filepath.Base(name))
	}
	s.mu.Unlock()
	if info.Len() > 0 || fileExists(info.Path()) {
		if err := info.Save(); err != nil {
			errs = append(errs, err)
		}
	}

	s.Emit(EventImagesChanged, nil)
	return errors.Join(errs...)
}

// SaveShot writes a captured frame into the data directory.
func (s *State) SaveShot(img image.Image, t time.Time) (string, error) {
	p, err := s.current()
	if err != nil {
		return "", err
	}
	path, err := capture.SaveShot(p.DataDir(), img, t)
	if err != nil {
		return "", err
	}
	s.log.WithField("file", filepath.Base(path)).Debug("shot saved")
	s.Emit(EventImagesChanged, path)
	return path, nil
}

// Classes returns the project's class list.
func (s *State) Classes() ([]string, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return labels.ReadClasses(p.ClassesPath())
}

// AddClass appends a class to classes.lst.
func (s *State) AddClass(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid class name %q", name)
	}
	p, err := s.current()
	if err != nil {
		return err
	}
	classes, err := labels.ReadClasses(p.ClassesPath())
	if err != nil {
		return err
	}
	for _, c := range classes {
		if c == name {
			return fmt.Errorf("%q: %w", name, ErrDuplicateClass)
		}
	}
	classes = append(classes, name)
	if err := labels.WriteClasses(p.ClassesPath(), classes); err != nil {
		return err
	}
	s.Emit(EventClassesChanged, classes)
	return nil
}

// DeleteClass removes a class from classes.lst. Labels already using it are
// left alone and are dropped when a dataset is built.
func (s *State) DeleteClass(name string) error {
	p, err := s.current()
	if err != nil {
		return err
	}
	classes, err := labels.ReadClasses(p.ClassesPath())
	if err != nil {
		return err
	}
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	if err := labels.WriteClasses(p.ClassesPath(), kept); err != nil {
		return err
	}
	s.Emit(EventClassesChanged, kept)
	return nil
}

// LoadDetection reads the saved annotations of an image of the given size.
func (s *State) LoadDetection(image string, size geometry.Size) ([]annotation.Annotation, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return labels.Read(p.LabelPath(image), size, s.log)
}

// SaveDetection writes the labelled annotations of an image.
func (s *State) SaveDetection(image string, anns []annotation.Annotation, size geometry.Size) error {
	p, err := s.current()
	if err != nil {
		return err
	}
	if err := labels.Write(p.LabelPath(image), anns, size); err != nil {
		return err
	}
	s.Emit(EventAnnotationsSaved, image)
	return nil
}

// ImageClass returns the classification label of an image.
func (s *State) ImageClass(image string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return "", false
	}
	return s.info.Get(filepath.Base(image))
}

// ImageClasses returns a copy of every classification label.
func (s *State) ImageClasses() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return nil
	}
	return s.info.Entries()
}

// SetImageClass labels an image for classification and saves the info file.
func (s *State) SetImageClass(image, class string) error {
	return s.updateInfo(func(info *labels.Info) { info.Set(filepath.Base(image), class) })
}

// DeleteImageClass removes an image's classification label.
func (s *State) DeleteImageClass(image string) error {
	return s.updateInfo(func(info *labels.Info) { info.Delete(filepath.Base(image)) })
}

// ClearImageClasses removes every classification label.
func (s *State) ClearImageClasses() error {
	return s.updateInfo(func(info *labels.Info) { info.Clear() })
}

func (s *State) updateInfo(fn func(*labels.Info)) error {
	s.mu.Lock()
	if s.info == nil {
		s.mu.Unlock()
		return ErrNoProject
	}
	fn(s.info)
	err := s.info.Save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Emit(EventImageClassChanged, nil)
	return nil
}

// BuildDataset builds a dataset for the current project type. A nil rng
// seeds from the clock.
func (s *State) BuildDataset(rng *rand.Rand) (dataset.Result, error) {
	p, err := s.current()
	if err != nil {
		return dataset.Result{}, err
	}
	ratios := dataset.Ratios{
		Train: p.Settings.Split.Train,
		Val:   p.Settings.Split.Val,
		Test:  p.Settings.Split.Test,
	}
	if ratios == (dataset.Ratios{}) {
		ratios = dataset.DefaultRatios()
	}

	var res dataset.Result
	switch p.Type {
	case project.ObjectDetection:
		classes, err := labels.ReadClasses(p.ClassesPath())
		if err != nil {
			return res, err
		}
		res, err = dataset.BuildDetection(dataset.DetectionOptions{
			Source:  p.DataDir(),
			Target:  p.DatasetDir(),
			Classes: classes,
			Ratios:  ratios,
			Rand:    rng,
			Log:     s.log,
		})
		if err != nil {
			return res, err
		}
	case project.ImageClassification:
		res, err = dataset.BuildClassification(dataset.ClassificationOptions{
			Source:  p.DataDir(),
			Target:  p.DatasetDir(),
			Entries: s.ImageClasses(),
			Ratios:  ratios,
			Rand:    rng,
			Log:     s.log,
		})
		if err != nil {
			return res, err
		}
	default:
		return res, fmt.Errorf("build dataset: unsupported project type %q", p.Type)
	}
	s.Emit(EventDatasetBuilt, res)
	return res, nil
}

// Datasets lists dataset builds, newest first.
func (s *State) Datasets() ([]string, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return dataset.List(p.DatasetDir())
}

// TrainParams returns training parameters for a dataset build and run title,
// filled from the project settings.
func (s *State) TrainParams(datasetName, title string) (train.Params, error) {
	p, err := s.current()
	if err != nil {
		return train.Params{}, err
	}
	task := train.Detect
	data := filepath.Join(p.DatasetDir(), datasetName, "data.yaml")
	if p.Type == project.ImageClassification {
		task = train.Classify
		data = filepath.Join(p.DatasetDir(), datasetName)
	}
	params := train.DefaultParams(task)
	params.Data = data
	params.Project = p.TrainedModelsDir()
	params.Name = title
	if p.Settings.PretrainedModel != "" {
		params.Model = p.Settings.PretrainedModel
	}
	if p.Settings.Epochs > 0 {
		params.Epochs = p.Settings.Epochs
	}
	if p.Settings.ImageSize > 0 {
		params.ImageSize = p.Settings.ImageSize
	}
	return params, nil
}

// TrainedModels lists finished training runs.
func (s *State) TrainedModels() ([]string, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return train.Runs(p.TrainedModelsDir())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
