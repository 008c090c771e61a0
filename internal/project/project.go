// Package project provides project file handling and the on-disk layout of
// a labelling project.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	imgio "snaplabel/internal/image"
)

// Type is the kind of model a project trains.
type Type string

const (
	ObjectDetection     Type = "Object Detection"
	ImageClassification Type = "Image Classification"
)

// Types lists the supported project types.
var Types = []Type{ObjectDetection, ImageClassification}

// ParseType converts a display string to a Type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown project type %q", s)
}

// Layout names inside the project directory.
const (
	DataDirName          = "data"
	DatasetDirName       = "dataset"
	TrainedModelsDirName = "trained_models"
	ClassesFileName      = "classes.lst"
	InfoFileName         = "annotation_info.json"
)

// File represents a project file (<directory>/<name>.json).
type File struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Directory string    `json:"directory"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`

	// User settings
	Settings Settings `json:"settings"`
}

// Settings holds per-project tunables.
type Settings struct {
	SquareSize      float64    `json:"square_size,omitempty"`
	PretrainedModel string     `json:"pretrained_model,omitempty"`
	Epochs          int        `json:"epochs,omitempty"`
	ImageSize       int        `json:"image_size,omitempty"`
	Split           SplitRatio `json:"split"`
}

// SplitRatio is the train/val/test fraction stored with the project.
type SplitRatio struct {
	Train float64 `json:"train"`
	Val   float64 `json:"val"`
	Test  float64 `json:"test"`
}

// DefaultSettings returns the settings used for new projects.
func DefaultSettings(t Type) Settings {
	model := "yolov8n.pt"
	if t == ImageClassification {
		model = "yolov8n-cls.pt"
	}
	return Settings{
		SquareSize:      50,
		PretrainedModel: model,
		Epochs:          100,
		ImageSize:       640,
		Split:           SplitRatio{Train: 0.7, Val: 0.2, Test: 0.1},
	}
}

// New creates a new project file with default settings.
func New(name string, t Type, dir string) *File {
	now := time.Now()
	return &File{
		Version:   1,
		Name:      name,
		Type:      t,
		Directory: dir,
		Created:   now,
		Modified:  now,
		Settings:  DefaultSettings(t),
	}
}

// Create makes the project directories and writes the project file.
func Create(name string, t Type, dir string) (*File, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("project name is empty")
	}
	if dir == "" {
		return nil, errors.New("project directory is empty")
	}
	p := New(name, t, dir)
	for _, d := range []string{p.DataDir(), p.DatasetDir(), p.TrainedModelsDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("create project: %w", err)
		}
	}
	if err := p.Save(p.Path()); err != nil {
		return nil, err
	}
	return p, nil
}

// Load loads a project from a .json file. A project file without a
// directory is rooted at the file's own directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	if proj.Directory == "" {
		proj.Directory = filepath.Dir(path)
	}
	if _, err := ParseType(string(proj.Type)); err != nil {
		return nil, fmt.Errorf("load project %s: %w", path, err)
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the default project file location.
func (p *File) Path() string {
	return filepath.Join(p.Directory, p.Name+".json")
}

// DataDir holds captured images and their label files.
func (p *File) DataDir() string {
	return filepath.Join(p.Directory, DataDirName)
}

// DatasetDir holds the timestamped dataset builds.
func (p *File) DatasetDir() string {
	return filepath.Join(p.Directory, DatasetDirName)
}

// TrainedModelsDir holds training runs.
func (p *File) TrainedModelsDir() string {
	return filepath.Join(p.Directory, TrainedModelsDirName)
}

// ClassesPath returns the class list path.
func (p *File) ClassesPath() string {
	return filepath.Join(p.DataDir(), ClassesFileName)
}

// InfoPath returns the classification info path.
func (p *File) InfoPath() string {
	return filepath.Join(p.DataDir(), InfoFileName)
}

// LabelPath returns the label file for an image, data/<stem>.txt. The image
// may be given as a bare file name or a path.
func (p *File) LabelPath(image string) string {
	base := filepath.Base(image)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(p.DataDir(), stem+".txt")
}

// ImagePath returns the absolute path of an image file name in data/.
func (p *File) ImagePath(name string) string {
	return filepath.Join(p.DataDir(), filepath.Base(name))
}

// ListImages returns the sorted image file names in data/. A missing data
// directory yields an empty list.
func (p *File) ListImages() ([]string, error) {
	entries, err := os.ReadDir(p.DataDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && imgio.IsSupportedFormat(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
