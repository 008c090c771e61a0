package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	imgio "snaplabel/internal/image"
	"snaplabel/internal/labels"
)

// DataFile is the Ultralytics dataset descriptor written as data.yaml.
type DataFile struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	Names []string `yaml:"names"`
}

// DetectionOptions configures BuildDetection.
type DetectionOptions struct {
	Source  string   // directory holding images and <stem>.txt labels
	Target  string   // dataset root; the build goes in <Target>/<timestamp>
	Classes []string // class names, index is the class id
	Ratios  Ratios
	Rand    *rand.Rand // nil seeds from the clock
	Now     time.Time  // zero uses time.Now
	Log     logrus.FieldLogger
}

type labelPair struct {
	label string
	image string
}

// BuildDetection creates an object detection dataset: every label file with
// a same-stem image is copied into a split, its class names rewritten to
// class ids, and data.yaml is written at the build root.
func BuildDetection(opts DetectionOptions) (Result, error) {
	if err := opts.Ratios.Validate(); err != nil {
		return Result{}, err
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	pairs, err := findPairs(opts.Source, log)
	if err != nil {
		return Result{}, err
	}
	if len(pairs) == 0 {
		return Result{}, ErrNoCandidates
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	dir, err := prepareTarget(opts.Target, now)
	if err != nil {
		return Result{}, err
	}
	for _, s := range Splits {
		for _, sub := range []string{"images", "labels"} {
			if err := os.MkdirAll(filepath.Join(dir, s, sub), 0755); err != nil {
				return Result{}, fmt.Errorf("create split dir: %w", err)
			}
		}
	}

	ids := labels.ClassIDs(opts.Classes)
	train, val, test := Split(pairs, opts.Ratios, defaultRand(opts.Rand))
	res := Result{Dir: dir, Counts: make(map[string]int)}
	for i, set := range [][]labelPair{train, val, test} {
		split := Splits[i]
		for _, p := range set {
			if err := writePair(p, filepath.Join(dir, split), ids, log); err != nil {
				log.WithField("image", p.image).Warnf("skipping: %v", err)
				res.Failed = append(res.Failed, p.image)
				continue
			}
			res.Counts[split]++
		}
	}

	data := DataFile{
		Path:  dir,
		Train: Train + "/images",
		Val:   Val + "/images",
		Test:  Test + "/images",
		Names: append([]string{}, opts.Classes...),
	}
	if err := writeYAML(filepath.Join(dir, "data.yaml"), data); err != nil {
		return res, err
	}

	log.WithFields(logrus.Fields{
		"dir":   dir,
		"train": res.Counts[Train],
		"val":   res.Counts[Val],
		"test":  res.Counts[Test],
	}).Info("detection dataset built")
	return res, nil
}

// findPairs lists label files in dir that have a same-stem image.
func findPairs(dir string, log logrus.FieldLogger) ([]labelPair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	images := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !imgio.IsSupportedFormat(name) {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := images[stem]; !ok {
			images[stem] = name
		}
	}

	var pairs []labelPair
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".txt" {
			continue
		}
		stem := strings.TrimSuffix(name, ".txt")
		img, ok := images[stem]
		if !ok {
			log.WithField("label", name).Debug("no image for label file")
			continue
		}
		pairs = append(pairs, labelPair{label: filepath.Join(dir, name), image: filepath.Join(dir, img)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].label < pairs[j].label })
	return pairs, nil
}

// writePair copies an image into <split>/images and writes its label with
// class ids into <split>/labels.
func writePair(p labelPair, splitDir string, ids map[string]int, log logrus.FieldLogger) error {
	boxes, err := labels.ReadBoxes(p.label, log)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, box := range boxes {
		id, ok := ids[box.Class]
		if !ok {
			log.WithField("label", p.label).WithField("class", box.Class).Warn("dropping box with unknown class")
			continue
		}
		b.WriteString(box.WithID(id))
		b.WriteByte('\n')
	}

	if err := copyFile(p.image, filepath.Join(splitDir, "images", filepath.Base(p.image))); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(splitDir, "labels", filepath.Base(p.label)), []byte(b.String()), 0644)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadDataFile loads a data.yaml descriptor.
func ReadDataFile(path string) (DataFile, error) {
	var d DataFile
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}
