package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ClassificationOptions configures BuildClassification.
type ClassificationOptions struct {
	Source  string            // directory holding the images
	Target  string            // dataset root; the build goes in <Target>/<timestamp>
	Entries map[string]string // image file name to class
	Ratios  Ratios
	Rand    *rand.Rand
	Now     time.Time
	Log     logrus.FieldLogger
}

// BuildClassification creates an image classification dataset in the
// image-folder layout <split>/<class>/<file>, and records each split's
// entries as <split>.json. Images missing from Source are reported in
// Result.Failed.
func BuildClassification(opts ClassificationOptions) (Result, error) {
	if err := opts.Ratios.Validate(); err != nil {
		return Result{}, err
	}
	if len(opts.Entries) == 0 {
		return Result{}, ErrNoCandidates
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	keys := make([]string, 0, len(opts.Entries))
	for k := range opts.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dir, err := prepareTarget(opts.Target, now)
	if err != nil {
		return Result{}, err
	}

	train, val, test := Split(keys, opts.Ratios, defaultRand(opts.Rand))
	res := Result{Dir: dir, Counts: make(map[string]int)}
	for i, set := range [][]string{train, val, test} {
		split := Splits[i]
		entries := make(map[string]string, len(set))
		for _, file := range set {
			class := opts.Entries[file]
			entries[file] = class
			dst := filepath.Join(dir, split, class, file)
			if err := copyFile(filepath.Join(opts.Source, file), dst); err != nil {
				log.WithField("image", file).Warnf("skipping: %v", err)
				res.Failed = append(res.Failed, file)
				continue
			}
			res.Counts[split]++
		}
		if err := os.MkdirAll(filepath.Join(dir, split), 0755); err != nil {
			return res, err
		}
		if err := writeJSON(filepath.Join(dir, split+".json"), entries); err != nil {
			return res, err
		}
	}

	log.WithFields(logrus.Fields{
		"dir":    dir,
		"train":  res.Counts[Train],
		"val":    res.Counts[Val],
		"test":   res.Counts[Test],
		"failed": len(res.Failed),
	}).Info("classification dataset built")
	return res, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// List returns the dataset build names under root, newest first.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
