// Package dataset builds timestamped train/val/test datasets from a
// project's labelled images.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout names each dataset build directory.
const TimestampLayout = "20060102_150405"

// Split names, in build order.
const (
	Train = "train"
	Val   = "val"
	Test  = "test"
)

// Splits lists the split names in order.
var Splits = []string{Train, Val, Test}

// ErrNoCandidates is returned when there is nothing to put in a dataset.
var ErrNoCandidates = errors.New("no labelled images to build a dataset from")

// Ratios are the fractions of items assigned to each split.
type Ratios struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultRatios returns the 70/20/10 split.
func DefaultRatios() Ratios {
	return Ratios{Train: 0.7, Val: 0.2, Test: 0.1}
}

// Validate checks that each ratio is in [0,1] and that they sum to 1.
func (r Ratios) Validate() error {
	for _, v := range []float64{r.Train, r.Val, r.Test} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("split ratio %v out of range", v)
		}
	}
	if sum := r.Train + r.Val + r.Test; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("split ratios sum to %v, want 1", sum)
	}
	return nil
}

// Split shuffles a copy of items and cuts it into train, val and test.
// Train gets floor(n*Train) items, val floor(n*Val) and test the rest.
func Split[T any](items []T, r Ratios, rng *rand.Rand) (train, val, test []T) {
	shuffled := append([]T(nil), items...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	nTrain := int(float64(n) * r.Train)
	nVal := int(float64(n) * r.Val)
	if nTrain+nVal > n {
		nVal = n - nTrain
	}
	return shuffled[:nTrain], shuffled[nTrain : nTrain+nVal], shuffled[nTrain+nVal:]
}

// Result summarises a dataset build.
type Result struct {
	Dir    string
	Counts map[string]int
	Failed []string // source files that could not be copied
}

// Total returns the number of items placed in any split.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// prepareTarget returns a fresh <root>/<timestamp> directory, removing any
// previous build with the same name.
func prepareTarget(root string, now time.Time) (string, error) {
	dir := filepath.Join(root, now.Format(TimestampLayout))
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove old dataset: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create dataset dir: %w", err)
	}
	return dir, nil
}

func defaultRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
