package capture

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// ShotName returns the file name for a shot taken at t, with millisecond
// resolution: shot_20060102_150405_000.jpg.
func ShotName(t time.Time) string {
	return fmt.Sprintf("shot_%s_%03d.jpg", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}

// SaveShot writes img as a JPEG into dir and returns its path.
func SaveShot(dir string, img image.Image, t time.Time) (string, error) {
	if img == nil {
		return "", fmt.Errorf("save shot: no frame")
	}
	path := filepath.Join(dir, ShotName(t))
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return "", fmt.Errorf("save shot: %w", err)
	}
	return path, nil
}

// LatestFrame holds the most recent frame delivered by a Streamer so that
// shots can be taken from another goroutine.
type LatestFrame struct {
	mu  sync.Mutex
	img image.Image
}

// Store records img as the latest frame.
func (l *LatestFrame) Store(img image.Image) {
	l.mu.Lock()
	l.img = img
	l.mu.Unlock()
}

// Load returns the latest frame, or nil before the first one.
func (l *LatestFrame) Load() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.img
}

// Shooter takes a shot every Interval. A single ticker drives all shots;
// starting a second run requires cancelling the first.
type Shooter struct {
	Interval time.Duration
	Log      logrus.FieldLogger
}

// Run polls source every Interval and passes each non-nil frame to save
// until ctx is done. Save errors are logged and do not stop the run.
func (s Shooter) Run(ctx context.Context, source func() image.Image, save func(image.Image) error) error {
	if s.Interval <= 0 {
		return fmt.Errorf("shot interval must be positive, got %v", s.Interval)
	}
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			img := source()
			if img == nil {
				continue
			}
			if err := save(img); err != nil {
				log.Warnf("timed shot failed: %v", err)
			}
		}
	}
}
