package capture

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShotName(t *testing.T) {
	ts := time.Date(2025, 1, 2, 13, 4, 5, 7_000_000, time.UTC)
	assert.Equal(t, "shot_20250102_130405_007.jpg", ShotName(ts))

	ts = time.Date(2025, 1, 2, 13, 4, 5, 999_999_999, time.UTC)
	assert.Equal(t, "shot_20250102_130405_999.jpg", ShotName(ts))
}

func TestSaveShot(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	path, err := SaveShot(dir, image.NewRGBA(image.Rect(0, 0, 32, 24)), ts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shot_20250102_030405_000.jpg"), path)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())

	_, err = SaveShot(dir, nil, ts)
	assert.Error(t, err)
}

func TestLatestFrame(t *testing.T) {
	var l LatestFrame
	assert.Nil(t, l.Load())
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	l.Store(img)
	assert.Same(t, img, l.Load())
}

func TestShooterSkipsNilFramesAndLogsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var polls, saves atomic.Int32
	frame := image.NewRGBA(image.Rect(0, 0, 1, 1))
	source := func() image.Image {
		if polls.Add(1)%2 == 1 {
			return nil
		}
		return frame
	}
	save := func(image.Image) error {
		if saves.Add(1) >= 3 {
			cancel()
		}
		return errors.New("disk full")
	}

	log, hook := test.NewNullLogger()
	done := make(chan error, 1)
	go func() { done <- Shooter{Interval: time.Millisecond, Log: log}.Run(ctx, source, save) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shooter did not stop")
	}
	assert.GreaterOrEqual(t, saves.Load(), int32(3))
	assert.GreaterOrEqual(t, polls.Load(), 2*saves.Load()-1)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestShooterRejectsZeroInterval(t *testing.T) {
	err := Shooter{}.Run(context.Background(), func() image.Image { return nil }, func(image.Image) error { return nil })
	assert.Error(t, err)
}

func TestStreamerAdjustment(t *testing.T) {
	s := NewStreamer(DefaultConfig(), nil)
	a, b := s.Adjustment()
	assert.Equal(t, 1.0, a)
	assert.Equal(t, 0.0, b)

	s.SetAdjustment(1.5, 20)
	a, b = s.Adjustment()
	assert.Equal(t, 1.5, a)
	assert.Equal(t, 20.0, b)
}

func TestParseResolution(t *testing.T) {
	r, err := ParseResolution("800x600")
	require.NoError(t, err)
	assert.Equal(t, Resolution{800, 600}, r)
	assert.Equal(t, "800x600", r.String())

	for _, bad := range []string{"", "800", "0x600", "800x600x2", "wide"} {
		_, err := ParseResolution(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfigWithResolution(t *testing.T) {
	cfg := DefaultConfig().WithResolution(Resolution{640, 480})
	assert.Equal(t, Resolution{640, 480}, cfg.Resolution())
	assert.Zero(t, cfg.ProcessWidth, "small captures are not scaled up")

	cfg = cfg.WithResolution(Resolution{1920, 1080})
	assert.Equal(t, 1280, cfg.ProcessWidth)
	assert.Equal(t, 720, cfg.ProcessHeight)
	assert.Equal(t, DefaultConfig(), cfg)
}
