// Package capture streams camera frames and saves still shots.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Config describes the camera and the processing applied to each frame.
type Config struct {
	Device        int
	Width         int // requested capture size
	Height        int
	ProcessWidth  int // frames are resized to this before display
	ProcessHeight int
	Alpha         float64 // contrast gain
	Beta          float64 // brightness offset
}

// DefaultConfig returns a 1080p capture downscaled to 720p with no
// brightness or contrast change.
func DefaultConfig() Config {
	return Config{
		Device:        0,
		Width:         1920,
		Height:        1080,
		ProcessWidth:  1280,
		ProcessHeight: 720,
		Alpha:         1,
		Beta:          0,
	}
}

// Resolution is a requested capture frame size.
type Resolution struct {
	Width, Height int
}

// Resolutions are the capture sizes offered in the camera form.
var Resolutions = []Resolution{
	{640, 480},
	{800, 600},
	{1280, 720},
	{1920, 1080},
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses "WxH".
func ParseResolution(s string) (Resolution, error) {
	var r Resolution
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%dx%d", &r.Width, &r.Height); err != nil {
		return Resolution{}, fmt.Errorf("resolution %q: %w", s, err)
	}
	if r.Width <= 0 || r.Height <= 0 || r.String() != strings.TrimSpace(s) {
		return Resolution{}, fmt.Errorf("resolution %q: want WIDTHxHEIGHT", s)
	}
	return r, nil
}

// Resolution returns the requested capture size.
func (c Config) Resolution() Resolution {
	return Resolution{Width: c.Width, Height: c.Height}
}

// WithResolution requests capture at r. Frames are only ever scaled down to
// the processing size, so a capture no larger than it is shown as is.
func (c Config) WithResolution(r Resolution) Config {
	c.Width, c.Height = r.Width, r.Height
	d := DefaultConfig()
	if r.Width > d.ProcessWidth || r.Height > d.ProcessHeight {
		c.ProcessWidth, c.ProcessHeight = d.ProcessWidth, d.ProcessHeight
	} else {
		c.ProcessWidth, c.ProcessHeight = 0, 0
	}
	return c
}

// ErrReadFrame is returned when the device stops delivering frames.
var ErrReadFrame = errors.New("camera read failed")

// Streamer reads frames from a camera device.
type Streamer struct {
	cfg Config
	log logrus.FieldLogger

	mu    sync.Mutex
	alpha float64
	beta  float64
}

// NewStreamer creates a streamer for cfg.
func NewStreamer(cfg Config, log logrus.FieldLogger) *Streamer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Streamer{
		cfg:   cfg,
		log:   log.WithField("device", cfg.Device),
		alpha: cfg.Alpha,
		beta:  cfg.Beta,
	}
}

// SetAdjustment changes the contrast gain and brightness offset applied to
// subsequent frames. It is safe to call while Run is active.
func (s *Streamer) SetAdjustment(alpha, beta float64) {
	s.mu.Lock()
	s.alpha, s.beta = alpha, beta
	s.mu.Unlock()
}

// Adjustment returns the current contrast gain and brightness offset.
func (s *Streamer) Adjustment() (alpha, beta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha, s.beta
}

// Run opens the device and delivers processed frames to sink until ctx is
// done. sink is called on the Run goroutine.
func (s *Streamer) Run(ctx context.Context, sink func(image.Image)) error {
	cam, err := gocv.VideoCaptureDevice(s.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", s.cfg.Device, err)
	}
	defer cam.Close()

	cam.Set(gocv.VideoCaptureFOURCC, cam.ToCodec("MJPG"))
	if s.cfg.Width > 0 && s.cfg.Height > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.Width))
		cam.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.Height))
	}
	s.log.WithFields(logrus.Fields{
		"width":  cam.Get(gocv.VideoCaptureFrameWidth),
		"height": cam.Get(gocv.VideoCaptureFrameHeight),
	}).Info("camera opened")

	frame := gocv.NewMat()
	defer frame.Close()
	resized := gocv.NewMat()
	defer resized.Close()
	adjusted := gocv.NewMat()
	defer adjusted.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if ok := cam.Read(&frame); !ok {
			return ErrReadFrame
		}
		if frame.Empty() {
			continue
		}

		src := frame
		if s.cfg.ProcessWidth > 0 && s.cfg.ProcessHeight > 0 {
			gocv.Resize(frame, &resized, image.Pt(s.cfg.ProcessWidth, s.cfg.ProcessHeight), 0, 0, gocv.InterpolationArea)
			src = resized
		}
		alpha, beta := s.Adjustment()
		gocv.ConvertScaleAbs(src, &adjusted, alpha, beta)

		img, err := adjusted.ToImage()
		if err != nil {
			s.log.Warnf("frame conversion failed: %v", err)
			continue
		}
		sink(img)
	}
}
