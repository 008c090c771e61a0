package panels

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"snaplabel/internal/app"
	"snaplabel/internal/capture"
	"snaplabel/ui/canvas"
	"snaplabel/ui/prefs"
)

// ErrNoFrame is returned when a shot is requested before the camera has
// delivered a frame.
var ErrNoFrame = errors.New("no camera frame yet")

// Camera owns the live stream and the timed-shot ticker. Frames go to the
// canvas as live images and are kept for shots.
type Camera struct {
	state  *app.State
	canvas *canvas.AnnotationCanvas
	prefs  *prefs.Prefs
	log    logrus.FieldLogger

	latest capture.LatestFrame

	mu         sync.Mutex
	streamer   *capture.Streamer
	stopStream context.CancelFunc
	streamDone chan struct{}
	stopShots  context.CancelFunc
	shotsDone  chan struct{}

	// OnError receives stream failures from the capture goroutine.
	OnError func(error)
}

// NewCamera creates a stopped camera.
func NewCamera(state *app.State, cvs *canvas.AnnotationCanvas, p *prefs.Prefs) *Camera {
	return &Camera{
		state:  state,
		canvas: cvs,
		prefs:  p,
		log:    state.Log().WithField("component", "camera"),
	}
}

// Config returns the capture configuration from the preferences.
func (c *Camera) Config() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Device = c.prefs.Int(prefs.KeyCameraIndex, cfg.Device)
	cfg.Alpha = c.prefs.Float(prefs.KeyCameraAlpha, cfg.Alpha)
	cfg.Beta = c.prefs.Float(prefs.KeyCameraBeta, cfg.Beta)
	if s := c.prefs.String(prefs.KeyCameraResolution); s != "" {
		r, err := capture.ParseResolution(s)
		if err != nil {
			c.log.WithError(err).Warn("ignoring stored resolution")
		} else {
			cfg = cfg.WithResolution(r)
		}
	}
	return cfg
}

// Start opens the configured device. Starting a running camera is a no-op.
func (c *Camera) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopStream != nil {
		return
	}

	cfg := c.Config()
	s := capture.NewStreamer(cfg, c.log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.streamer = s
	c.stopStream = cancel
	c.streamDone = done

	go func() {
		defer close(done)
		err := s.Run(ctx, c.deliver)
		c.mu.Lock()
		if c.streamer == s {
			c.streamer = nil
			c.stopStream = nil
			c.streamDone = nil
		}
		c.mu.Unlock()
		if err != nil && ctx.Err() == nil {
			c.log.WithError(err).Error("camera stopped")
			if c.OnError != nil {
				c.OnError(err)
			}
		}
	}()
	c.log.WithField("device", cfg.Device).Info("camera started")
}

// Stop closes the stream and any timed shots.
func (c *Camera) Stop() {
	c.StopTimedShots()
	if c.stopStreaming() {
		c.log.Info("camera stopped")
	}
}

// stopStreaming cancels the stream and waits until the device is released.
func (c *Camera) stopStreaming() bool {
	c.mu.Lock()
	stop, done := c.stopStream, c.streamDone
	c.stopStream, c.streamer, c.streamDone = nil, nil, nil
	c.mu.Unlock()
	if stop == nil {
		return false
	}
	stop()
	<-done
	return true
}

// SetResolution remembers the capture size and reopens a running stream
// with it.
func (c *Camera) SetResolution(r capture.Resolution) {
	c.prefs.SetString(prefs.KeyCameraResolution, r.String())
	if c.stopStreaming() {
		c.log.WithField("resolution", r.String()).Info("restarting camera")
		c.Start()
	}
}

// Running reports whether the stream is open.
func (c *Camera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopStream != nil
}

// SetAdjustment changes contrast and brightness, live if streaming, and
// remembers them.
func (c *Camera) SetAdjustment(alpha, beta float64) {
	c.prefs.SetFloat(prefs.KeyCameraAlpha, alpha)
	c.prefs.SetFloat(prefs.KeyCameraBeta, beta)
	c.mu.Lock()
	if c.streamer != nil {
		c.streamer.SetAdjustment(alpha, beta)
	}
	c.mu.Unlock()
}

func (c *Camera) deliver(img image.Image) {
	c.latest.Store(img)
	c.canvas.SetImage(img, false)
}

// Freeze holds the latest frame on the canvas as a still image.
func (c *Camera) Freeze() bool {
	img := c.latest.Load()
	if img == nil {
		return false
	}
	return c.canvas.SetImage(img, true)
}

// Live lets the stream replace the canvas image again.
func (c *Camera) Live() {
	c.canvas.Thaw()
}

// TakeShot saves the latest frame into the project.
func (c *Camera) TakeShot() (string, error) {
	img := c.latest.Load()
	if img == nil {
		return "", ErrNoFrame
	}
	return c.state.SaveShot(img, time.Now())
}

// StartTimedShots saves a frame every interval until stopped. A running
// ticker is replaced.
func (c *Camera) StartTimedShots(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("shot interval must be positive")
	}
	c.StopTimedShots()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.stopShots = cancel
	c.shotsDone = done
	c.mu.Unlock()

	shooter := capture.Shooter{Interval: interval, Log: c.log}
	go func() {
		defer close(done)
		_ = shooter.Run(ctx, c.latest.Load, func(img image.Image) error {
			_, err := c.state.SaveShot(img, time.Now())
			return err
		})
	}()
	c.log.WithField("interval", interval).Info("timed shots started")
	return nil
}

// StopTimedShots stops the shot ticker and waits for a shot in progress.
func (c *Camera) StopTimedShots() {
	c.mu.Lock()
	stop, done := c.stopShots, c.shotsDone
	c.stopShots, c.shotsDone = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
	c.log.Info("timed shots stopped")
}

// TimedShots reports whether the shot ticker is running.
func (c *Camera) TimedShots() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopShots != nil
}
