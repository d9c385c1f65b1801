// Package capture reads frames from a camera or a still image and hands the
// newest one to the render loop.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sample-calibrator/internal/config"

	"gocv.io/x/gocv"
)

// ErrNoCamera is returned when no probed device index opens.
var ErrNoCamera = errors.New("no camera found")

// Source produces frames into dst. Read returns false when no frame is
// available right now.
type Source interface {
	Read(dst *gocv.Mat) bool
	Size() (width, height int)
	Close() error
}

// Camera wraps an OpenCV video capture device.
type Camera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	width  int
	height int
}

// OpenCamera opens cfg.Index, falling back to probing indices
// 0..cfg.Probe-1.
func OpenCamera(cfg config.CameraConfig, logger *slog.Logger) (*Camera, error) {
	candidates := []int{cfg.Index}
	for i := 0; i < cfg.Probe; i++ {
		if i != cfg.Index {
			candidates = append(candidates, i)
		}
	}

	for _, idx := range candidates {
		vc, err := gocv.OpenVideoCapture(idx)
		if err != nil || !vc.IsOpened() {
			if vc != nil {
				vc.Close()
			}
			logger.Debug("capture.probe_failed", "index", idx, "error", err)
			continue
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
			vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		}
		c := &Camera{
			cap:    vc,
			width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
			height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		}
		logger.Info("capture.camera_opened", "index", idx, "width", c.width, "height", c.height)
		return c, nil
	}
	return nil, fmt.Errorf("%w: tried indices %v", ErrNoCamera, candidates)
}

// Read grabs the next frame.
func (c *Camera) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return false
	}
	return c.cap.Read(dst) && !dst.Empty()
}

// Size returns the negotiated frame size.
func (c *Camera) Size() (int, int) { return c.width, c.height }

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return nil
	}
	err := c.cap.Close()
	c.cap = nil
	return err
}

// Still serves the same image as a stream, for working from a saved frame.
type Still struct {
	img      gocv.Mat
	interval time.Duration
	last     time.Time
}

// OpenStill loads an image file. interval throttles how often Read yields a
// frame.
func OpenStill(path string, interval time.Duration) (*Still, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("read image %s: empty or unsupported", path)
	}
	return &Still{img: img, interval: interval}, nil
}

// Read copies the image into dst at most once per interval.
func (s *Still) Read(dst *gocv.Mat) bool {
	if !s.last.IsZero() && time.Since(s.last) < s.interval {
		time.Sleep(s.interval - time.Since(s.last))
	}
	s.last = time.Now()
	s.img.CopyTo(dst)
	return true
}

// Size returns the image size.
func (s *Still) Size() (int, int) { return s.img.Cols(), s.img.Rows() }

// Close frees the image.
func (s *Still) Close() error { return s.img.Close() }
