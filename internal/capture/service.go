package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sample-calibrator/internal/frameslot"

	"gocv.io/x/gocv"
)

const captureStatsLogInterval = 5 * time.Second

// Frame is one captured image. The receiver owns Mat and must Close it.
type Frame struct {
	Mat        gocv.Mat
	Seq        uint64
	CapturedAt time.Time
}

// Close releases the frame's pixels.
func (f Frame) Close() { f.Mat.Close() }

// Stats reports capture instrumentation.
type Stats struct {
	Captures   uint64
	Skipped    uint64
	Dropped    uint64
	AvgCapture time.Duration
	Sequence   uint64
}

// Service reads from a Source on its own goroutine. Frames are delivered
// through a one-element slot; a frame the consumer has not taken is replaced
// by the next one.
type Service struct {
	src    Source
	flip   bool
	logger *slog.Logger
	slot   *frameslot.Slot[Frame]

	running      atomic.Bool
	stopCh       chan struct{}
	wg           sync.WaitGroup
	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
}

// NewService wraps src. When flip is set every frame is rotated 180 degrees.
func NewService(src Source, flip bool, logger *slog.Logger) *Service {
	return &Service{
		src:    src,
		flip:   flip,
		logger: logger,
		slot:   frameslot.New(func(f Frame) { f.Close() }),
	}
}

// Frames returns the channel the newest frame arrives on.
func (s *Service) Frames() <-chan Frame { return s.slot.C() }

// Size returns the source frame size.
func (s *Service) Size() (int, int) { return s.src.Size() }

// Start launches the capture loop.
func (s *Service) Start() {
	if s.running.Swap(true) {
		return
	}
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopCh)
}

// Stop ends the capture loop, waits for it and frees any pending frame. The
// source itself stays open.
func (s *Service) Stop() {
	if !s.running.Swap(false) {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.slot.Drain()
}

// Stats returns capture counters.
func (s *Service) Stats() Stats {
	captures := s.captures.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(s.captureNanos.Load() / captures)
	}
	return Stats{
		Captures:   captures,
		Skipped:    s.skipped.Load(),
		Dropped:    s.slot.Dropped(),
		AvgCapture: avg,
		Sequence:   s.sequence.Load(),
	}
}

func (s *Service) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	logTicker := time.NewTicker(captureStatsLogInterval)
	defer logTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-logTicker.C:
			s.logStats()
		default:
		}

		start := time.Now()
		mat := gocv.NewMat()
		if !s.src.Read(&mat) {
			mat.Close()
			s.skipped.Add(1)
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if s.flip {
			gocv.Flip(mat, &mat, -1)
		}

		s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
		s.captures.Add(1)
		s.slot.Put(Frame{Mat: mat, Seq: s.sequence.Add(1), CapturedAt: time.Now()})
	}
}

func (s *Service) logStats() {
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"skipped", stats.Skipped,
		"dropped", stats.Dropped,
		"avg_capture", stats.AvgCapture,
	)
}
