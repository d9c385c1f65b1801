// Package app owns the calibration workflow: the session state machine,
// its event listeners and live configuration reload.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/internal/config"
	"sample-calibrator/internal/export"
	"sample-calibrator/internal/input"
	"sample-calibrator/internal/mapping"
	"sample-calibrator/internal/project"
	"sample-calibrator/internal/samples"
	"sample-calibrator/internal/view"
	"sample-calibrator/pkg/geometry"

	"github.com/google/uuid"
)

// Step is one stage of the operator workflow.
type Step int

const (
	StepCalibrate Step = iota
	StepPlacement
	StepCollect
)

func (s Step) String() string {
	switch s {
	case StepCalibrate:
		return "calibrate"
	case StepPlacement:
		return "placement"
	case StepCollect:
		return "collect"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	// ErrStepIncomplete is returned by Next when the current step's
	// requirements are not met yet.
	ErrStepIncomplete = errors.New("step incomplete")
	// ErrNoFrame is returned when pointer input arrives before the frame
	// size is known.
	ErrNoFrame = errors.New("frame size not known yet")
)

// EventType identifies session events.
type EventType int

const (
	EventStepChanged EventType = iota
	EventPointsChanged
	EventRectangleChanged
	EventSamplesChanged
	EventHoverChanged
	EventRequestNameChanged
	EventConfigApplied
	EventSessionLoaded
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Session holds the geometry state of one calibration run. Every pointer
// event, tick and edit runs under the session lock, so a Snapshot never
// observes a partial update.
type Session struct {
	mu sync.Mutex

	id      uuid.UUID
	created time.Time
	cfg     *config.Config
	logger  *slog.Logger

	step    Step
	view    *view.State
	points  *calibration.Set
	rect    *calibration.Rectangle
	mapper  *mapping.Mapper
	samples *samples.Set
	hover   *geometry.RealPoint

	requestName string
	modified    bool

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewSession creates a session in the calibrate step.
func NewSession(cfg *config.Config, logger *slog.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &Session{
		id:        id,
		created:   time.Now(),
		cfg:       cfg,
		logger:    logger.With("session", id.String()),
		points:    calibration.NewSet(),
		samples:   samples.NewSet(cfg.Export.IndexWidth),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type. It must not be
// called with the session lock held.
func (s *Session) Emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

type pending struct {
	event EventType
	data  interface{}
}

func (s *Session) emitAll(events []pending) {
	for _, e := range events {
		s.Emit(e.event, e.data)
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id.String() }

// Step returns the current workflow step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Modified reports whether the session changed since it was last saved.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// SetFrameSize tells the session the source-frame size. The view is
// recreated when the size changes.
func (s *Session) SetFrameSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil && s.view.FrameWidth == width && s.view.FrameHeight == height {
		return
	}
	s.view = view.New(width, height, s.cfg.ViewLimits())
	s.logger.Info("session.frame_size", "width", width, "height", height)
}

// HandlePointer routes one pointer event: view gestures first, then the
// current step's selection behaviour.
func (s *Session) HandlePointer(ev input.Event) error {
	s.mu.Lock()
	if s.view == nil {
		s.mu.Unlock()
		return ErrNoFrame
	}

	var events []pending
	if s.view.Handle(ev) {
		if ev.Kind == input.PointerMove || ev.Kind == input.PointerWheel {
			events = s.updateHoverLocked(ev.Pos, events)
		}
		s.mu.Unlock()
		s.emitAll(events)
		return nil
	}

	switch ev.Kind {
	case input.PointerDown:
		switch ev.Button {
		case input.ButtonPrimary:
			events = s.selectLocked(s.view.ToFrame(ev.Pos), events)
		case input.ButtonSecondary:
			events = s.removeLocked(s.view.ToFrame(ev.Pos), events)
		}
	case input.PointerMove:
		events = s.updateHoverLocked(ev.Pos, events)
	}
	s.mu.Unlock()
	s.emitAll(events)
	return nil
}

func (s *Session) selectLocked(p geometry.FramePoint, events []pending) []pending {
	switch s.step {
	case StepCalibrate:
		if s.points.Add(p) {
			s.modified = true
			s.logger.Debug("session.point_added", "x", p.X, "y", p.Y, "count", s.points.Len())
			events = append(events, pending{EventPointsChanged, s.points.Points()})
		}
	case StepCollect:
		if s.mapper == nil {
			return events
		}
		sm, err := s.samples.Add(p, s.mapper)
		if err != nil {
			s.logger.Debug("session.sample_rejected", "x", p.X, "y", p.Y, "error", err)
			return events
		}
		s.modified = true
		s.logger.Debug("session.sample_added", "file", sm.FileIndex, "x_mm", sm.Real.X, "y_mm", sm.Real.Y)
		events = append(events, pending{EventSamplesChanged, s.samples.All()})
	}
	return events
}

func (s *Session) removeLocked(p geometry.FramePoint, events []pending) []pending {
	radius := s.view.PickRadius(s.cfg.View.PickRadius)
	switch s.step {
	case StepCalibrate:
		if s.points.RemoveNearest(p, radius) {
			s.modified = true
			events = append(events, pending{EventPointsChanged, s.points.Points()})
		}
	case StepCollect:
		if s.samples.RemoveNearest(p, radius) {
			s.modified = true
			events = append(events, pending{EventSamplesChanged, s.samples.All()})
		}
	}
	return events
}

func (s *Session) updateHoverLocked(at geometry.ViewPoint, events []pending) []pending {
	if s.step != StepCollect || s.mapper == nil {
		return events
	}
	var next *geometry.RealPoint
	if mm, err := s.mapper.PixelToMM(s.view.ToFrame(at)); err == nil {
		next = &mm
	}
	if (next == nil) != (s.hover == nil) || (next != nil && *next != *s.hover) {
		s.hover = next
		events = append(events, pending{EventHoverChanged, next})
	}
	return events
}

// ClearHover drops the hover readout, e.g. when the pointer leaves the view.
func (s *Session) ClearHover() {
	s.mu.Lock()
	changed := s.hover != nil
	s.hover = nil
	s.mu.Unlock()
	if changed {
		s.Emit(EventHoverChanged, (*geometry.RealPoint)(nil))
	}
}

// Tick advances per-frame work. On the placement step the rectangle is
// re-solved; a failed solve keeps the last valid rectangle.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.step != StepPlacement {
		s.mu.Unlock()
		return
	}
	events := s.solveLocked(nil)
	s.mu.Unlock()
	s.emitAll(events)
}

func (s *Session) solveLocked(events []pending) []pending {
	tri, ok := s.points.Triangle()
	if !ok {
		return events
	}
	rect, err := s.cfg.Solver().Solve(tri)
	if err != nil {
		s.logger.Debug("session.solve_failed", "error", err)
		return events
	}
	if s.rect != nil && *s.rect == rect {
		return events
	}
	s.rect = &rect
	return append(events, pending{EventRectangleChanged, rect})
}

// Next advances to the following step if the current one is complete.
func (s *Session) Next() error {
	s.mu.Lock()
	var events []pending
	switch s.step {
	case StepCalibrate:
		if !s.points.Complete() {
			s.mu.Unlock()
			return fmt.Errorf("%w: %d of %d points selected", ErrStepIncomplete, s.points.Len(), calibration.PointCount)
		}
		events = s.solveLocked(events)
		events = s.setStepLocked(StepPlacement, events)
	case StepPlacement:
		if s.rect == nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: no valid rectangle", ErrStepIncomplete)
		}
		var err error
		events, err = s.buildMappingLocked(events)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		events = s.setStepLocked(StepCollect, events)
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: collect is the last step", ErrStepIncomplete)
	}
	s.mu.Unlock()
	s.emitAll(events)
	return nil
}

// Back returns to the previous step. Calibration points are kept.
func (s *Session) Back() bool {
	s.mu.Lock()
	var events []pending
	switch s.step {
	case StepPlacement:
		events = s.setStepLocked(StepCalibrate, events)
	case StepCollect:
		events = s.setStepLocked(StepPlacement, events)
	default:
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	s.emitAll(events)
	return true
}

func (s *Session) setStepLocked(step Step, events []pending) []pending {
	s.step = step
	s.hover = nil
	if s.view != nil {
		s.view.Reset()
	}
	s.logger.Info("session.step", "step", step.String())
	return append(events, pending{EventStepChanged, step})
}

// buildMappingLocked builds the mapper from the current rectangle. Samples
// survive only if the corners are unchanged; otherwise their millimetre
// coordinates would be stale.
func (s *Session) buildMappingLocked(events []pending) ([]pending, error) {
	m, err := mapping.Build(s.rect.Corners, s.cfg.Rig.WidthMM, s.cfg.Rig.HeightMM, s.cfg.Rig.Precision)
	if err != nil {
		s.logger.Warn("session.mapping_failed", "error", err)
		return events, err
	}
	if s.mapper == nil || s.mapper.Corners() != m.Corners() {
		if s.samples.Len() > 0 {
			s.samples.Reset()
			events = append(events, pending{EventSamplesChanged, []samples.Sample{}})
		}
	}
	s.mapper = m
	return events, nil
}

// ResetPoints clears the calibration points and any derived rectangle.
func (s *Session) ResetPoints() {
	s.mu.Lock()
	s.points.Reset()
	s.rect = nil
	s.modified = true
	s.mu.Unlock()
	s.Emit(EventPointsChanged, []geometry.FramePoint{})
}

// ResetSamples removes every collected sample.
func (s *Session) ResetSamples() {
	s.mu.Lock()
	s.samples.Reset()
	s.modified = true
	s.mu.Unlock()
	s.Emit(EventSamplesChanged, []samples.Sample{})
}

// ResetView returns the view to minimum zoom.
func (s *Session) ResetView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		s.view.Reset()
	}
}

// SetLabel edits the label of sample i.
func (s *Session) SetLabel(i int, label string) bool {
	return s.editSamples(func(set *samples.Set) bool { return set.SetLabel(i, label) })
}

// SetFileIndex edits the file index of sample i.
func (s *Session) SetFileIndex(i int, index string) bool {
	return s.editSamples(func(set *samples.Set) bool { return set.SetFileIndex(i, index) })
}

// MoveSample swaps sample i with its neighbour above (up) or below.
func (s *Session) MoveSample(i int, up bool) bool {
	return s.editSamples(func(set *samples.Set) bool {
		if up {
			return set.MoveUp(i)
		}
		return set.MoveDown(i)
	})
}

func (s *Session) editSamples(edit func(*samples.Set) bool) bool {
	s.mu.Lock()
	ok := edit(s.samples)
	var all []samples.Sample
	if ok {
		s.modified = true
		all = s.samples.All()
	}
	s.mu.Unlock()
	if ok {
		s.Emit(EventSamplesChanged, all)
	}
	return ok
}

// SetRequestName sets the request name used for export.
func (s *Session) SetRequestName(name string) {
	s.mu.Lock()
	changed := s.requestName != name
	s.requestName = name
	if changed {
		s.modified = true
	}
	s.mu.Unlock()
	if changed {
		s.Emit(EventRequestNameChanged, name)
	}
}

// RequestName returns the request name.
func (s *Session) RequestName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestName
}

// Payload builds the export payload from the current samples.
func (s *Session) Payload() (export.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.NewPayload(s.requestName, s.id.String(), s.samples.Records())
}

// Config returns the configuration in effect.
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ApplyConfig swaps in a new configuration. View limits and index width take
// effect at once; on the collect step the rectangle and mapping are rebuilt
// and samples re-projected from their pixels, dropping any that fall outside.
func (s *Session) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	if s.view != nil {
		s.view.SetLimits(cfg.ViewLimits())
	}
	events := []pending{{EventConfigApplied, cfg}}

	if s.samples.IndexWidth() != cfg.Export.IndexWidth {
		s.samples.SetIndexWidth(cfg.Export.IndexWidth)
		events = append(events, pending{EventSamplesChanged, s.samples.All()})
	}

	if old.Rig != cfg.Rig && s.step != StepCalibrate {
		events = s.solveLocked(events)
		if s.step == StepCollect && s.rect != nil {
			events = s.reprojectLocked(events)
		}
	}
	s.logger.Info("session.config_applied")
	s.mu.Unlock()
	s.emitAll(events)
}

func (s *Session) reprojectLocked(events []pending) []pending {
	m, err := mapping.Build(s.rect.Corners, s.cfg.Rig.WidthMM, s.cfg.Rig.HeightMM, s.cfg.Rig.Precision)
	if err != nil {
		s.logger.Warn("session.mapping_failed", "error", err)
		return events
	}
	s.mapper = m

	kept := s.samples.All()[:0]
	dropped := 0
	for _, sm := range s.samples.All() {
		mm, err := m.PixelToMM(sm.Pixel)
		if err != nil {
			dropped++
			continue
		}
		sm.Real = mm
		kept = append(kept, sm)
	}
	s.samples.Restore(kept)
	if dropped > 0 {
		s.samples.SetIndexWidth(s.samples.IndexWidth())
		s.logger.Warn("session.samples_dropped", "count", dropped)
	}
	return append(events, pending{EventSamplesChanged, s.samples.All()})
}

// Snapshot is an immutable copy of the session for rendering.
type Snapshot struct {
	ID          string
	Step        Step
	FrameWidth  int
	FrameHeight int
	Zoom        float64
	Pan         geometry.FramePoint
	ViewAffine  geometry.AffineTransform

	Points    []geometry.FramePoint
	Rectangle *calibration.Rectangle
	Corners   []geometry.FramePoint
	Grid      []mapping.GridLine
	Wells     []geometry.FramePoint
	Samples   []samples.Sample
	Hover     *geometry.RealPoint

	RequestName string
	PickRadius  float64
}

// Snapshot copies the state needed to draw one frame.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.id.String(),
		Step:        s.step,
		Zoom:        1,
		ViewAffine:  geometry.Identity(),
		Points:      s.points.Points(),
		Samples:     s.samples.All(),
		RequestName: s.requestName,
		PickRadius:  s.cfg.View.PickRadius,
	}
	if s.view != nil {
		snap.FrameWidth, snap.FrameHeight = s.view.FrameWidth, s.view.FrameHeight
		snap.Zoom = s.view.Zoom
		snap.Pan = s.view.Pan
		snap.ViewAffine = s.view.Affine()
	}
	if s.rect != nil && s.step != StepCalibrate {
		r := *s.rect
		snap.Rectangle = &r
		snap.Corners = append([]geometry.FramePoint(nil), r.Corners[:]...)
	}
	if s.hover != nil {
		h := *s.hover
		snap.Hover = &h
	}
	if s.step == StepCollect && s.mapper != nil {
		lines := s.mapper.GridLines(s.cfg.GridSpacing(snap.Zoom), s.cfg.Grid.MajorEveryMM)
		if !s.cfg.ShowMinorGrid(snap.Zoom) {
			major := lines[:0]
			for _, l := range lines {
				if l.Major {
					major = append(major, l)
				}
			}
			lines = major
		}
		snap.Grid = lines
		if s.cfg.Grid.ShowWells {
			snap.Wells = s.mapper.WellCenters(s.cfg.Grid.WellRows, s.cfg.Grid.WellCols)
		}
	}
	return snap
}

// SessionFile captures the session for saving.
func (s *Session) SessionFile() *project.File {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := project.New(s.id.String())
	f.Created = s.created
	f.RequestName = s.requestName
	if s.view != nil {
		f.FrameWidth, f.FrameHeight = s.view.FrameWidth, s.view.FrameHeight
	}
	f.Rig = project.RigSnapshot{
		WidthMM:   s.cfg.Rig.WidthMM,
		HeightMM:  s.cfg.Rig.HeightMM,
		Precision: s.cfg.Rig.Precision,
	}
	f.Points = s.points.Points()
	if s.rect != nil {
		r := *s.rect
		f.Rectangle = &r
	}
	f.Samples = s.samples.All()
	return f
}

// MarkSaved clears the modified flag.
func (s *Session) MarkSaved() {
	s.mu.Lock()
	s.modified = false
	s.mu.Unlock()
}

// LoadSessionFile restores a saved session. The workflow resumes at the
// furthest step the saved data supports.
func (s *Session) LoadSessionFile(f *project.File) error {
	s.mu.Lock()

	if id, err := uuid.Parse(f.ID); err == nil {
		s.id = id
		s.logger = s.logger.With("session", id.String())
	}
	if !f.Created.IsZero() {
		s.created = f.Created
	}
	s.requestName = f.RequestName
	if f.FrameWidth > 0 && f.FrameHeight > 0 {
		s.view = view.New(f.FrameWidth, f.FrameHeight, s.cfg.ViewLimits())
	}
	s.points.Restore(f.Points)
	s.rect = nil
	s.mapper = nil
	s.samples.Reset()

	step := StepCalibrate
	if f.Rectangle != nil {
		r := *f.Rectangle
		s.rect = &r
		step = StepPlacement
	} else if s.points.Complete() {
		step = StepPlacement
	}

	if s.rect != nil && f.Calibrated() {
		m, err := mapping.Build(s.rect.Corners, f.Rig.WidthMM, f.Rig.HeightMM, f.Rig.Precision)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("restore mapping: %w", err)
		}
		s.mapper = m
		s.samples.Restore(f.Samples)
		step = StepCollect
	}
	s.step = step
	s.hover = nil
	s.modified = false
	s.logger.Info("session.loaded", "step", step.String(), "samples", s.samples.Len())
	s.mu.Unlock()

	s.Emit(EventSessionLoaded, step)
	return nil
}
