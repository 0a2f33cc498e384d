// Package viewport maps between screen and graph coordinates and tracks
// timed camera transitions.
package viewport

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
)

// Transform is the pan/zoom of the canvas: screen = graph·Zoom + (X, Y).
type Transform struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Identity is the unpanned, unzoomed transform.
var Identity = Transform{Zoom: 1}

// ScreenToFlow converts a screen point into graph space.
func (t Transform) ScreenToFlow(p canvas.Point) canvas.Point {
	z := t.Zoom
	if z == 0 {
		z = 1
	}
	return canvas.Point{X: (p.X - t.X) / z, Y: (p.Y - t.Y) / z}
}

// FlowToScreen converts a graph point into screen space.
func (t Transform) FlowToScreen(p canvas.Point) canvas.Point {
	z := t.Zoom
	if z == 0 {
		z = 1
	}
	return canvas.Point{X: p.X*z + t.X, Y: p.Y*z + t.Y}
}

// FitOptions configure a camera transition.
type FitOptions struct {
	Duration time.Duration `json:"duration"`
	Padding  float64       `json:"padding"`
}

// Transition is one requested camera move.
type Transition struct {
	Bounds   canvas.Rect   `json:"bounds"`
	Target   Transform     `json:"target"`
	Duration time.Duration `json:"duration"`
	Started  time.Time     `json:"started"`
}

// Camera receives camera requests from the editor core.
type Camera interface {
	Transform() Transform
	FitBounds(bounds canvas.Rect, opts FitOptions) Transition
	SetCenter(center canvas.Point, opts FitOptions) Transition
}

// State is a Camera that computes the target transform for a viewport of
// known size. Requests are neither queued nor debounced: the most recent
// one wins.
type State struct {
	mu      sync.Mutex
	size    canvas.Size
	current Transform
	last    *Transition
	now     func() time.Time
	logger  *zap.Logger

	MinZoom float64
	MaxZoom float64
}

// NewState creates a camera for a viewport of the given size.
func NewState(size canvas.Size, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		size:    size,
		current: Identity,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "camera")),
		MinZoom: 0.1,
		MaxZoom: 2,
	}
}

// Resize updates the viewport size.
func (s *State) Resize(size canvas.Size) {
	s.mu.Lock()
	s.size = size
	s.mu.Unlock()
}

// Size returns the viewport size.
func (s *State) Size() canvas.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Transform returns the transform the camera is at or moving toward.
func (s *State) Transform() Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set jumps to t without a transition (user pan/zoom).
func (s *State) Set(t Transform) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}

// Last returns the most recent transition, if any.
func (s *State) Last() (Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Transition{}, false
	}
	return *s.last, true
}

// FitBounds frames bounds inside the viewport, leaving opts.Padding as a
// fraction of extra room around it.
func (s *State) FitBounds(bounds canvas.Rect, opts FitOptions) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	zoom := s.MaxZoom
	if bounds.Width > 0 && bounds.Height > 0 {
		zx := s.size.Width / (bounds.Width * (1 + opts.Padding))
		zy := s.size.Height / (bounds.Height * (1 + opts.Padding))
		zoom = clamp(min(zx, zy), s.MinZoom, s.MaxZoom)
	}
	c := bounds.Center()
	t := Transform{
		X:    s.size.Width/2 - c.X*zoom,
		Y:    s.size.Height/2 - c.Y*zoom,
		Zoom: zoom,
	}
	return s.start(bounds, t, opts.Duration)
}

// SetCenter moves the camera so center sits in the middle of the viewport
// at the current zoom.
func (s *State) SetCenter(center canvas.Point, opts FitOptions) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	zoom := s.current.Zoom
	if zoom == 0 {
		zoom = 1
	}
	t := Transform{
		X:    s.size.Width/2 - center.X*zoom,
		Y:    s.size.Height/2 - center.Y*zoom,
		Zoom: zoom,
	}
	return s.start(canvas.Rect{X: center.X, Y: center.Y}, t, opts.Duration)
}

func (s *State) start(bounds canvas.Rect, t Transform, d time.Duration) Transition {
	tr := Transition{Bounds: bounds, Target: t, Duration: d, Started: s.now()}
	if s.last != nil && tr.Started.Before(s.last.Started.Add(s.last.Duration)) {
		s.logger.Debug("camera transition superseded",
			zap.Time("previous_started", s.last.Started))
	}
	s.last = &tr
	s.current = t
	return tr
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
