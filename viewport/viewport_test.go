package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meikuraledutech/canvas"
)

func TestScreenToFlowRoundTrip(t *testing.T) {
	tr := Transform{X: 100, Y: -40, Zoom: 0.5}
	p := canvas.Point{X: 300, Y: 200}

	g := tr.ScreenToFlow(p)
	assert.Equal(t, canvas.Point{X: 400, Y: 480}, g)
	assert.Equal(t, p, tr.FlowToScreen(g))
}

func TestFitBoundsCentersAndZooms(t *testing.T) {
	s := NewState(canvas.Size{Width: 1100, Height: 1100}, nil)

	tr := s.FitBounds(canvas.Rect{X: 0, Y: 0, Width: 1000, Height: 500}, FitOptions{Duration: 500 * time.Millisecond, Padding: 0.1})

	assert.InDelta(t, 1.0, tr.Target.Zoom, 1e-9)
	assert.InDelta(t, 50, tr.Target.X, 1e-9)
	assert.InDelta(t, 300, tr.Target.Y, 1e-9)
	assert.Equal(t, tr.Target, s.Transform())
}

func TestFitBoundsClampsZoom(t *testing.T) {
	s := NewState(canvas.Size{Width: 800, Height: 600}, nil)

	tr := s.FitBounds(canvas.Rect{Width: 10, Height: 10}, FitOptions{})
	assert.Equal(t, s.MaxZoom, tr.Target.Zoom)

	tr = s.FitBounds(canvas.Rect{Width: 1e6, Height: 1e6}, FitOptions{})
	assert.Equal(t, s.MinZoom, tr.Target.Zoom)
}

func TestLastRequestWins(t *testing.T) {
	s := NewState(canvas.Size{Width: 800, Height: 600}, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.FitBounds(canvas.Rect{Width: 100, Height: 100}, FitOptions{Duration: 500 * time.Millisecond})
	now = now.Add(100 * time.Millisecond)
	second := s.SetCenter(canvas.Point{X: 1000, Y: 1000}, FitOptions{Duration: 500 * time.Millisecond})

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, second, last)
	assert.Equal(t, second.Target, s.Transform())
}
