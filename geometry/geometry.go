// Package geometry computes the curves and anchor points used to draw
// edges between canvas nodes. Everything here is pure: the same inputs
// always produce the same path.
package geometry

import (
	"fmt"
	"math"
	"strconv"

	"github.com/meikuraledutech/canvas"
)

// LoopSize is the extent of the curve drawn when source and target points
// coincide (self-loops, or two nodes stacked on the same coordinates).
const LoopSize = 60.0

// epsilon below which a source→target vector is treated as zero length.
const epsilon = 1e-9

// Box is a node reduced to its center and full extents.
type Box struct {
	Center canvas.Point
	Width  float64
	Height float64
}

// FromRect converts a top-left anchored rectangle into a Box.
func FromRect(r canvas.Rect) Box {
	return Box{Center: r.Center(), Width: r.Width, Height: r.Height}
}

// NodeIntersection returns the point where the ray from the center of
// box toward target leaves the node.
//
// The boundary is approximated by the ellipse inscribed in the node's
// rectangle, not the rectangle itself. Corners are therefore cut short;
// that is fine for routing curves but not for pixel-exact anchoring.
func NodeIntersection(box Box, target canvas.Point) canvas.Point {
	theta := math.Atan2(target.Y-box.Center.Y, target.X-box.Center.X)
	return canvas.Point{
		X: box.Center.X + box.Width/2*math.Cos(theta),
		Y: box.Center.Y + box.Height/2*math.Sin(theta),
	}
}

// Options tune ControlPoints. Zero fields take the defaults.
type Options struct {
	Offset      float64
	SourceSplit float64
	TargetSplit float64
}

// DefaultOptions returns offset 0.6 with splits at 0.35 and 0.65.
func DefaultOptions() Options {
	return Options{Offset: 0.6, SourceSplit: 0.35, TargetSplit: 0.65}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Offset == 0 {
		o.Offset = d.Offset
	}
	if o.SourceSplit == 0 {
		o.SourceSplit = d.SourceSplit
	}
	if o.TargetSplit == 0 {
		o.TargetSplit = d.TargetSplit
	}
	return o
}

// Attenuation returns the factor applied to the offset for an anchor pair.
// Opposite horizontal anchors are halved, opposite vertical ones reduced
// to 0.7; every other pair keeps the full offset.
func Attenuation(source, target canvas.Anchor) float64 {
	switch {
	case source == canvas.AnchorRight && target == canvas.AnchorLeft,
		source == canvas.AnchorLeft && target == canvas.AnchorRight:
		return 0.5
	case source == canvas.AnchorTop && target == canvas.AnchorBottom,
		source == canvas.AnchorBottom && target == canvas.AnchorTop:
		return 0.7
	}
	return 1
}

// Curve holds the two cubic control points of an edge and the
// perpendicular distance they sit from the straight source→target line.
type Curve struct {
	C1     canvas.Point
	C2     canvas.Point
	Offset float64
}

// ControlPoints places the Bézier control points for an edge running from
// (sx, sy) to (tx, ty). Both points are pushed to the same side of the
// line along its unit normal (-dy, dx)/len.
func ControlPoints(sx, sy, tx, ty float64, sp, tp canvas.Anchor, opts Options) Curve {
	opts = opts.withDefaults()
	dx, dy := tx-sx, ty-sy
	length := math.Hypot(dx, dy)
	if length < epsilon {
		return loop(sx, sy, tx, ty)
	}

	nx, ny := -dy/length, dx/length
	dist := opts.Offset * Attenuation(sp, tp) * length

	return Curve{
		C1: canvas.Point{
			X: sx + dx*opts.SourceSplit + nx*dist,
			Y: sy + dy*opts.SourceSplit + ny*dist,
		},
		C2: canvas.Point{
			X: sx + dx*opts.TargetSplit + nx*dist,
			Y: sy + dy*opts.TargetSplit + ny*dist,
		},
		Offset: dist,
	}
}

// loop bounds the zero-length case: a fixed-size loop above the point
// instead of NaN control points.
func loop(sx, sy, tx, ty float64) Curve {
	return Curve{
		C1:     canvas.Point{X: sx - LoopSize/2, Y: sy - LoopSize},
		C2:     canvas.Point{X: tx + LoopSize/2, Y: ty - LoopSize},
		Offset: LoopSize,
	}
}

// Params is everything a renderer needs to draw one edge.
type Params struct {
	Path   string       `json:"path"`
	Source canvas.Point `json:"source"`
	Target canvas.Point `json:"target"`
	C1     canvas.Point `json:"c1"`
	C2     canvas.Point `json:"c2"`
	Label  canvas.Point `json:"label"`
}

// EdgeParams routes an edge between two nodes: endpoints on each node's
// boundary facing the other node, a curved cubic path, and the label at
// the midpoint of the endpoints.
func EdgeParams(source, target Box, sp, tp canvas.Anchor, opts Options) Params {
	s := NodeIntersection(source, target.Center)
	t := NodeIntersection(target, source.Center)
	if source.Center == target.Center {
		// same center: the ellipse projection is arbitrary, anchor both ends on top.
		s = canvas.Point{X: source.Center.X, Y: source.Center.Y - source.Height/2}
		t = s
	}
	c := ControlPoints(s.X, s.Y, t.X, t.Y, sp, tp, opts)
	return build(s, t, c)
}

// DefaultCurvature is the curvature used by SimpleBezier when zero is given.
const DefaultCurvature = 0.25

// SimpleBezier is the lighter curve used for authenticated edges. It
// shifts both control points by curvature·length perpendicular to the
// anchor side: vertically for Left/Right sources, horizontally for
// Top/Bottom ones.
func SimpleBezier(sx, sy, tx, ty float64, sp, tp canvas.Anchor, curvature float64) Params {
	if curvature == 0 {
		curvature = DefaultCurvature
	}
	dx, dy := tx-sx, ty-sy
	k := curvature * math.Hypot(dx, dy)

	var ox, oy float64
	if sp.Horizontal() || (sp == "" && tp.Horizontal()) {
		oy = -k
	} else {
		ox = k
	}

	s := canvas.Point{X: sx, Y: sy}
	t := canvas.Point{X: tx, Y: ty}
	c := Curve{
		C1:     canvas.Point{X: sx + dx/3 + ox, Y: sy + dy/3 + oy},
		C2:     canvas.Point{X: sx + 2*dx/3 + ox, Y: sy + 2*dy/3 + oy},
		Offset: k,
	}
	return build(s, t, c)
}

// AuthEdgeParams is SimpleBezier between two node boundaries.
func AuthEdgeParams(source, target Box, sp, tp canvas.Anchor, curvature float64) Params {
	s := NodeIntersection(source, target.Center)
	t := NodeIntersection(target, source.Center)
	return SimpleBezier(s.X, s.Y, t.X, t.Y, sp, tp, curvature)
}

func build(s, t canvas.Point, c Curve) Params {
	return Params{
		Path: fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
			num(s.X), num(s.Y), num(c.C1.X), num(c.C1.Y), num(c.C2.X), num(c.C2.Y), num(t.X), num(t.Y)),
		Source: s,
		Target: t,
		C1:     c.C1,
		C2:     c.C2,
		Label:  Midpoint(s, t),
	}
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b canvas.Point) canvas.Point {
	return canvas.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
