package editor

import (
	"sync"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/nodes"
	"github.com/meikuraledutech/canvas/viewport"
)

// EventType names a change on a session.
type EventType string

const (
	NodeAdded        EventType = "node.added"
	NodeUpdated      EventType = "node.updated"
	NodeRemoved      EventType = "node.removed"
	EdgeAdded        EventType = "edge.added"
	EdgeUpdated      EventType = "edge.updated"
	EdgeRemoved      EventType = "edge.removed"
	SelectionChanged EventType = "selection.changed"
	CameraMoved      EventType = "camera.moved"
	EditorRequested  EventType = "editor.requested"
	EditorClosed     EventType = "editor.closed"
)

// Event describes one change. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType            `json:"type"`
	GraphID    string               `json:"graphId"`
	Node       *canvas.Node         `json:"node,omitempty"`
	Edge       *canvas.Edge         `json:"edge,omitempty"`
	ID         string               `json:"id,omitempty"`
	Selection  []string             `json:"selection,omitempty"`
	Transition *viewport.Transition `json:"transition,omitempty"`
	Form       *nodes.Form          `json:"form,omitempty"`
}

// Listener receives session events. It runs after the session lock is
// released, so it may call back into the session.
type Listener func(Event)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) emit(evs []Event) {
	if len(evs) == 0 {
		return
	}
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for i := 0; i < l.next; i++ {
		if fn, ok := l.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()
	for _, ev := range evs {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func nodeEvent(t EventType, graphID string, n canvas.Node) Event {
	return Event{Type: t, GraphID: graphID, Node: &n, ID: n.ID}
}

func edgeEvent(t EventType, graphID string, e canvas.Edge) Event {
	return Event{Type: t, GraphID: graphID, Edge: &e, ID: e.ID}
}
