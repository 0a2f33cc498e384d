// Package editor binds one agent's canvas to its collaborators: the graph
// model, node factory, camera, selection, popup menus, authenticator
// binding and the backend.
//
// A Session serializes every operation behind one lock, the way a canvas
// processes one UI event at a time. Backend calls run outside the lock and
// their results are applied when they settle; nothing applied before a
// failed call is rolled back. Changes are announced to subscribers as
// Events instead of through any process-wide invalidation signal.
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/authedge"
	"github.com/meikuraledutech/canvas/factory"
	"github.com/meikuraledutech/canvas/geometry"
	"github.com/meikuraledutech/canvas/graph"
	"github.com/meikuraledutech/canvas/menu"
	"github.com/meikuraledutech/canvas/metrics"
	"github.com/meikuraledutech/canvas/nodes"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/selection"
	"github.com/meikuraledutech/canvas/viewport"
)

// SelectLoadLimit caps the resource loads a single Select runs at once.
const SelectLoadLimit = 4

// RootNodeID is the id of the central agent node every canvas starts with.
const RootNodeID = factory.AuthSourceID

var (
	ErrNotEditable = errors.New("editor: node has no edit modal")
	ErrMenuClosed  = errors.New("editor: no menu open")
)

// Config describes one session.
type Config struct {
	AgentID        string
	OrganizationID string
	Viewport       canvas.Size
	Factory        factory.Options
	Geometry       geometry.Options
	AuthCurvature  float64
	SelectFit      viewport.FitOptions
}

// Option customizes a Session.
type Option func(*Session)

func WithLogger(l *zap.Logger) Option          { return func(s *Session) { s.logger = l } }
func WithStore(st canvas.Store) Option         { return func(s *Session) { s.store = st } }
func WithMetrics(m *metrics.Registry) Option   { return func(s *Session) { s.metrics = m } }
func WithRunner(r *remote.Runner) Option       { return func(s *Session) { s.runner = r } }
func WithIDGenerator(gen func() string) Option { return func(s *Session) { s.idGen = gen } }

// Session is the editor state of one agent's canvas.
type Session struct {
	mu sync.Mutex

	cfg       Config
	model     *graph.Model
	camera    *viewport.State
	factory   *factory.Factory
	selection *selection.Controller
	binder    *authedge.Binder
	services  remote.Services
	runner    *remote.Runner
	store     canvas.Store
	metrics   *metrics.Registry
	logger    *zap.Logger
	idGen     func() string

	states   map[string]nodes.State
	editing  *nodes.Form
	nodeMenu *menu.Menu
	edgeMenu *menu.IconMenu
	picker   string // edge whose authenticator picker is open
	pending  *batch // batch of the menu selection in progress

	listeners listeners
}

// New creates a session with an empty model.
func New(cfg Config, services remote.Services, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		model:     graph.New(),
		selection: selection.New(),
		services:  services,
		states:    make(map[string]nodes.State),
		nodeMenu:  menu.New(),
		edgeMenu:  menu.NewIconMenu(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "editor"), zap.String("agent_id", cfg.AgentID))
	if s.runner == nil {
		s.runner = remote.NewRunner(nil, s.logger)
		if s.metrics != nil {
			s.runner.WithObserver(s.metrics)
		}
	}
	if s.cfg.Viewport == (canvas.Size{}) {
		s.cfg.Viewport = canvas.Size{Width: 1280, Height: 800}
	}
	s.camera = viewport.NewState(s.cfg.Viewport, s.logger)
	s.factory = factory.New(s.model, s.camera, cfg.Factory, s.logger)
	if s.idGen != nil {
		s.factory.WithIDGenerator(s.idGen)
	}
	s.factory.SetCurrentAgent(cfg.AgentID)
	if s.cfg.SelectFit.Duration == 0 {
		s.cfg.SelectFit.Duration = s.factory.Options().FitDuration
	}
	s.binder = authedge.New(s.model, services, s.runner, s.logger).WithCurvature(cfg.AuthCurvature)
	return s
}

func (s *Session) factoryOptions() factory.Options { return s.factory.Options() }

// ID is the graph id the session persists under: the agent id.
func (s *Session) ID() string { return s.cfg.AgentID }

// Subscribe registers fn for every event; the returned func removes it.
func (s *Session) Subscribe(fn Listener) func() { return s.listeners.add(fn) }

type batch struct{ evs []Event }

func (s *Session) lock() *batch {
	s.mu.Lock()
	return &batch{}
}

func (s *Session) unlock(b *batch) {
	s.mu.Unlock()
	s.listeners.emit(b.evs)
}

func (b *batch) add(evs ...Event) { b.evs = append(b.evs, evs...) }

// ── Lifecycle ────────────────────────────────────────────────────────

// Seed adds the central agent node when the canvas is empty.
func (s *Session) Seed() {
	b := s.lock()
	defer s.unlock(b)
	s.seed(b)
}

func (s *Session) seed(b *batch) {
	if n, _ := s.model.Len(); n > 0 {
		return
	}
	root := canvas.Node{
		ID:   RootNodeID,
		Type: canvas.KindAgent,
		Data: canvas.NodeData{Name: "Agente", Style: canvas.StyleCentral, AgentID: s.cfg.AgentID},
	}
	s.model.AddNode(root)
	b.add(nodeEvent(NodeAdded, s.ID(), root))
}

// Load replaces the canvas with the stored graph, seeding an empty one
// when nothing is stored.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return canvas.ErrNoStore
	}
	g, err := s.store.GetGraph(ctx, s.ID())
	if err != nil {
		return fmt.Errorf("editor: load %s: %w", s.ID(), err)
	}

	b := s.lock()
	defer s.unlock(b)
	if g == nil {
		s.seed(b)
		return nil
	}
	// a stored canvas is taken as is, even one left with only dangling edges
	s.model.Load(*g)
	s.states = make(map[string]nodes.State)
	s.selection.Clear()
	for _, n := range g.Nodes {
		if n.Selected {
			s.selection.Select(n.ID)
		}
	}
	return nil
}

// Save persists the current graph.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return canvas.ErrNoStore
	}
	g := s.Snapshot()
	if err := s.store.SaveGraph(ctx, &g); err != nil {
		return fmt.Errorf("editor: save %s: %w", s.ID(), err)
	}
	return nil
}

// Snapshot returns the serialized graph.
func (s *Session) Snapshot() canvas.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Snapshot(s.ID())
}

// Node returns one node.
func (s *Session) Node(id string) (canvas.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Node(id)
}

// Edge returns one edge.
func (s *Session) Edge(id string) (canvas.Edge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Edge(id)
}

// ── Creation ─────────────────────────────────────────────────────────

// created announces a factory result and auto-opens the editor of nodes
// that need configuring.
func (s *Session) created(b *batch, c factory.Created, origin string) {
	b.add(nodeEvent(NodeAdded, s.ID(), c.Node))
	s.countNode(c.Node.Type, origin)
	if c.Edge != nil {
		b.add(edgeEvent(EdgeAdded, s.ID(), *c.Edge))
		s.countEdge(c.Edge.Type)
	}
	if c.Transition != nil {
		b.add(Event{Type: CameraMoved, GraphID: s.ID(), Transition: c.Transition})
	}
	if beh, err := nodes.For(c.Node.Type); err == nil && beh.AutoOpenEditor(c.Node) {
		form := beh.Form(c.Node)
		s.editing = &form
		b.add(Event{Type: EditorRequested, GraphID: s.ID(), ID: c.Node.ID, Form: &form})
	}
}

// Drop creates a standalone node at a graph-space position, as dropping
// from the palette does. Function nodes go through CreateFromDiagram.
func (s *Session) Drop(kind canvas.NodeKind, pos canvas.Point, initial *canvas.NodeData) (factory.Created, error) {
	if kind == "" {
		kind = canvas.KindFunction
	}
	if !kind.Valid() {
		return factory.Created{}, fmt.Errorf("editor: drop %q: %w", kind, canvas.ErrUnknownKind)
	}
	b := s.lock()
	defer s.unlock(b)

	var c factory.Created
	if kind == canvas.KindFunction {
		c = s.factory.CreateFromDiagram(pos, s.cfg.AgentID, initial)
	} else {
		c = s.factory.CreateNode(factory.NodeParams{Position: pos, AgentID: s.cfg.AgentID, InitialData: initial, Type: kind})
	}
	s.created(b, c, "diagram")
	return c, nil
}

// CreateChild adds a function below the existing children of sourceID and
// frames the whole canvas.
func (s *Session) CreateChild(sourceID string) (factory.Created, error) {
	b := s.lock()
	defer s.unlock(b)

	c, err := s.factory.CreateWithSpacing(sourceID)
	if err != nil {
		return factory.Created{}, err
	}
	s.created(b, c, "spacing")
	return c, nil
}

// CreateFromMenu creates a function child of the menu's node under the
// clicked point.
func (s *Session) CreateFromMenu(m factory.MenuState) (factory.Created, error) {
	b := s.lock()
	defer s.unlock(b)
	return s.createFromMenu(b, m)
}

func (s *Session) createFromMenu(b *batch, m factory.MenuState) (factory.Created, error) {
	c, err := s.factory.CreateFromContextMenu(m)
	if err != nil {
		return factory.Created{}, err
	}
	s.created(b, c, "menu")
	return c, nil
}

// Connect turns a drag-to-connect gesture into an edge. Both nodes must
// exist and expose the handle roles involved.
func (s *Session) Connect(conn factory.Connection) (canvas.Edge, error) {
	b := s.lock()
	defer s.unlock(b)

	src, ok := s.model.Node(conn.Source)
	if !ok {
		return canvas.Edge{}, fmt.Errorf("editor: connect source %s: %w", conn.Source, canvas.ErrNodeNotFound)
	}
	dst, ok := s.model.Node(conn.Target)
	if !ok {
		return canvas.Edge{}, fmt.Errorf("editor: connect target %s: %w", conn.Target, canvas.ErrNodeNotFound)
	}
	if err := nodes.ValidateConnection(src, dst); err != nil {
		return canvas.Edge{}, err
	}
	e := s.factory.CreateEdge(conn)
	b.add(edgeEvent(EdgeAdded, s.ID(), e))
	s.countEdge(e.Type)
	return e, nil
}

// ── Mutation ─────────────────────────────────────────────────────────

// Move sets a node's position after a drag.
func (s *Session) Move(id string, pos canvas.Point) (canvas.Node, error) {
	b := s.lock()
	defer s.unlock(b)
	n, err := s.model.UpdateNode(id, func(n *canvas.Node) { n.Position = pos })
	if err != nil {
		return canvas.Node{}, err
	}
	b.add(nodeEvent(NodeUpdated, s.ID(), n))
	return n, nil
}

// Measure records the size the renderer measured for a node.
func (s *Session) Measure(id string, size canvas.Size) (canvas.Node, error) {
	b := s.lock()
	defer s.unlock(b)
	n, err := s.model.UpdateNode(id, func(n *canvas.Node) {
		n.Width = canvas.Float(size.Width)
		n.Height = canvas.Float(size.Height)
	})
	if err != nil {
		return canvas.Node{}, err
	}
	b.add(nodeEvent(NodeUpdated, s.ID(), n))
	return n, nil
}

// RemoveEdge deletes one edge.
func (s *Session) RemoveEdge(id string) error {
	b := s.lock()
	defer s.unlock(b)
	return s.removeEdge(b, id)
}

// DeleteNode removes a node. A configured function is deleted on the
// backend first; the canvas is only touched once that succeeds. Edges
// touching the node are removed only when withEdges is set; otherwise
// they stay behind, dangling.
func (s *Session) DeleteNode(ctx context.Context, id string, withEdges bool) error {
	n, ok := s.Node(id)
	if !ok {
		return fmt.Errorf("editor: delete %s: %w", id, canvas.ErrNodeNotFound)
	}
	if n.Type == canvas.KindFunction && n.Data.FunctionID != "" {
		err := s.runner.Run(ctx, remote.Operation{
			Title:   "Eliminar función",
			Success: "Función eliminada",
			Error:   "No se pudo eliminar la función",
		}, func(ctx context.Context) error {
			return s.services.Functions.Delete(ctx, n.Data.FunctionID)
		})
		if err != nil {
			return err
		}
	}

	b := s.lock()
	defer s.unlock(b)
	if err := s.model.RemoveNode(id); err != nil {
		return err
	}
	b.add(nodeEvent(NodeRemoved, s.ID(), n))
	s.countNodeRemoved()
	delete(s.states, id)
	if s.selection.IsSelected(id) {
		s.selection.Deselect(id)
		b.add(Event{Type: SelectionChanged, GraphID: s.ID(), Selection: s.selection.Selected()})
	}
	if s.editing != nil && s.editing.NodeID == id {
		s.editing = nil
		b.add(Event{Type: EditorClosed, GraphID: s.ID(), ID: id})
	}
	if withEdges {
		for _, e := range s.model.EdgesOf(id) {
			_ = s.model.RemoveEdge(e.ID)
			b.add(edgeEvent(EdgeRemoved, s.ID(), e))
			s.countEdgeRemoved(1)
		}
	}
	return nil
}

// ── Selection ────────────────────────────────────────────────────────

// Select replaces the selection and loads the backing resource of every
// newly selected node that has not been loaded yet.
func (s *Session) Select(ctx context.Context, ids ...string) error {
	b := s.lock()
	before := s.selection.Selected()
	var unknown []string
	for _, id := range ids {
		if _, ok := s.model.Node(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		s.unlock(b)
		return fmt.Errorf("editor: select %v: %w", unknown, canvas.ErrNodeNotFound)
	}
	s.selection.Set(ids...)
	for _, n := range s.selection.Apply(s.model) {
		b.add(nodeEvent(NodeUpdated, s.ID(), n))
	}
	b.add(Event{Type: SelectionChanged, GraphID: s.ID(), Selection: s.selection.Selected()})

	var toLoad []canvas.Node
	for _, id := range ids {
		if slices.Contains(before, id) {
			continue
		}
		if st := s.states[id]; st.Resource != nil || st.Loading {
			continue
		}
		n, _ := s.model.Node(id)
		toLoad = append(toLoad, n)
		s.states[id] = nodes.State{Loading: true}
	}
	s.unlock(b)

	// one failed load must not cancel the others
	errs := make([]error, len(toLoad))
	var g errgroup.Group
	g.SetLimit(SelectLoadLimit)
	for i, n := range toLoad {
		g.Go(func() error {
			errs[i] = s.load(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// load fetches a node's resource and stores it as that node's state.
func (s *Session) load(ctx context.Context, n canvas.Node) error {
	beh, err := nodes.For(n.Type)
	if err != nil {
		return err
	}
	res, err := remote.Do(ctx, s.runner, remote.Operation{
		Title: "Cargar nodo",
		Error: "No se pudo cargar " + n.Data.Name,
	}, func(ctx context.Context) (nodes.Resource, error) {
		return beh.Load(ctx, s.services, n)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.model.Node(n.ID); !ok {
		// removed while loading
		delete(s.states, n.ID)
		return err
	}
	s.states[n.ID] = nodes.State{Resource: res, Err: err}
	return err
}

// Selected returns the selected node ids.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Selected()
}

// FitToSelection centers the camera on the selected nodes.
func (s *Session) FitToSelection() (viewport.Transition, bool) {
	b := s.lock()
	defer s.unlock(b)
	tr, ok := s.selection.FitToSelection(s.model, s.camera, s.factoryOptions().DefaultSize, s.cfg.SelectFit)
	if ok {
		b.add(Event{Type: CameraMoved, GraphID: s.ID(), Transition: &tr})
	}
	return tr, ok
}

// ── Camera ───────────────────────────────────────────────────────────

// Camera returns the current viewport transform.
func (s *Session) Camera() viewport.Transform { return s.camera.Transform() }

// Pan sets the transform after a user pan or zoom.
func (s *Session) Pan(t viewport.Transform) { s.camera.Set(t) }

// ResizeViewport updates the on-screen size of the canvas.
func (s *Session) ResizeViewport(size canvas.Size) { s.camera.Resize(size) }

// FitAll frames every node.
func (s *Session) FitAll() *viewport.Transition {
	b := s.lock()
	defer s.unlock(b)
	tr := s.factory.FitAll()
	if tr != nil {
		b.add(Event{Type: CameraMoved, GraphID: s.ID(), Transition: tr})
	}
	return tr
}

// ── Metrics ──────────────────────────────────────────────────────────

func (s *Session) countNode(kind canvas.NodeKind, origin string) {
	if s.metrics != nil {
		s.metrics.NodesCreated.WithLabelValues(string(kind), origin).Inc()
	}
}

func (s *Session) countNodeRemoved() {
	if s.metrics != nil {
		s.metrics.NodesRemoved.Inc()
	}
}

func (s *Session) countEdge(t canvas.EdgeType) {
	if s.metrics != nil {
		if t == "" {
			t = canvas.EdgeDefault
		}
		s.metrics.EdgesCreated.WithLabelValues(string(t)).Inc()
	}
}

func (s *Session) countEdgeRemoved(n int) {
	if s.metrics != nil {
		s.metrics.EdgesRemoved.Add(float64(n))
	}
}
