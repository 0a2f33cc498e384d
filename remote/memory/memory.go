// Package memory is an in-process implementation of every remote
// collaborator. It is safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/meikuraledutech/canvas/remote"
)

// Backend stores agents, functions, authenticators, params, knowledge
// bases and web chat integrations in maps.
type Backend struct {
	mu             sync.Mutex
	agents         map[string]remote.Agent
	functions      map[string]remote.Function
	authenticators map[string]remote.Authenticator
	params         map[string]remote.Param
	knowledgeBases map[string]remote.KnowledgeBase
	webChats       map[string]remote.WebChat // keyed by agent id

	// one-shot failures keyed by operation name, e.g. "function.delete"
	failNext map[string]error
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		agents:         make(map[string]remote.Agent),
		functions:      make(map[string]remote.Function),
		authenticators: make(map[string]remote.Authenticator),
		params:         make(map[string]remote.Param),
		knowledgeBases: make(map[string]remote.KnowledgeBase),
		webChats:       make(map[string]remote.WebChat),
		failNext:       make(map[string]error),
	}
}

// Services exposes the backend through the remote contracts.
func (b *Backend) Services() remote.Services {
	return remote.Services{
		Agents:         agents{b},
		Functions:      functions{b},
		Authenticators: authenticators{b},
		Params:         params{b},
		KnowledgeBases: knowledgeBases{b},
		Integrations:   integrations{b},
	}
}

// FailNext arms a one-shot failure for op.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	b.failNext[op] = err
	b.mu.Unlock()
}

// must be called with mu held
func (b *Backend) fail(op string) error {
	if err, ok := b.failNext[op]; ok {
		delete(b.failNext, op)
		return err
	}
	return nil
}

func newID() string { return uuid.NewString() }

func notFound(kind, id string) error {
	return fmt.Errorf("memory: %s %s: %w", kind, id, remote.ErrNotFound)
}

// PutAgent seeds an agent.
func (b *Backend) PutAgent(a remote.Agent) remote.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	a.Functions = nil
	b.agents[a.ID] = a
	return a
}

// PutAuthenticator seeds an authenticator.
func (b *Backend) PutAuthenticator(a remote.Authenticator) remote.Authenticator {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	b.authenticators[a.ID] = a
	return a
}

// ── Agents ───────────────────────────────────────────────────────────

type agents struct{ b *Backend }

func (s agents) GetByID(_ context.Context, id string) (*remote.Agent, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("agent.getById"); err != nil {
		return nil, err
	}
	a, ok := s.b.agents[id]
	if !ok {
		return nil, notFound("agent", id)
	}
	for _, f := range s.b.functions {
		if f.AgentID == id {
			a.Functions = append(a.Functions, s.b.withParams(f))
		}
	}
	slices.SortFunc(a.Functions, func(x, y remote.Function) int {
		switch {
		case x.Name < y.Name:
			return -1
		case x.Name > y.Name:
			return 1
		}
		return 0
	})
	return &a, nil
}

func (s agents) Update(_ context.Context, a *remote.Agent) (*remote.Agent, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("agent.update"); err != nil {
		return nil, err
	}
	if _, ok := s.b.agents[a.ID]; !ok {
		return nil, notFound("agent", a.ID)
	}
	stored := *a
	stored.Functions = nil
	s.b.agents[a.ID] = stored
	out := stored
	return &out, nil
}

// ── Functions ────────────────────────────────────────────────────────

type functions struct{ b *Backend }

// must be called with mu held
func (b *Backend) withParams(f remote.Function) remote.Function {
	f.Params = nil
	for _, p := range b.params {
		if p.FunctionID == f.ID {
			f.Params = append(f.Params, p)
		}
	}
	return f
}

func (s functions) Create(_ context.Context, f *remote.Function) (*remote.Function, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("function.create"); err != nil {
		return nil, err
	}
	if _, ok := s.b.agents[f.AgentID]; !ok {
		return nil, notFound("agent", f.AgentID)
	}
	stored := *f
	stored.ID = newID()
	stored.Params = nil
	s.b.functions[stored.ID] = stored
	out := stored
	return &out, nil
}

func (s functions) Update(_ context.Context, f *remote.Function) (*remote.Function, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("function.update"); err != nil {
		return nil, err
	}
	prev, ok := s.b.functions[f.ID]
	if !ok {
		return nil, notFound("function", f.ID)
	}
	stored := *f
	stored.AgentID = prev.AgentID
	stored.AuthenticatorID = prev.AuthenticatorID
	stored.Params = nil
	s.b.functions[f.ID] = stored
	out := s.b.withParams(stored)
	return &out, nil
}

func (s functions) Delete(_ context.Context, id string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("function.delete"); err != nil {
		return err
	}
	if _, ok := s.b.functions[id]; !ok {
		return notFound("function", id)
	}
	delete(s.b.functions, id)
	maps.DeleteFunc(s.b.params, func(_ string, p remote.Param) bool { return p.FunctionID == id })
	return nil
}

func (s functions) AssignAuthenticator(_ context.Context, functionID, authenticatorID string) (*remote.Function, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("function.assignAuthenticator"); err != nil {
		return nil, err
	}
	f, ok := s.b.functions[functionID]
	if !ok {
		return nil, notFound("function", functionID)
	}
	if authenticatorID != "" {
		if _, ok := s.b.authenticators[authenticatorID]; !ok {
			return nil, notFound("authenticator", authenticatorID)
		}
	}
	f.AuthenticatorID = authenticatorID
	s.b.functions[functionID] = f
	out := s.b.withParams(f)
	return &out, nil
}

// ── Authenticators ───────────────────────────────────────────────────

type authenticators struct{ b *Backend }

func (s authenticators) FetchAll(_ context.Context, organizationID string) ([]remote.Authenticator, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("authenticator.fetchAll"); err != nil {
		return nil, err
	}
	out := []remote.Authenticator{}
	for _, a := range s.b.authenticators {
		if a.OrganizationID == organizationID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y remote.Authenticator) int {
		if x.Name != y.Name {
			if x.Name < y.Name {
				return -1
			}
			return 1
		}
		if x.ID < y.ID {
			return -1
		}
		return 1
	})
	return out, nil
}

func (s authenticators) Create(_ context.Context, a *remote.Authenticator) (*remote.Authenticator, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("authenticator.create"); err != nil {
		return nil, err
	}
	stored := *a
	stored.ID = newID()
	s.b.authenticators[stored.ID] = stored
	return &stored, nil
}

func (s authenticators) Update(_ context.Context, a *remote.Authenticator) (*remote.Authenticator, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("authenticator.update"); err != nil {
		return nil, err
	}
	if _, ok := s.b.authenticators[a.ID]; !ok {
		return nil, notFound("authenticator", a.ID)
	}
	stored := *a
	s.b.authenticators[a.ID] = stored
	return &stored, nil
}

func (s authenticators) Remove(_ context.Context, id string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("authenticator.remove"); err != nil {
		return err
	}
	if _, ok := s.b.authenticators[id]; !ok {
		return notFound("authenticator", id)
	}
	delete(s.b.authenticators, id)
	return nil
}

// ── Params ───────────────────────────────────────────────────────────

type params struct{ b *Backend }

func (s params) Create(_ context.Context, p *remote.Param) (*remote.Param, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("param.create"); err != nil {
		return nil, err
	}
	if _, ok := s.b.functions[p.FunctionID]; !ok {
		return nil, notFound("function", p.FunctionID)
	}
	stored := *p
	stored.ID = newID()
	s.b.params[stored.ID] = stored
	return &stored, nil
}

func (s params) Update(_ context.Context, p *remote.Param) (*remote.Param, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("param.update"); err != nil {
		return nil, err
	}
	prev, ok := s.b.params[p.ID]
	if !ok {
		return nil, notFound("param", p.ID)
	}
	stored := *p
	stored.FunctionID = prev.FunctionID
	s.b.params[p.ID] = stored
	return &stored, nil
}

func (s params) Delete(_ context.Context, id string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("param.delete"); err != nil {
		return err
	}
	if _, ok := s.b.params[id]; !ok {
		return notFound("param", id)
	}
	delete(s.b.params, id)
	return nil
}

// ── Knowledge bases ──────────────────────────────────────────────────

type knowledgeBases struct{ b *Backend }

func (s knowledgeBases) Create(_ context.Context, kb *remote.KnowledgeBase) (*remote.KnowledgeBase, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("knowledgeBase.create"); err != nil {
		return nil, err
	}
	if _, ok := s.b.agents[kb.AgentID]; !ok {
		return nil, notFound("agent", kb.AgentID)
	}
	stored := *kb
	stored.ID = newID()
	s.b.knowledgeBases[stored.ID] = stored
	return &stored, nil
}

func (s knowledgeBases) List(_ context.Context, agentID string) ([]remote.KnowledgeBase, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("knowledgeBase.list"); err != nil {
		return nil, err
	}
	out := []remote.KnowledgeBase{}
	for _, kb := range s.b.knowledgeBases {
		if kb.AgentID == agentID {
			out = append(out, kb)
		}
	}
	slices.SortFunc(out, func(x, y remote.KnowledgeBase) int {
		if x.Name < y.Name {
			return -1
		}
		if x.Name > y.Name {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s knowledgeBases) Delete(_ context.Context, id string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("knowledgeBase.delete"); err != nil {
		return err
	}
	if _, ok := s.b.knowledgeBases[id]; !ok {
		return notFound("knowledge base", id)
	}
	delete(s.b.knowledgeBases, id)
	return nil
}

// ── Integrations ─────────────────────────────────────────────────────

type integrations struct{ b *Backend }

// GetWebChat returns the agent's web chat integration, creating a
// disabled one on first access.
func (s integrations) GetWebChat(_ context.Context, agentID string) (*remote.WebChat, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("integration.getWebChat"); err != nil {
		return nil, err
	}
	if _, ok := s.b.agents[agentID]; !ok {
		return nil, notFound("agent", agentID)
	}
	w, ok := s.b.webChats[agentID]
	if !ok {
		w = remote.WebChat{ID: newID(), AgentID: agentID}
		s.b.webChats[agentID] = w
	}
	return &w, nil
}

func (s integrations) Update(_ context.Context, w *remote.WebChat) (*remote.WebChat, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.fail("integration.update"); err != nil {
		return nil, err
	}
	prev, ok := s.b.webChats[w.AgentID]
	if !ok {
		return nil, notFound("web chat", w.AgentID)
	}
	stored := *w
	stored.ID = prev.ID
	s.b.webChats[w.AgentID] = stored
	return &stored, nil
}
