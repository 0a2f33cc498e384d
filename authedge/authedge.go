// Package authedge binds authenticators to function nodes through the
// edge that connects them.
package authedge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/geometry"
	"github.com/meikuraledutech/canvas/graph"
	"github.com/meikuraledutech/canvas/remote"
)

const (
	IconLocked   = "lock"
	IconUnlocked = "unlock"
)

// View is the render descriptor of an auth edge: a light curve with an
// icon button at its label point.
type View struct {
	EdgeID          string          `json:"edgeId"`
	Params          geometry.Params `json:"params"`
	Icon            string          `json:"icon"`
	AuthenticatorID string          `json:"authenticatorId,omitempty"`
}

// Option is one row of the authenticator picker.
type Option struct {
	Authenticator remote.Authenticator `json:"authenticator"`
	Bound         bool                 `json:"bound"`
}

// Binding is a pending change to an edge's authenticator.
type Binding struct {
	EdgeID          string
	FunctionID      string
	AuthenticatorID string // empty unassigns
}

// Binder runs the assign/unassign flow against a model.
type Binder struct {
	model     *graph.Model
	curvature float64
	services  remote.Services
	runner    *remote.Runner
	logger    *zap.Logger
}

// New creates a Binder.
func New(model *graph.Model, services remote.Services, runner *remote.Runner, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = remote.NewRunner(nil, logger)
	}
	return &Binder{
		model:    model,
		services: services,
		runner:   runner,
		logger:   logger.With(zap.String("component", "auth_edge")),
	}
}

// WithCurvature sets the curvature of rendered auth edges. Zero keeps
// geometry.DefaultCurvature.
func (b *Binder) WithCurvature(c float64) *Binder {
	b.curvature = c
	return b
}

// View renders e between two node boxes.
func (b *Binder) View(e canvas.Edge, source, target geometry.Box) View {
	v := View{
		EdgeID: e.ID,
		Params: geometry.AuthEdgeParams(source, target, e.SourceHandle.Anchor(), e.TargetHandle.Anchor(), b.curvature),
		Icon:   IconUnlocked,
	}
	if e.Data != nil && e.Data.AuthenticatorID != "" {
		v.Icon = IconLocked
		v.AuthenticatorID = e.Data.AuthenticatorID
	}
	return v
}

// Options lists the organization's authenticators, marking the one bound
// to edgeID.
func (b *Binder) Options(ctx context.Context, edgeID, organizationID string) ([]Option, error) {
	e, ok := b.model.Edge(edgeID)
	if !ok {
		return nil, fmt.Errorf("authedge: edge %s: %w", edgeID, canvas.ErrEdgeNotFound)
	}
	return b.List(ctx, boundID(e), organizationID)
}

// List fetches the organization's authenticators and marks bound. It
// does not read the model.
func (b *Binder) List(ctx context.Context, bound, organizationID string) ([]Option, error) {
	list, err := remote.Do(ctx, b.runner, remote.Operation{
		Title: "Autenticadores",
		Error: "No se pudieron cargar los autenticadores",
	}, func(ctx context.Context) ([]remote.Authenticator, error) {
		return b.services.Authenticators.FetchAll(ctx, organizationID)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(list))
	for _, a := range list {
		out = append(out, Option{Authenticator: a, Bound: a.ID == bound})
	}
	return out, nil
}

// Prepare resolves what selecting authenticatorID on edgeID means.
// Selecting the authenticator already bound turns into an unassign.
func (b *Binder) Prepare(edgeID, authenticatorID string) (Binding, error) {
	e, ok := b.model.Edge(edgeID)
	if !ok {
		return Binding{}, fmt.Errorf("authedge: edge %s: %w", edgeID, canvas.ErrEdgeNotFound)
	}
	fnID := ""
	if e.Data != nil {
		fnID = e.Data.FunctionID
	}
	if fnID == "" {
		if target, ok := b.model.Node(e.Target); ok {
			fnID = target.Data.FunctionID
		}
	}
	if fnID == "" {
		return Binding{}, fmt.Errorf("authedge: edge %s has no function: %w", edgeID, canvas.ErrFunctionNotFound)
	}

	next := authenticatorID
	if next != "" && next == boundID(e) {
		next = ""
	}
	return Binding{EdgeID: edgeID, FunctionID: fnID, AuthenticatorID: next}, nil
}

// Assign performs the remote call for bd. It does not touch the model.
func (b *Binder) Assign(ctx context.Context, bd Binding) error {
	op := remote.Operation{
		Title:   "Asignar autenticador",
		Success: "Autenticador asignado",
		Error:   "No se pudo asignar el autenticador",
	}
	if bd.AuthenticatorID == "" {
		op = remote.Operation{
			Title:   "Quitar autenticador",
			Success: "Autenticador quitado",
			Error:   "No se pudo quitar el autenticador",
		}
	}
	return b.runner.Run(ctx, op, func(ctx context.Context) error {
		_, err := b.services.Functions.AssignAuthenticator(ctx, bd.FunctionID, bd.AuthenticatorID)
		return err
	})
}

// Apply writes a successful binding into the model.
func (b *Binder) Apply(bd Binding) (canvas.Edge, error) {
	e, err := b.model.ReplaceEdgeData(bd.EdgeID, graph.EdgePatch{
		FunctionID:      &bd.FunctionID,
		AuthenticatorID: &bd.AuthenticatorID,
	})
	if err != nil {
		b.logger.Warn("binding settled after edge was removed",
			zap.String("edge_id", bd.EdgeID), zap.Error(err))
		return canvas.Edge{}, err
	}
	return e, nil
}

// Select runs Prepare, Assign and Apply in sequence. On a remote failure
// the edge is left as it was.
func (b *Binder) Select(ctx context.Context, edgeID, authenticatorID string) (canvas.Edge, error) {
	bd, err := b.Prepare(edgeID, authenticatorID)
	if err != nil {
		return canvas.Edge{}, err
	}
	if err := b.Assign(ctx, bd); err != nil {
		return canvas.Edge{}, err
	}
	return b.Apply(bd)
}

// BoundID returns the authenticator bound to e, if any.
func BoundID(e canvas.Edge) string { return boundID(e) }

func boundID(e canvas.Edge) string {
	if e.Data == nil {
		return ""
	}
	return e.Data.AuthenticatorID
}
