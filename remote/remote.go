// Package remote declares the backend collaborators the canvas talks to
// and the loading/success/error contract every call goes through.
// Transport is not defined here; implementations live elsewhere.
package remote

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("remote: resource not found")

// Agent is a conversational agent owned by an organization.
type Agent struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Functions      []Function `json:"functions,omitempty"`
}

// ResourceID implements nodes.Resource.
func (a *Agent) ResourceID() string { return a.ID }

// Function is a callable an agent delegates to.
type Function struct {
	ID              string  `json:"id"`
	AgentID         string  `json:"agentId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	AuthenticatorID string  `json:"authenticatorId,omitempty"`
	Params          []Param `json:"params,omitempty"`
}

func (f *Function) ResourceID() string { return f.ID }

// Param is one argument of a Function.
type Param struct {
	ID          string `json:"id"`
	FunctionID  string `json:"functionId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Authenticator is a credential that can be bound to functions.
type Authenticator struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Config         map[string]any `json:"config,omitempty"`
}

// KnowledgeBase is a document source attached to an agent.
type KnowledgeBase struct {
	ID      string `json:"id"`
	AgentID string `json:"agentId"`
	Name    string `json:"name"`
	Source  string `json:"source"`
}

// WebChat is the web chat channel integration of an agent.
type WebChat struct {
	ID       string         `json:"id"`
	AgentID  string         `json:"agentId"`
	Enabled  bool           `json:"enabled"`
	Settings map[string]any `json:"settings,omitempty"`
}

func (w *WebChat) ResourceID() string { return w.ID }

type AgentService interface {
	GetByID(ctx context.Context, id string) (*Agent, error)
	Update(ctx context.Context, a *Agent) (*Agent, error)
}

type FunctionService interface {
	Create(ctx context.Context, f *Function) (*Function, error)
	Update(ctx context.Context, f *Function) (*Function, error)
	Delete(ctx context.Context, id string) error
	// AssignAuthenticator binds authenticatorID to the function; an empty
	// id removes the binding.
	AssignAuthenticator(ctx context.Context, functionID, authenticatorID string) (*Function, error)
}

type AuthenticatorService interface {
	FetchAll(ctx context.Context, organizationID string) ([]Authenticator, error)
	Create(ctx context.Context, a *Authenticator) (*Authenticator, error)
	Update(ctx context.Context, a *Authenticator) (*Authenticator, error)
	Remove(ctx context.Context, id string) error
}

type ParamService interface {
	Create(ctx context.Context, p *Param) (*Param, error)
	Update(ctx context.Context, p *Param) (*Param, error)
	Delete(ctx context.Context, id string) error
}

type KnowledgeBaseService interface {
	Create(ctx context.Context, kb *KnowledgeBase) (*KnowledgeBase, error)
	List(ctx context.Context, agentID string) ([]KnowledgeBase, error)
	Delete(ctx context.Context, id string) error
}

type IntegrationService interface {
	GetWebChat(ctx context.Context, agentID string) (*WebChat, error)
	Update(ctx context.Context, w *WebChat) (*WebChat, error)
}

// Services bundles every collaborator.
type Services struct {
	Agents         AgentService
	Functions      FunctionService
	Authenticators AuthenticatorService
	Params         ParamService
	KnowledgeBases KnowledgeBaseService
	Integrations   IntegrationService
}
