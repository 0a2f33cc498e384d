package nodes

import (
	"fmt"

	"github.com/meikuraledutech/canvas"
)

// AllowedConnections returns the handle roles a node kind exposes. The
// shell only renders handles for these roles, so a drag gesture can only
// start or end where a handle exists.
func AllowedConnections(kind canvas.NodeKind) []canvas.HandleRole {
	switch kind {
	case canvas.KindAgent:
		return []canvas.HandleRole{canvas.RoleSource, canvas.RoleTarget}
	case canvas.KindFunction:
		return []canvas.HandleRole{canvas.RoleTarget}
	case canvas.KindIntegration:
		return []canvas.HandleRole{canvas.RoleSource}
	case canvas.KindIntegrationItem:
		return []canvas.HandleRole{canvas.RoleTarget}
	}
	return nil
}

// Allows reports whether kind exposes role.
func Allows(kind canvas.NodeKind, role canvas.HandleRole) bool {
	for _, r := range AllowedConnections(kind) {
		if r == role {
			return true
		}
	}
	return false
}

// defaultAnchor is where each role's handle points for curve shaping.
func defaultAnchor(role canvas.HandleRole) canvas.Anchor {
	if role == canvas.RoleSource {
		return canvas.AnchorRight
	}
	return canvas.AnchorLeft
}

// ValidateConnection checks a raw connection against the handles the two
// nodes expose. Callers that do not go through rendered handles (the HTTP
// API) use this in place of the structural gate.
func ValidateConnection(source, target canvas.Node) error {
	if !Allows(source.Type, canvas.RoleSource) {
		return fmt.Errorf("nodes: %s %s has no source handle: %w", source.Type, source.ID, canvas.ErrConnectionNotAllowed)
	}
	if !Allows(target.Type, canvas.RoleTarget) {
		return fmt.Errorf("nodes: %s %s has no target handle: %w", target.Type, target.ID, canvas.ErrConnectionNotAllowed)
	}
	return nil
}
