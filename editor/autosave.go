package editor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
)

// AutosaveTimeout bounds each store write made by Autosave.
const AutosaveTimeout = 5 * time.Second

// Autosave mirrors every node and edge change of s into store until the
// returned func is called. Write failures are logged; the session is not
// affected by them.
func Autosave(s *Session, store canvas.Store) (stop func()) {
	logger := s.logger.With(zap.String("component", "autosave"))
	return s.Subscribe(func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), AutosaveTimeout)
		defer cancel()
		if err := persist(ctx, store, ev); err != nil {
			logger.Error("autosave failed",
				zap.String("event", string(ev.Type)),
				zap.String("id", ev.ID),
				zap.Error(err))
		}
	})
}

func persist(ctx context.Context, store canvas.Store, ev Event) error {
	switch ev.Type {
	case NodeAdded, NodeUpdated:
		return store.UpsertNode(ctx, ev.GraphID, ev.Node)
	case NodeRemoved:
		return store.DeleteNode(ctx, ev.GraphID, ev.ID)
	case EdgeAdded, EdgeUpdated:
		return store.UpsertEdge(ctx, ev.GraphID, ev.Edge)
	case EdgeRemoved:
		return store.DeleteEdge(ctx, ev.GraphID, ev.ID)
	}
	return nil
}
