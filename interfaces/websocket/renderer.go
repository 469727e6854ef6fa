package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/domain/core/aggregates"
	"kbweb/domain/core/entities"
	"kbweb/pkg/common"
	"kbweb/pkg/errors"
)

// GraphRenderer pushes result graphs to the viewers of the requesting user.
// The latest graph of each user is kept and replayed to viewers that connect
// later, so a viewer always shows the last result.
type GraphRenderer struct {
	hub    *Hub
	logger *zap.Logger

	mu     sync.RWMutex
	latest map[string][]byte
}

var _ ports.Renderer = (*GraphRenderer)(nil)

// NewGraphRenderer creates a renderer on hub
func NewGraphRenderer(hub *Hub, logger *zap.Logger) *GraphRenderer {
	r := &GraphRenderer{
		hub:    hub,
		logger: logger,
		latest: make(map[string][]byte),
	}
	hub.OnRegister(r.replay)
	return r
}

// Render implements ports.Renderer. The graph replaces whatever the user's
// viewers showed before.
func (r *GraphRenderer) Render(ctx context.Context, graph *aggregates.ResultGraph) error {
	userID, ok := common.GetUserID(ctx)
	if !ok || userID == "" {
		return errors.NewValidationError("no viewer in context")
	}

	data, err := encodeMessage(EventResultGraph, graph)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.latest[userID] = data
	r.mu.Unlock()

	return r.hub.enqueue(ctx, delivery{userID: userID, data: data})
}

// DiscardRenderer drops every result. It stands in where no hub runs.
type DiscardRenderer struct{}

var _ ports.Renderer = DiscardRenderer{}

// Render implements ports.Renderer
func (DiscardRenderer) Render(context.Context, *aggregates.ResultGraph) error {
	return nil
}

// Latest returns the encoded last result of a user
func (r *GraphRenderer) Latest(userID string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.latest[userID]
	return data, ok
}

func (r *GraphRenderer) replay(c *Client) {
	data, ok := r.Latest(c.userID)
	if !ok {
		return
	}
	if !c.trySend(data) {
		r.logger.Warn("Failed to replay result", zap.String("connectionID", c.id))
	}
}

// PublishTemplates tells every viewer that the template list changed. It is
// meant as a services.TemplatesListener.
func (r *GraphRenderer) PublishTemplates(templates []entities.KBTemplate) {
	if err := r.hub.SendToAll(context.Background(), EventTemplatesUpdated, templates); err != nil {
		r.logger.Warn("Failed to publish templates", zap.Error(err))
	}
}
