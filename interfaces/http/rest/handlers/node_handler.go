package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"kbweb/application/commands"
	"kbweb/application/commands/bus"
	"kbweb/pkg/errors"
)

// NodeHandler handles commands that change the knowledge base
type NodeHandler struct {
	base
	commandBus *bus.CommandBus
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(commandBus *bus.CommandBus, errHandler *errors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		base:       base{errors: errHandler, logger: logger},
		commandBus: commandBus,
	}
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	Identifier string `json:"identifier"`
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req CreateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.CreateNodeCommand{
		UserID:     user.UserID,
		Identifier: req.Identifier,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, result.Data)
}

// ReloadTemplates handles POST /templates/reload
func (h *NodeHandler) ReloadTemplates(w http.ResponseWriter, r *http.Request) {
	result, err := h.commandBus.Send(r.Context(), commands.ReloadTemplatesCommand{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"templates": result.Data})
}
