package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"kbweb/application/queries"
	querybus "kbweb/application/queries/bus"
	"kbweb/pkg/errors"
)

// GraphHandler runs template queries and returns the assembled result graph.
// The same graph is pushed to the user's viewers.
type GraphHandler struct {
	base
	queryBus *querybus.QueryBus
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(queryBus *querybus.QueryBus, errHandler *errors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		base:     base{errors: errHandler, logger: logger},
		queryBus: queryBus,
	}
}

// TemplateRequest carries SCs text
type TemplateRequest struct {
	Template string `json:"template"`
}

// FindRequest carries the editor text whose last line names an element
type FindRequest struct {
	Text string `json:"text"`
}

// GenerateRequest carries the SCs text to generate
type GenerateRequest struct {
	Template string `json:"template"`
}

// Search handles POST /search
func (h *GraphHandler) Search(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req TemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ask(w, r, queries.SearchTemplateQuery{UserID: user.UserID, Template: req.Template})
}

// Find handles POST /find
func (h *GraphHandler) Find(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req FindRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ask(w, r, queries.FindByIdentifierQuery{UserID: user.UserID, Text: req.Text})
}

// Generate handles POST /generate
func (h *GraphHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ask(w, r, queries.GenerateTemplateQuery{UserID: user.UserID, Template: req.Template})
}

func (h *GraphHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// ListTemplates handles GET /templates
func (h *GraphHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListTemplatesQuery{})
}
