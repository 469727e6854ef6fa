package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/application/services"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/domain/events"
	"kbweb/pkg/errors"
	"kbweb/pkg/utils"
)

// CreateNodeCommand creates a node whose main and system identifier is Identifier
type CreateNodeCommand struct {
	UserID     string `json:"user_id" validate:"required"`
	Identifier string `json:"identifier" validate:"required,max=255"`
}

// Validate validates the command
func (cmd CreateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return err
	}
	if err := entities.ValidateIdentifier(cmd.Identifier); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// CreateNodeResult is the outcome of CreateNodeCommand
type CreateNodeResult struct {
	Node valueobjects.Addr `json:"node"`
	Link valueobjects.Addr `json:"link"`
}

// CreateNodeHandler handles the CreateNodeCommand
type CreateNodeHandler struct {
	graph     ports.GraphService
	keynodes  *services.Keynodes
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewCreateNodeHandler creates a new handler instance
func NewCreateNodeHandler(
	graph ports.GraphService,
	keynodes *services.Keynodes,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *CreateNodeHandler {
	return &CreateNodeHandler{
		graph:     graph,
		keynodes:  keynodes,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle creates, in one batch:
//
//	node => nrel_main_idtf: [identifier];
//	node => nrel_system_identifier: [identifier];
//
// sharing one common edge and one string link.
func (h *CreateNodeHandler) Handle(ctx context.Context, cmd CreateNodeCommand) (*CreateNodeResult, error) {
	keys, err := h.keynodes.Require(services.IdtfNrelMainIdtf, services.IdtfNrelSystemIdentifier)
	if err != nil {
		return nil, errors.NewUnavailableError("keynodes").WithCause(err)
	}

	construction := entities.NewConstruction().
		CreateNode(valueobjects.TypeNodeConst, "node").
		CreateLink(valueobjects.TypeLinkConst, valueobjects.NewStringContent(cmd.Identifier), "link").
		CreateEdge(valueobjects.TypeEdgeDCommonConst, entities.RefEndpoint("node"), entities.RefEndpoint("link"), "edge").
		CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.AddrEndpoint(keys[0]), entities.RefEndpoint("edge"), "").
		CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.AddrEndpoint(keys[1]), entities.RefEndpoint("edge"), "")
	if err := construction.Err(); err != nil {
		return nil, fmt.Errorf("build construction: %w", err)
	}

	addrs, err := h.graph.CreateElements(ctx, construction)
	if err != nil {
		return nil, errors.Wrap(err, "create node")
	}
	if len(addrs) != construction.Len() {
		return nil, errors.NewCountMismatchError("create node", construction.Len(), len(addrs))
	}

	nodeIdx, _ := construction.IndexOf("node")
	linkIdx, _ := construction.IndexOf("link")
	result := &CreateNodeResult{Node: addrs[nodeIdx], Link: addrs[linkIdx]}

	h.logger.Info("Node created",
		zap.String("userID", cmd.UserID),
		zap.String("identifier", cmd.Identifier),
		zap.Stringer("node", result.Node),
	)

	if h.publisher != nil {
		event := events.NewNodeCreated(result.Node, cmd.UserID, cmd.Identifier, time.Now())
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.Warn("Failed to publish event", zap.String("eventType", event.GetEventType()), zap.Error(err))
		}
	}

	return result, nil
}

// ReloadTemplatesCommand rereads the editor templates from the knowledge base
type ReloadTemplatesCommand struct{}

// Validate validates the command
func (cmd ReloadTemplatesCommand) Validate() error {
	return nil
}

// ReloadTemplatesHandler handles the ReloadTemplatesCommand
type ReloadTemplatesHandler struct {
	catalog *services.TemplateCatalog
}

// NewReloadTemplatesHandler creates a new handler instance
func NewReloadTemplatesHandler(catalog *services.TemplateCatalog) *ReloadTemplatesHandler {
	return &ReloadTemplatesHandler{catalog: catalog}
}

// Handle executes the command and returns the fresh list
func (h *ReloadTemplatesHandler) Handle(ctx context.Context, cmd ReloadTemplatesCommand) ([]entities.KBTemplate, error) {
	return h.catalog.Reload(ctx)
}
