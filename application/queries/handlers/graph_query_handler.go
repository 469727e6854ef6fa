package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/application/queries"
	"kbweb/application/services"
	"kbweb/domain/core/aggregates"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/domain/events"
	"kbweb/pkg/common"
	"kbweb/pkg/errors"
)

// GraphQueryHandler runs template queries against the Graph Service, turns
// the matches into a result graph and hands it to the renderer.
type GraphQueryHandler struct {
	graph     ports.GraphService
	assembler *services.ResultAssembler
	keynodes  *services.Keynodes
	renderer  ports.Renderer
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewGraphQueryHandler creates a new graph query handler
func NewGraphQueryHandler(
	graph ports.GraphService,
	assembler *services.ResultAssembler,
	keynodes *services.Keynodes,
	renderer ports.Renderer,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *GraphQueryHandler {
	return &GraphQueryHandler{
		graph:     graph,
		assembler: assembler,
		keynodes:  keynodes,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleSearch executes a SearchTemplateQuery
func (h *GraphQueryHandler) HandleSearch(ctx context.Context, query queries.SearchTemplateQuery) (*queries.GraphResult, error) {
	records, err := h.graph.SearchTemplate(ctx, ports.TemplateQuery{SCs: query.Template})
	if err != nil {
		return nil, errors.Wrap(err, "search template")
	}
	return h.publish(ctx, query.UserID, "search", records)
}

// HandleFind executes a FindByIdentifierQuery: the element named by the last
// line of the text is shown with its main identifier link.
func (h *GraphQueryHandler) HandleFind(ctx context.Context, query queries.FindByIdentifierQuery) (*queries.GraphResult, error) {
	idtf := entities.LastLine(query.Text)

	addrs, err := h.graph.ResolveKeynodes(ctx, []ports.KeynodeRequest{{Identifier: idtf}})
	if err != nil {
		return nil, errors.Wrap(err, "find identifier")
	}
	if len(addrs) != 1 {
		return nil, errors.NewCountMismatchError("find identifier", 1, len(addrs))
	}
	if !addrs[0].IsValid() {
		return nil, errors.NewNotFoundError("element " + idtf)
	}

	nrelMainIdtf, ok := h.keynodes.Get(services.IdtfNrelMainIdtf)
	if !ok {
		return nil, errors.NewUnavailableError("keynode " + services.IdtfNrelMainIdtf)
	}

	tmpl := entities.NewTemplate().TripleWithRelation(
		entities.Fixed(addrs[0]),
		entities.Var(valueobjects.TypeEdgeDCommonVar),
		entities.VarAs(valueobjects.TypeLinkVar, "_link"),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.Fixed(nrelMainIdtf),
	)

	records, err := h.graph.SearchTemplate(ctx, ports.TemplateQuery{Template: tmpl})
	if err != nil {
		return nil, errors.Wrap(err, "search main identifier")
	}
	return h.publish(ctx, query.UserID, "find", records)
}

// HandleGenerate executes a GenerateTemplateQuery
func (h *GraphQueryHandler) HandleGenerate(ctx context.Context, query queries.GenerateTemplateQuery) (*queries.GraphResult, error) {
	record, err := h.graph.GenerateTemplate(ctx, ports.TemplateQuery{SCs: query.Template})
	if err != nil {
		return nil, errors.Wrap(err, "generate template")
	}

	var records []*entities.MatchRecord
	if record != nil {
		records = append(records, record)
	}
	return h.publish(ctx, query.UserID, "generate", records)
}

func (h *GraphQueryHandler) publish(ctx context.Context, userID, kind string, records []*entities.MatchRecord) (*queries.GraphResult, error) {
	graph, err := h.assembler.Assemble(ctx, records)
	if err != nil {
		return nil, err
	}

	ctx = common.WithUserID(ctx, userID)
	if err := h.renderer.Render(ctx, graph); err != nil {
		// the graph is still returned to the caller
		h.logger.Warn("Failed to render result",
			zap.String("userID", userID),
			zap.String("graphID", graph.ID().String()),
			zap.Error(err),
		)
	}

	h.publishAssembled(ctx, userID, kind, graph)

	return &queries.GraphResult{
		Graph:   graph,
		Matches: len(records),
	}, nil
}

func (h *GraphQueryHandler) publishAssembled(ctx context.Context, userID, kind string, graph *aggregates.ResultGraph) {
	if h.publisher == nil {
		return
	}
	event := events.NewResultAssembled(
		graph.ID().String(),
		userID,
		kind,
		graph.ObjectCount(),
		graph.ConnectionCount(),
		time.Now(),
	)
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}

// ListTemplatesHandler answers ListTemplatesQuery from the catalog
type ListTemplatesHandler struct {
	catalog *services.TemplateCatalog
}

// NewListTemplatesHandler creates a new list templates handler
func NewListTemplatesHandler(catalog *services.TemplateCatalog) *ListTemplatesHandler {
	return &ListTemplatesHandler{catalog: catalog}
}

// Handle executes the query
func (h *ListTemplatesHandler) Handle(ctx context.Context, query queries.ListTemplatesQuery) (*queries.ListTemplatesResult, error) {
	return &queries.ListTemplatesResult{Templates: h.catalog.Templates()}, nil
}
