package scnet

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	apperrors "kbweb/pkg/errors"
)

// GraphService implements ports.GraphService over a Client
type GraphService struct {
	client     *Client
	labelLimit int
	logger     *zap.Logger

	// nrel_system_identifier, resolved on first label lookup
	sysIdtfMu    sync.Mutex
	sysIdtf      valueobjects.Addr
	sysIdtfKnown bool
}

var _ ports.GraphService = (*GraphService)(nil)

// NewGraphService wraps client. labelLimit bounds concurrent label searches.
func NewGraphService(client *Client, labelLimit int, logger *zap.Logger) *GraphService {
	if labelLimit <= 0 {
		labelLimit = 8
	}
	return &GraphService{
		client:     client,
		labelLimit: labelLimit,
		logger:     logger,
	}
}

// Client returns the underlying connection
func (g *GraphService) Client() *Client {
	return g.client
}

// ClassifyElements implements ports.ElementReader
func (g *GraphService) ClassifyElements(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.ElementType, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	var types []valueobjects.ElementType
	if err := g.client.Call(ctx, TypeCheckElements, addrs, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// FetchLinkContents implements ports.ElementReader
func (g *GraphService) FetchLinkContents(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.LinkContent, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	commands := make([]contentCommand, len(addrs))
	for i, addr := range addrs {
		commands[i] = contentCommand{Command: "get", Addr: addr}
	}
	var contents []valueobjects.LinkContent
	if err := g.client.Call(ctx, TypeContent, commands, &contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// SetLinkContents implements ports.GraphService
func (g *GraphService) SetLinkContents(ctx context.Context, updates []ports.LinkContentUpdate) ([]bool, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	commands := make([]contentCommand, len(updates))
	for i, u := range updates {
		commands[i] = contentCommand{
			Command: "set",
			Addr:    u.Addr,
			Type:    string(u.Content.Kind()),
			Data:    u.Content.WireValue(),
		}
	}
	var ok []bool
	if err := g.client.Call(ctx, TypeContent, commands, &ok); err != nil {
		return nil, err
	}
	if len(ok) != len(updates) {
		return nil, apperrors.NewCountMismatchError("set link contents", len(updates), len(ok))
	}
	return ok, nil
}

// FindLinksByContent implements ports.GraphService
func (g *GraphService) FindLinksByContent(ctx context.Context, content string) ([]valueobjects.Addr, error) {
	var found [][]valueobjects.Addr
	commands := []contentCommand{{Command: "find", Data: content}}
	if err := g.client.Call(ctx, TypeContent, commands, &found); err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, apperrors.NewCountMismatchError("find links", 1, len(found))
	}
	return found[0], nil
}

// ResolveKeynodes implements ports.GraphService
func (g *GraphService) ResolveKeynodes(ctx context.Context, requests []ports.KeynodeRequest) ([]valueobjects.Addr, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	commands := make([]keynodeCommand, len(requests))
	for i, req := range requests {
		commands[i] = keynodeCommand{Command: "find", Idtf: req.Identifier}
		if req.Type != valueobjects.TypeUnknown {
			commands[i].Command = "resolve"
			commands[i].ElType = req.Type
		}
	}
	var addrs []valueobjects.Addr
	if err := g.client.Call(ctx, TypeKeynodes, commands, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// searchBody is the SCs text or the triple list itself; search_template
// takes no wrapper object.
func searchBody(query ports.TemplateQuery) (interface{}, error) {
	if query.Template == nil {
		return query.SCs, nil
	}
	if err := query.Template.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return query.Template, nil
}

// generateBody sends SCs text bare. Params can only be bound to a structured
// template, which travels as {"templ", "params"}.
func generateBody(query ports.TemplateQuery) (interface{}, error) {
	if query.Template == nil {
		if len(query.Params) > 0 {
			return nil, apperrors.NewValidationError("template params require a structured template")
		}
		return query.SCs, nil
	}
	if err := query.Template.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	params := query.Params
	if params == nil {
		params = map[string]valueobjects.Addr{}
	}
	return generatePayload{Templ: query.Template, Params: params}, nil
}

// SearchTemplate implements ports.GraphService
func (g *GraphService) SearchTemplate(ctx context.Context, query ports.TemplateQuery) ([]*entities.MatchRecord, error) {
	body, err := searchBody(query)
	if err != nil {
		return nil, err
	}
	var result searchResult
	if err := g.client.Call(ctx, TypeSearchTemplate, body, &result); err != nil {
		return nil, err
	}

	records := make([]*entities.MatchRecord, 0, len(result.Addrs))
	for _, addrs := range result.Addrs {
		records = append(records, entities.NewMatchRecord(addrs, result.Aliases))
	}
	return records, nil
}

// GenerateTemplate implements ports.GraphService
func (g *GraphService) GenerateTemplate(ctx context.Context, query ports.TemplateQuery) (*entities.MatchRecord, error) {
	body, err := generateBody(query)
	if err != nil {
		return nil, err
	}
	var result *generateResult
	if err := g.client.Call(ctx, TypeGenerateTemplate, body, &result); err != nil {
		return nil, err
	}
	if result == nil || len(result.Addrs) == 0 {
		return nil, nil
	}
	return entities.NewMatchRecord(result.Addrs, result.Aliases), nil
}

// CreateElements implements ports.GraphService
func (g *GraphService) CreateElements(ctx context.Context, construction *entities.Construction) ([]valueobjects.Addr, error) {
	if err := construction.Err(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if construction.Len() == 0 {
		return nil, nil
	}
	var addrs []valueobjects.Addr
	if err := g.client.Call(ctx, TypeCreateElements, construction, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// DeleteElements implements ports.GraphService
func (g *GraphService) DeleteElements(ctx context.Context, addrs []valueobjects.Addr) error {
	if len(addrs) == 0 {
		return nil
	}
	return g.client.Call(ctx, TypeDeleteElements, addrs, nil)
}

// Subscribe implements ports.GraphService
func (g *GraphService) Subscribe(ctx context.Context, kind ports.EventKind, addr valueobjects.Addr) (ports.Subscription, error) {
	return g.client.Subscribe(ctx, kind, addr)
}

// Unsubscribe implements ports.GraphService
func (g *GraphService) Unsubscribe(ctx context.Context, sub ports.Subscription) error {
	return g.client.Unsubscribe(ctx, sub)
}
