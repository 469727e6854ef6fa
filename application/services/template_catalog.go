package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
)

// TemplatesListener is notified with the full template list
type TemplatesListener func(templates []entities.KBTemplate)

// TemplateCatalog holds the SCs templates stored in the knowledge base for
// the editor user:
//
//	user => nrel_web_templates: { template ... }
//	template => nrel_scs_template: [SCs text]
//	template => nrel_main_idtf: [title]
//
// The built-in example template always comes first.
type TemplateCatalog struct {
	graph    ports.GraphService
	keynodes *Keynodes
	userIdtf string
	logger   *zap.Logger

	mu        sync.RWMutex
	templates []entities.KBTemplate
	listeners map[int]TemplatesListener
	nextID    int
}

// NewTemplateCatalog creates a catalog holding only the example template
func NewTemplateCatalog(graph ports.GraphService, keynodes *Keynodes, userIdtf string, logger *zap.Logger) *TemplateCatalog {
	return &TemplateCatalog{
		graph:     graph,
		keynodes:  keynodes,
		userIdtf:  userIdtf,
		logger:    logger,
		templates: []entities.KBTemplate{entities.ExampleTemplate()},
		listeners: make(map[int]TemplatesListener),
	}
}

// Templates returns a copy of the current list
func (c *TemplateCatalog) Templates() []entities.KBTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entities.KBTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// Subscribe registers fn and calls it right away with the current list. The
// returned function removes the subscription.
func (c *TemplateCatalog) Subscribe(fn TemplatesListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	fn(c.Templates())

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Reload reads the templates from the knowledge base, replaces the list and
// notifies every listener.
func (c *TemplateCatalog) Reload(ctx context.Context) ([]entities.KBTemplate, error) {
	templates, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.templates = templates
	listeners := make([]TemplatesListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(templates)
	}

	c.logger.Info("Templates loaded", zap.Int("count", len(templates)))
	return templates, nil
}

func (c *TemplateCatalog) load(ctx context.Context) ([]entities.KBTemplate, error) {
	keys, err := c.keynodes.Require(c.userIdtf, IdtfNrelWebTemplates, IdtfNrelSCsTemplate, IdtfNrelMainIdtf)
	if err != nil {
		return nil, err
	}
	user, nrelWebTemplates, nrelSCsTemplate, nrelMainIdtf := keys[0], keys[1], keys[2], keys[3]

	tmpl := entities.NewTemplate().
		TripleWithRelation(
			entities.FixedAs(user, "_user"),
			entities.Var(valueobjects.TypeEdgeDCommonVar),
			entities.VarAs(valueobjects.TypeNodeVar, "_templates"),
			entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
			entities.Fixed(nrelWebTemplates),
		).
		Triple(
			entities.Ref("_templates"),
			entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
			entities.VarAs(valueobjects.TypeNodeVar, "_templ"),
		).
		TripleWithRelation(
			entities.Ref("_templ"),
			entities.Var(valueobjects.TypeEdgeDCommonVar),
			entities.VarAs(valueobjects.TypeLinkVar, "_scs_templ"),
			entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
			entities.Fixed(nrelSCsTemplate),
		).
		TripleWithRelation(
			entities.Ref("_templ"),
			entities.Var(valueobjects.TypeEdgeDCommonVar),
			entities.VarAs(valueobjects.TypeLinkVar, "_title"),
			entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
			entities.Fixed(nrelMainIdtf),
		)

	records, err := c.graph.SearchTemplate(ctx, ports.TemplateQuery{Template: tmpl})
	if err != nil {
		return nil, fmt.Errorf("search templates: %w", err)
	}

	templates := []entities.KBTemplate{entities.ExampleTemplate()}
	if len(records) == 0 {
		return templates, nil
	}

	var templAddrs, titleAddrs, scsAddrs []valueobjects.Addr
	for _, r := range records {
		templ, err := r.MustGet("_templ")
		if err != nil {
			return nil, err
		}
		title, err := r.MustGet("_title")
		if err != nil {
			return nil, err
		}
		scs, err := r.MustGet("_scs_templ")
		if err != nil {
			return nil, err
		}
		templAddrs = append(templAddrs, templ)
		titleAddrs = append(titleAddrs, title)
		scsAddrs = append(scsAddrs, scs)
	}

	// titles and bodies in one batch
	contents, err := c.graph.FetchLinkContents(ctx, append(append([]valueobjects.Addr{}, titleAddrs...), scsAddrs...))
	if err != nil {
		return nil, fmt.Errorf("fetch template contents: %w", err)
	}
	if len(contents) != len(titleAddrs)*2 {
		return nil, fmt.Errorf("fetch template contents: requested %d, received %d", len(titleAddrs)*2, len(contents))
	}

	n := len(titleAddrs)
	for i := 0; i < n; i++ {
		templates = append(templates, entities.KBTemplate{
			Addr:    templAddrs[i],
			Title:   contents[i].Text(),
			Content: contents[n+i].Text(),
		})
	}
	return templates, nil
}
