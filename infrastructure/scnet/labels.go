package scnet

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"kbweb/application/ports"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
)

const labelIdtfKeynode = "nrel_system_identifier"

// ResolveLabels implements ports.ElementReader. The label of an element is
// the content of its nrel_system_identifier link. Lookups run concurrently,
// then every label link is read in one batch.
func (g *GraphService) ResolveLabels(ctx context.Context, addrs []valueobjects.Addr) (map[valueobjects.Addr]string, error) {
	labels := make(map[valueobjects.Addr]string)
	if len(addrs) == 0 {
		return labels, nil
	}

	sysIdtf, err := g.systemIdentifier(ctx)
	if err != nil {
		return nil, err
	}
	if !sysIdtf.IsValid() {
		return labels, nil
	}

	var (
		mu    sync.Mutex
		owner = make(map[valueobjects.Addr]valueobjects.Addr, len(addrs))
	)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.labelLimit)
	for _, addr := range addrs {
		addr := addr
		eg.Go(func() error {
			link, err := g.identifierLink(egctx, addr, sysIdtf)
			if err != nil || !link.IsValid() {
				return err
			}
			mu.Lock()
			owner[link] = addr
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(owner) == 0 {
		return labels, nil
	}

	links := make([]valueobjects.Addr, 0, len(owner))
	for link := range owner {
		links = append(links, link)
	}
	contents, err := g.FetchLinkContents(ctx, links)
	if err != nil {
		return nil, err
	}
	if len(contents) != len(links) {
		// labels are optional; a short reply is dropped, not fatal
		g.logger.Warn("Label content count mismatch")
		return labels, nil
	}
	for i, link := range links {
		if text := contents[i].Text(); text != "" {
			labels[owner[link]] = text
		}
	}
	return labels, nil
}

// identifierLink finds addr ⇒ nrel_system_identifier: _link
func (g *GraphService) identifierLink(ctx context.Context, addr, sysIdtf valueobjects.Addr) (valueobjects.Addr, error) {
	const alias = "_link"
	tmpl := entities.NewTemplate().TripleWithRelation(
		entities.Fixed(addr),
		entities.Var(valueobjects.TypeEdgeDCommonVar),
		entities.VarAs(valueobjects.TypeLinkVar, alias),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.Fixed(sysIdtf),
	)
	records, err := g.SearchTemplate(ctx, ports.TemplateQuery{Template: tmpl})
	if err != nil || len(records) == 0 {
		return valueobjects.InvalidAddr, err
	}
	link, _ := records[0].Get(alias)
	return link, nil
}

// systemIdentifier caches the nrel_system_identifier address. A missing
// keynode is cached as InvalidAddr; a failed lookup is retried next time.
func (g *GraphService) systemIdentifier(ctx context.Context) (valueobjects.Addr, error) {
	g.sysIdtfMu.Lock()
	defer g.sysIdtfMu.Unlock()
	if g.sysIdtfKnown {
		return g.sysIdtf, nil
	}

	addrs, err := g.ResolveKeynodes(ctx, []ports.KeynodeRequest{{Identifier: labelIdtfKeynode}})
	if err != nil {
		return valueobjects.InvalidAddr, err
	}
	if len(addrs) == 1 {
		g.sysIdtf = addrs[0]
	}
	g.sysIdtfKnown = true
	return g.sysIdtf, nil
}
