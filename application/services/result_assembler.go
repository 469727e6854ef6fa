package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/domain/core/aggregates"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/pkg/errors"
	"kbweb/pkg/observability"
)

// ResultAssembler turns the flat matches of a template query into one
// deduplicated ResultGraph.
//
// Each call performs at most three batched reads, strictly in order:
// classify all unique addresses, fetch the contents of the links among them,
// then resolve labels for all of them. The working set is local to the call,
// so one assembler can serve concurrent queries.
type ResultAssembler struct {
	graph   ports.ElementReader
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewResultAssembler creates a new result assembler
func NewResultAssembler(graph ports.ElementReader, metrics *observability.Collector, logger *zap.Logger) *ResultAssembler {
	return &ResultAssembler{
		graph:   graph,
		metrics: metrics,
		logger:  logger,
	}
}

// Assemble builds the graph for records. It fails with a COUNT_MISMATCH
// AppError when a batched reply does not line up with its request; missing
// labels, contents and edge types only degrade the result.
func (a *ResultAssembler) Assemble(ctx context.Context, records []*entities.MatchRecord) (result *aggregates.ResultGraph, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ResultAssembler.Assemble",
		attribute.Int("records", len(records)),
	)
	defer func() {
		observability.EndSpan(span, err)
		if result != nil {
			a.metrics.RecordAssembly(time.Since(start), result.ObjectCount(), result.ConnectionCount(), nil)
		} else {
			a.metrics.RecordAssembly(time.Since(start), 0, 0, err)
		}
	}()

	var flat []valueobjects.Addr
	for _, record := range records {
		if record != nil {
			flat = append(flat, record.Addrs()...)
		}
	}
	unique := valueobjects.UniqueAddrs(flat)
	span.SetAttributes(attribute.Int("unique_addrs", len(unique)))

	graph := aggregates.NewResultGraph()
	if len(unique) == 0 {
		graph.Seal()
		return graph, nil
	}

	types, err := a.classify(ctx, unique)
	if err != nil {
		return nil, err
	}

	var (
		objects   []valueobjects.Addr
		links     []valueobjects.Addr
		edgeTypes = make(map[valueobjects.Addr]valueobjects.ElementType)
		objTypes  = make(map[valueobjects.Addr]valueobjects.ElementType)
	)
	for i, addr := range unique {
		t := types[i]
		switch {
		case t.IsEdge():
			edgeTypes[addr] = t
		case t.IsNode():
			objects = append(objects, addr)
			objTypes[addr] = t
		case t.IsLink():
			objects = append(objects, addr)
			objTypes[addr] = t
			links = append(links, addr)
		default:
			a.logger.Debug("Skipping element without type", zap.Stringer("addr", addr))
		}
	}

	contents, err := a.fetchContents(ctx, links)
	if err != nil {
		return nil, err
	}

	labels := a.resolveLabels(ctx, unique)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, addr := range objects {
		obj := aggregates.VisualObject{
			Addr:  addr,
			Type:  objTypes[addr],
			Label: labels[addr],
		}
		if content, ok := contents[addr]; ok {
			obj.Content = content.Text()
		}
		if _, err := graph.AddObject(obj); err != nil {
			return nil, fmt.Errorf("add object %s: %w", addr, err)
		}
	}

	for _, record := range records {
		if record == nil {
			continue
		}
		for _, triple := range record.Triples() {
			if !triple.Edge.IsValid() {
				continue
			}
			edgeType, known := edgeTypes[triple.Edge]
			if !known {
				if _, isObject := objTypes[triple.Edge]; isObject {
					// a node or link in edge position is a malformed match
					a.logger.Debug("Ignoring triple with non-edge in edge position",
						zap.Stringer("addr", triple.Edge))
					continue
				}
				a.logger.Debug("Edge type unresolved", zap.Stringer("edge", triple.Edge))
			}
			replaced, err := graph.SetConnection(aggregates.Connection{
				Addr:   triple.Edge,
				Type:   edgeType,
				Source: triple.Source,
				Target: triple.Target,
				Label:  labels[triple.Edge],
			})
			if err != nil {
				return nil, fmt.Errorf("set connection %s: %w", triple.Edge, err)
			}
			if replaced {
				a.logger.Debug("Connection overwritten by later triple", zap.Stringer("edge", triple.Edge))
			}
		}
	}

	graph.Seal()

	a.logger.Debug("Result assembled",
		zap.String("graphID", graph.ID().String()),
		zap.Int("records", len(records)),
		zap.Int("objects", graph.ObjectCount()),
		zap.Int("connections", graph.ConnectionCount()),
	)

	return graph, nil
}

func (a *ResultAssembler) classify(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.ElementType, error) {
	types, err := a.graph.ClassifyElements(ctx, addrs)
	if err != nil {
		return nil, errors.Wrap(err, "classify elements")
	}
	if len(types) != len(addrs) {
		return nil, errors.NewCountMismatchError("classify elements", len(addrs), len(types))
	}
	return types, nil
}

func (a *ResultAssembler) fetchContents(ctx context.Context, links []valueobjects.Addr) (map[valueobjects.Addr]valueobjects.LinkContent, error) {
	if len(links) == 0 {
		return nil, nil
	}

	contents, err := a.graph.FetchLinkContents(ctx, links)
	if err != nil {
		return nil, errors.Wrap(err, "fetch link contents")
	}
	if len(contents) != len(links) {
		return nil, errors.NewCountMismatchError("fetch link contents", len(links), len(contents))
	}

	byAddr := make(map[valueobjects.Addr]valueobjects.LinkContent, len(links))
	for i, addr := range links {
		byAddr[addr] = contents[i]
	}
	return byAddr, nil
}

// resolveLabels never fails the assembly: without labels every element
// still renders under its address.
func (a *ResultAssembler) resolveLabels(ctx context.Context, addrs []valueobjects.Addr) map[valueobjects.Addr]string {
	labels, err := a.graph.ResolveLabels(ctx, addrs)
	if err != nil {
		a.logger.Warn("Label lookup failed, continuing without labels",
			zap.Int("addrs", len(addrs)),
			zap.Error(err),
		)
		return map[valueobjects.Addr]string{}
	}
	if labels == nil {
		return map[valueobjects.Addr]string{}
	}
	return labels
}
