package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/domain/core/valueobjects"
)

// System identifiers of the keynodes used by the editor
const (
	IdtfNrelSystemIdentifier = "nrel_system_identifier"
	IdtfNrelMainIdtf         = "nrel_main_idtf"
	IdtfNrelWebTemplates     = "nrel_web_templates"
	IdtfNrelSCsTemplate      = "nrel_scs_template"
)

// EditorKeynodes returns the keynodes the editor needs for a knowledge base
// user. Relations owned by the knowledge base core are only looked up.
func EditorKeynodes(userIdentifier string) []ports.KeynodeRequest {
	return []ports.KeynodeRequest{
		{Identifier: IdtfNrelSystemIdentifier},
		{Identifier: IdtfNrelMainIdtf},
		{Identifier: IdtfNrelWebTemplates, Type: valueobjects.TypeNodeConstNoRole},
		{Identifier: IdtfNrelSCsTemplate, Type: valueobjects.TypeNodeConstNoRole},
		{Identifier: userIdentifier, Type: valueobjects.TypeNodeConst},
	}
}

// Keynodes caches the addresses of elements known by system identifier.
// Addresses are only valid within one Graph Service session.
type Keynodes struct {
	graph  ports.GraphService
	logger *zap.Logger

	mu    sync.RWMutex
	addrs map[string]valueobjects.Addr
}

// NewKeynodes creates an empty keynode cache
func NewKeynodes(graph ports.GraphService, logger *zap.Logger) *Keynodes {
	return &Keynodes{
		graph:  graph,
		logger: logger,
		addrs:  make(map[string]valueobjects.Addr),
	}
}

// Resolve looks up every request in one batch and caches the result. It
// fails naming every identifier the Graph Service did not know.
func (k *Keynodes) Resolve(ctx context.Context, requests ...ports.KeynodeRequest) error {
	if len(requests) == 0 {
		return nil
	}

	addrs, err := k.graph.ResolveKeynodes(ctx, requests)
	if err != nil {
		return fmt.Errorf("resolve keynodes: %w", err)
	}
	if len(addrs) != len(requests) {
		return fmt.Errorf("resolve keynodes: requested %d, received %d", len(requests), len(addrs))
	}

	var missing []string
	k.mu.Lock()
	for i, req := range requests {
		if !addrs[i].IsValid() {
			missing = append(missing, req.Identifier)
			continue
		}
		k.addrs[req.Identifier] = addrs[i]
	}
	k.mu.Unlock()

	if len(missing) > 0 {
		return fmt.Errorf("keynodes not found: %s", strings.Join(missing, ", "))
	}

	k.logger.Debug("Keynodes resolved", zap.Int("count", len(requests)))
	return nil
}

// Get returns the cached address of identifier
func (k *Keynodes) Get(identifier string) (valueobjects.Addr, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	addr, ok := k.addrs[identifier]
	return addr, ok
}

// Addr returns the cached address of identifier or InvalidAddr
func (k *Keynodes) Addr(identifier string) valueobjects.Addr {
	addr, _ := k.Get(identifier)
	return addr
}

// Require returns the addresses of identifiers in order, failing on the
// first one that was never resolved.
func (k *Keynodes) Require(identifiers ...string) ([]valueobjects.Addr, error) {
	out := make([]valueobjects.Addr, len(identifiers))
	for i, idtf := range identifiers {
		addr, ok := k.Get(idtf)
		if !ok {
			return nil, fmt.Errorf("keynode %q is not resolved", idtf)
		}
		out[i] = addr
	}
	return out, nil
}

// Reset drops every cached address, e.g. after reconnecting
func (k *Keynodes) Reset() {
	k.mu.Lock()
	k.addrs = make(map[string]valueobjects.Addr)
	k.mu.Unlock()
}
