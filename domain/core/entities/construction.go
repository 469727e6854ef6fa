package entities

import (
	"encoding/json"
	"fmt"

	"kbweb/domain/core/valueobjects"
)

// Endpoint is an edge end inside a construction: either an existing element
// or an element created earlier in the same construction.
type Endpoint struct {
	addr  valueobjects.Addr
	ref   string
	isRef bool
}

// AddrEndpoint points to an existing element
func AddrEndpoint(addr valueobjects.Addr) Endpoint {
	return Endpoint{addr: addr}
}

// RefEndpoint points to a construction element by its alias
func RefEndpoint(alias string) Endpoint {
	return Endpoint{ref: alias, isRef: true}
}

type constructionCommand struct {
	El      string                   `json:"el"`
	Type    valueobjects.ElementType `json:"type"`
	Content interface{}              `json:"content,omitempty"`
	Src     *endpointWire            `json:"src,omitempty"`
	Trg     *endpointWire            `json:"trg,omitempty"`
}

type endpointWire struct {
	Type  string `json:"type"`
	Value uint64 `json:"value"`
}

// Construction is a batch of elements created by one create_elements request.
// The Graph Service replies with one address per element, in order.
type Construction struct {
	commands []constructionCommand
	aliases  map[string]int
	err      error
}

// NewConstruction creates an empty construction
func NewConstruction() *Construction {
	return &Construction{aliases: map[string]int{}}
}

func (c *Construction) name(alias string) {
	if alias == "" {
		return
	}
	if _, exists := c.aliases[alias]; exists && c.err == nil {
		c.err = fmt.Errorf("alias %q used twice in construction", alias)
		return
	}
	c.aliases[alias] = len(c.commands)
}

// CreateNode adds a node
func (c *Construction) CreateNode(t valueobjects.ElementType, alias string) *Construction {
	c.name(alias)
	c.commands = append(c.commands, constructionCommand{El: "node", Type: t})
	return c
}

// CreateLink adds a link holding content
func (c *Construction) CreateLink(t valueobjects.ElementType, content valueobjects.LinkContent, alias string) *Construction {
	c.name(alias)
	c.commands = append(c.commands, constructionCommand{El: "link", Type: t, Content: content.WireValue()})
	return c
}

// CreateEdge adds an edge between two endpoints
func (c *Construction) CreateEdge(t valueobjects.ElementType, src, trg Endpoint, alias string) *Construction {
	s, err := c.resolve(src)
	if err != nil && c.err == nil {
		c.err = err
	}
	d, err := c.resolve(trg)
	if err != nil && c.err == nil {
		c.err = err
	}
	c.name(alias)
	c.commands = append(c.commands, constructionCommand{El: "edge", Type: t, Src: s, Trg: d})
	return c
}

func (c *Construction) resolve(e Endpoint) (*endpointWire, error) {
	if !e.isRef {
		if !e.addr.IsValid() {
			return nil, fmt.Errorf("edge endpoint has invalid address")
		}
		return &endpointWire{Type: "addr", Value: e.addr.Value()}, nil
	}
	idx, ok := c.aliases[e.ref]
	if !ok {
		return nil, fmt.Errorf("edge endpoint references unknown alias %q", e.ref)
	}
	return &endpointWire{Type: "ref", Value: uint64(idx)}, nil
}

// Len returns the number of elements to create
func (c *Construction) Len() int {
	return len(c.commands)
}

// IndexOf returns the position of the aliased element in the reply
func (c *Construction) IndexOf(alias string) (int, bool) {
	idx, ok := c.aliases[alias]
	return idx, ok
}

// Err returns the first error recorded while building
func (c *Construction) Err() error {
	return c.err
}

// MarshalJSON encodes the construction as the create_elements payload
func (c *Construction) MarshalJSON() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return json.Marshal(c.commands)
}
