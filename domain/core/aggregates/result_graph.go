package aggregates

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"kbweb/domain/core/valueobjects"
)

// ResultGraphID identifies one assembled result
type ResultGraphID string

// NewResultGraphID creates a new random ResultGraphID
func NewResultGraphID() ResultGraphID {
	return ResultGraphID(uuid.New().String())
}

// String returns the string representation
func (id ResultGraphID) String() string {
	return string(id)
}

var (
	ErrGraphSealed    = errors.New("result graph is sealed")
	ErrInvalidAddress = errors.New("invalid element address")
	ErrNotAnEdge      = errors.New("connection type is not an edge")
)

// VisualObject is a node or link of the result
type VisualObject struct {
	Addr    valueobjects.Addr        `json:"addr"`
	Type    valueobjects.ElementType `json:"type"`
	Label   string                   `json:"label,omitempty"`
	Content string                   `json:"content,omitempty"`
}

// DisplayName returns the label, falling back to the address
func (o VisualObject) DisplayName() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Addr.String()
}

// Connection is an edge of the result with its endpoints
type Connection struct {
	Addr   valueobjects.Addr        `json:"addr"`
	Type   valueobjects.ElementType `json:"type"`
	Source valueobjects.Addr        `json:"source"`
	Target valueobjects.Addr        `json:"target"`
	Label  string                   `json:"label,omitempty"`
}

// ResultGraph is the deduplicated visual structure built from one query.
// Objects and connections keep first-insertion order. Once sealed the graph
// rejects every mutation.
type ResultGraph struct {
	id          ResultGraphID
	objects     map[valueobjects.Addr]VisualObject
	objectOrder []valueobjects.Addr
	connections map[valueobjects.Addr]Connection
	connOrder   []valueobjects.Addr
	createdAt   time.Time
	sealed      bool
}

// NewResultGraph creates an empty, open graph
func NewResultGraph() *ResultGraph {
	return &ResultGraph{
		id:          NewResultGraphID(),
		objects:     make(map[valueobjects.Addr]VisualObject),
		connections: make(map[valueobjects.Addr]Connection),
		createdAt:   time.Now(),
	}
}

// ID returns the graph ID
func (g *ResultGraph) ID() ResultGraphID { return g.id }

// CreatedAt returns when assembly started
func (g *ResultGraph) CreatedAt() time.Time { return g.createdAt }

// Sealed reports whether the graph was published
func (g *ResultGraph) Sealed() bool { return g.sealed }

// Seal freezes the graph
func (g *ResultGraph) Seal() { g.sealed = true }

// AddObject inserts a node or link. Adding an address that is already
// present keeps the original entry and reports false.
func (g *ResultGraph) AddObject(obj VisualObject) (bool, error) {
	if g.sealed {
		return false, ErrGraphSealed
	}
	if !obj.Addr.IsValid() {
		return false, ErrInvalidAddress
	}
	if _, exists := g.objects[obj.Addr]; exists {
		return false, nil
	}
	g.objects[obj.Addr] = obj
	g.objectOrder = append(g.objectOrder, obj.Addr)
	return true, nil
}

// SetConnection inserts an edge. A connection with the same address is
// replaced in place and replaced is true.
func (g *ResultGraph) SetConnection(conn Connection) (replaced bool, err error) {
	if g.sealed {
		return false, ErrGraphSealed
	}
	if !conn.Addr.IsValid() {
		return false, ErrInvalidAddress
	}
	if !conn.Type.IsUnknown() && !conn.Type.IsEdge() {
		return false, ErrNotAnEdge
	}
	if _, exists := g.connections[conn.Addr]; exists {
		replaced = true
	} else {
		g.connOrder = append(g.connOrder, conn.Addr)
	}
	g.connections[conn.Addr] = conn
	return replaced, nil
}

// Object returns the node or link with the given address
func (g *ResultGraph) Object(addr valueobjects.Addr) (VisualObject, bool) {
	obj, ok := g.objects[addr]
	return obj, ok
}

// Connection returns the edge with the given address
func (g *ResultGraph) Connection(addr valueobjects.Addr) (Connection, bool) {
	conn, ok := g.connections[addr]
	return conn, ok
}

// Objects returns nodes and links in insertion order
func (g *ResultGraph) Objects() []VisualObject {
	out := make([]VisualObject, 0, len(g.objectOrder))
	for _, addr := range g.objectOrder {
		out = append(out, g.objects[addr])
	}
	return out
}

// Connections returns edges in first-insertion order
func (g *ResultGraph) Connections() []Connection {
	out := make([]Connection, 0, len(g.connOrder))
	for _, addr := range g.connOrder {
		out = append(out, g.connections[addr])
	}
	return out
}

// ObjectCount returns the number of nodes and links
func (g *ResultGraph) ObjectCount() int { return len(g.objects) }

// ConnectionCount returns the number of edges
func (g *ResultGraph) ConnectionCount() int { return len(g.connections) }

// IsEmpty reports whether the graph holds nothing to render
func (g *ResultGraph) IsEmpty() bool {
	return len(g.objects) == 0 && len(g.connections) == 0
}

// DanglingConnections returns connections with an endpoint that is not an
// object of this graph. Endpoints that are themselves edges are not dangling.
func (g *ResultGraph) DanglingConnections() []Connection {
	var out []Connection
	for _, conn := range g.Connections() {
		if !g.hasElement(conn.Source) || !g.hasElement(conn.Target) {
			out = append(out, conn)
		}
	}
	return out
}

func (g *ResultGraph) hasElement(addr valueobjects.Addr) bool {
	if _, ok := g.objects[addr]; ok {
		return true
	}
	_, ok := g.connections[addr]
	return ok
}

type resultGraphJSON struct {
	ID          ResultGraphID  `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Objects     []VisualObject `json:"objects"`
	Connections []Connection   `json:"connections"`
}

// MarshalJSON encodes the graph for viewers and API clients
func (g *ResultGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultGraphJSON{
		ID:          g.id,
		CreatedAt:   g.createdAt,
		Objects:     g.Objects(),
		Connections: g.Connections(),
	})
}
