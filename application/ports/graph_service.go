package ports

import (
	"context"

	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
)

// ElementReader is the read-only part of the Graph Service the result
// assembler depends on. Every batched call answers in request order.
type ElementReader interface {
	// ClassifyElements returns one type per address; invalid elements get TypeUnknown
	ClassifyElements(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.ElementType, error)

	// FetchLinkContents returns one content per link address
	FetchLinkContents(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.LinkContent, error)

	// ResolveLabels returns the labels found; addresses without one are absent
	ResolveLabels(ctx context.Context, addrs []valueobjects.Addr) (map[valueobjects.Addr]string, error)
}

// KeynodeRequest asks for the element with a system identifier. With a
// non-zero Type the element is created when missing.
type KeynodeRequest struct {
	Identifier string
	Type       valueobjects.ElementType
}

// LinkContentUpdate replaces the content of one link
type LinkContentUpdate struct {
	Addr    valueobjects.Addr
	Content valueobjects.LinkContent
}

// TemplateQuery is either SCs text or a structured template. Params fix
// template aliases and apply to structured generation only.
type TemplateQuery struct {
	SCs      string
	Template *entities.Template
	Params   map[string]valueobjects.Addr
}

// EventKind names a Graph Service element event
type EventKind string

const (
	EventAddOutgoingEdge    EventKind = "add_outgoing_edge"
	EventAddIngoingEdge     EventKind = "add_ingoing_edge"
	EventRemoveOutgoingEdge EventKind = "remove_outgoing_edge"
	EventRemoveIngoingEdge  EventKind = "remove_ingoing_edge"
	EventContentChanged     EventKind = "content_change"
	EventDeleteElement      EventKind = "delete_element"
)

// ElementEvent is one notification for a subscribed element
type ElementEvent struct {
	SubscriptionID int64
	Kind           EventKind
	Addr           valueobjects.Addr
	Edge           valueobjects.Addr
	Other          valueobjects.Addr
}

// Subscription delivers events for one subscribed element until it is
// removed or the connection closes; then Events is closed.
type Subscription interface {
	ID() int64
	Kind() EventKind
	Addr() valueobjects.Addr
	Events() <-chan ElementEvent
}

// GraphService is the full contract of the external Graph Service
type GraphService interface {
	ElementReader

	SetLinkContents(ctx context.Context, updates []LinkContentUpdate) ([]bool, error)
	FindLinksByContent(ctx context.Context, content string) ([]valueobjects.Addr, error)

	// ResolveKeynodes answers in request order; a missing identifier that
	// was only looked up yields InvalidAddr
	ResolveKeynodes(ctx context.Context, requests []KeynodeRequest) ([]valueobjects.Addr, error)

	SearchTemplate(ctx context.Context, query TemplateQuery) ([]*entities.MatchRecord, error)
	// GenerateTemplate returns nil without error when nothing was generated
	GenerateTemplate(ctx context.Context, query TemplateQuery) (*entities.MatchRecord, error)

	CreateElements(ctx context.Context, construction *entities.Construction) ([]valueobjects.Addr, error)
	DeleteElements(ctx context.Context, addrs []valueobjects.Addr) error

	Subscribe(ctx context.Context, kind EventKind, addr valueobjects.Addr) (Subscription, error)
	Unsubscribe(ctx context.Context, sub Subscription) error
}
