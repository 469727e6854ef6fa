package entities

import (
	"encoding/json"
	"fmt"

	"kbweb/domain/core/valueobjects"
)

// TemplateItemKind tells the Graph Service how to interpret a template item
type TemplateItemKind string

const (
	ItemAddr  TemplateItemKind = "addr"
	ItemType  TemplateItemKind = "type"
	ItemAlias TemplateItemKind = "alias"
)

// TemplateItem is one position of a template triple: a fixed element, a
// typed variable or a reference to a variable aliased elsewhere.
type TemplateItem struct {
	Kind  TemplateItemKind
	Addr  valueobjects.Addr
	Type  valueobjects.ElementType
	Name  string // alias reference target
	Alias string // alias assigned to this position
}

// Fixed refers to a known element
func Fixed(addr valueobjects.Addr) TemplateItem {
	return TemplateItem{Kind: ItemAddr, Addr: addr}
}

// FixedAs refers to a known element and names its position
func FixedAs(addr valueobjects.Addr, alias string) TemplateItem {
	return TemplateItem{Kind: ItemAddr, Addr: addr, Alias: alias}
}

// Var matches any element of the given type
func Var(t valueobjects.ElementType) TemplateItem {
	return TemplateItem{Kind: ItemType, Type: t}
}

// VarAs matches any element of the given type and names its position
func VarAs(t valueobjects.ElementType, alias string) TemplateItem {
	return TemplateItem{Kind: ItemType, Type: t, Alias: alias}
}

// Ref refers to a position aliased earlier in the template
func Ref(alias string) TemplateItem {
	return TemplateItem{Kind: ItemAlias, Name: alias}
}

// MarshalJSON encodes the item in the search_template wire form
func (i TemplateItem) MarshalJSON() ([]byte, error) {
	item := struct {
		Type  TemplateItemKind `json:"type"`
		Value interface{}      `json:"value"`
		Alias string           `json:"alias,omitempty"`
	}{Type: i.Kind, Alias: i.Alias}

	switch i.Kind {
	case ItemAddr:
		item.Value = i.Addr.Value()
	case ItemType:
		item.Value = i.Type.Value()
	case ItemAlias:
		item.Value = i.Name
	default:
		return nil, fmt.Errorf("unknown template item kind %q", i.Kind)
	}
	return json.Marshal(item)
}

// Template is a structured graph pattern made of triples
type Template struct {
	triples [][3]TemplateItem
	edgeSeq int
}

// NewTemplate creates an empty template
func NewTemplate() *Template {
	return &Template{}
}

// Triple appends (src, edge, trg)
func (t *Template) Triple(src, edge, trg TemplateItem) *Template {
	t.triples = append(t.triples, [3]TemplateItem{src, edge, trg})
	return t
}

// TripleWithRelation appends (src, edge, trg) and marks edge with rel
// through relEdge. The edge position gets a generated alias when it has none.
func (t *Template) TripleWithRelation(src, edge, trg, relEdge, rel TemplateItem) *Template {
	if edge.Alias == "" {
		t.edgeSeq++
		edge.Alias = fmt.Sprintf("_rel_edge_%d", t.edgeSeq)
	}
	t.triples = append(t.triples,
		[3]TemplateItem{src, edge, trg},
		[3]TemplateItem{rel, relEdge, Ref(edge.Alias)},
	)
	return t
}

// Len returns the number of triples
func (t *Template) Len() int {
	return len(t.triples)
}

// TripleAt returns the i-th triple
func (t *Template) TripleAt(i int) [3]TemplateItem {
	return t.triples[i]
}

// Validate checks that every alias reference points to an alias assigned earlier
func (t *Template) Validate() error {
	if len(t.triples) == 0 {
		return fmt.Errorf("template has no triples")
	}
	known := map[string]struct{}{}
	for n, triple := range t.triples {
		for _, item := range triple {
			if item.Kind == ItemAlias {
				if _, ok := known[item.Name]; !ok {
					return fmt.Errorf("triple %d references unknown alias %q", n, item.Name)
				}
			}
			if item.Alias != "" {
				known[item.Alias] = struct{}{}
			}
		}
	}
	return nil
}

// MarshalJSON encodes the template as a list of three-item lists
func (t *Template) MarshalJSON() ([]byte, error) {
	out := make([][3]TemplateItem, len(t.triples))
	copy(out, t.triples)
	return json.Marshal(out)
}
