package entities

import (
	"fmt"

	"kbweb/domain/core/valueobjects"
)

// Triple is one (source, edge, target) decomposition of a match
type Triple struct {
	Source valueobjects.Addr
	Edge   valueobjects.Addr
	Target valueobjects.Addr
}

// MatchRecord is one successful template match: the addresses bound to the
// template elements in template order, plus the alias names of the pattern
// variables. The Graph Service lays out a match as consecutive
// (source, edge, target) groups, one per template triple.
type MatchRecord struct {
	addrs   []valueobjects.Addr
	aliases map[string]int
}

// NewMatchRecord creates a record. The alias map may be shared between the
// records of one search result; it is never modified.
func NewMatchRecord(addrs []valueobjects.Addr, aliases map[string]int) *MatchRecord {
	if aliases == nil {
		aliases = map[string]int{}
	}
	return &MatchRecord{
		addrs:   addrs,
		aliases: aliases,
	}
}

// Size returns the number of bound addresses
func (m *MatchRecord) Size() int {
	return len(m.addrs)
}

// Addrs returns a copy of the bound addresses in template order
func (m *MatchRecord) Addrs() []valueobjects.Addr {
	out := make([]valueobjects.Addr, len(m.addrs))
	copy(out, m.addrs)
	return out
}

// At returns the address at index i, or InvalidAddr when out of range
func (m *MatchRecord) At(i int) valueobjects.Addr {
	if i < 0 || i >= len(m.addrs) {
		return valueobjects.InvalidAddr
	}
	return m.addrs[i]
}

// Get returns the address bound to alias
func (m *MatchRecord) Get(alias string) (valueobjects.Addr, bool) {
	idx, ok := m.aliases[alias]
	if !ok {
		return valueobjects.InvalidAddr, false
	}
	addr := m.At(idx)
	return addr, addr.IsValid()
}

// MustGet returns the address bound to alias or an error naming the alias
func (m *MatchRecord) MustGet(alias string) (valueobjects.Addr, error) {
	addr, ok := m.Get(alias)
	if !ok {
		return valueobjects.InvalidAddr, fmt.Errorf("alias %q is not bound in match", alias)
	}
	return addr, nil
}

// Aliases returns the alias names known to the record
func (m *MatchRecord) Aliases() []string {
	names := make([]string, 0, len(m.aliases))
	for name := range m.aliases {
		names = append(names, name)
	}
	return names
}

// Triples decomposes the record into its (source, edge, target) groups.
// A trailing group shorter than three addresses is ignored. Every call
// walks the record from the start.
func (m *MatchRecord) Triples() []Triple {
	n := len(m.addrs) / 3
	triples := make([]Triple, 0, n)
	for i := 0; i < n; i++ {
		triples = append(triples, Triple{
			Source: m.addrs[i*3],
			Edge:   m.addrs[i*3+1],
			Target: m.addrs[i*3+2],
		})
	}
	return triples
}

// ForEachTriple calls fn for every triple until fn returns false
func (m *MatchRecord) ForEachTriple(fn func(Triple) bool) {
	for i := 0; i+2 < len(m.addrs); i += 3 {
		if !fn(Triple{Source: m.addrs[i], Edge: m.addrs[i+1], Target: m.addrs[i+2]}) {
			return
		}
	}
}
