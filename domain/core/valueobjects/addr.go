package valueobjects

import (
	"encoding/json"
	"strconv"
)

// Addr is the opaque handle of a graph element inside one Graph Service
// session. The zero value is the invalid address.
type Addr uint64

// InvalidAddr is the address the Graph Service uses for "no element"
const InvalidAddr Addr = 0

// IsValid reports whether the address refers to an element
func (a Addr) IsValid() bool {
	return a != InvalidAddr
}

// Value returns the wire representation of the address
func (a Addr) Value() uint64 {
	return uint64(a)
}

// String returns the decimal form, used as the display fallback for unlabeled elements
func (a Addr) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAddr parses the decimal form produced by String
func ParseAddr(s string) (Addr, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return InvalidAddr, err
	}
	return Addr(v), nil
}

// UnmarshalJSON accepts the numeric wire form. Null decodes to InvalidAddr.
func (a *Addr) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = InvalidAddr
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Addr(v)
	return nil
}

// UniqueAddrs returns addrs without duplicates or invalid entries, keeping first-seen order
func UniqueAddrs(addrs []Addr) []Addr {
	seen := make(map[Addr]struct{}, len(addrs))
	result := make([]Addr, 0, len(addrs))
	for _, a := range addrs {
		if !a.IsValid() {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		result = append(result, a)
	}
	return result
}
