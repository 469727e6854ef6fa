package valueobjects

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ContentKind identifies how a link's stored content is typed
type ContentKind string

const (
	ContentString ContentKind = "string"
	ContentInt    ContentKind = "int"
	ContentFloat  ContentKind = "float"
	// ContentNone covers links without content and binary content the
	// Graph Service does not expose over the JSON API.
	ContentNone ContentKind = ""
)

// LinkContent is the content stored in a link element
type LinkContent struct {
	kind ContentKind
	str  string
	i    int64
	f    float64
}

// NewStringContent creates string content
func NewStringContent(s string) LinkContent {
	return LinkContent{kind: ContentString, str: s}
}

// NewIntContent creates integer content
func NewIntContent(i int64) LinkContent {
	return LinkContent{kind: ContentInt, i: i}
}

// NewFloatContent creates floating point content
func NewFloatContent(f float64) LinkContent {
	return LinkContent{kind: ContentFloat, f: f}
}

// Kind returns the content kind
func (c LinkContent) Kind() ContentKind { return c.kind }

// IsEmpty reports whether the link has no readable content
func (c LinkContent) IsEmpty() bool { return c.kind == ContentNone }

// Int returns the integer value; ok is false for other kinds
func (c LinkContent) Int() (int64, bool) { return c.i, c.kind == ContentInt }

// Float returns the float value; ok is false for other kinds
func (c LinkContent) Float() (float64, bool) { return c.f, c.kind == ContentFloat }

// Text renders the content for display: numbers in decimal form, strings
// as they are, anything else as the empty string.
func (c LinkContent) Text() string {
	switch c.kind {
	case ContentString:
		return c.str
	case ContentInt:
		return strconv.FormatInt(c.i, 10)
	case ContentFloat:
		return strconv.FormatFloat(c.f, 'f', -1, 64)
	default:
		return ""
	}
}

// WireValue returns the value as sent to the Graph Service
func (c LinkContent) WireValue() interface{} {
	switch c.kind {
	case ContentString:
		return c.str
	case ContentInt:
		return c.i
	case ContentFloat:
		return c.f
	default:
		return nil
	}
}

type linkContentWire struct {
	Value json.RawMessage `json:"value"`
	Type  *string         `json:"type"`
}

// UnmarshalJSON decodes the {"value": ..., "type": ...} reply of a content
// get command. Unknown or null types decode to empty content.
func (c *LinkContent) UnmarshalJSON(data []byte) error {
	var w linkContentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = LinkContent{}
	if w.Type == nil || len(w.Value) == 0 || string(w.Value) == "null" {
		return nil
	}

	switch ContentKind(*w.Type) {
	case ContentString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("string content: %w", err)
		}
		*c = NewStringContent(s)
	case ContentInt:
		i, err := strconv.ParseInt(string(w.Value), 10, 64)
		if err != nil {
			// some servers encode integral floats as 7.0
			f, ferr := strconv.ParseFloat(string(w.Value), 64)
			if ferr != nil {
				return fmt.Errorf("int content: %w", err)
			}
			i = int64(f)
		}
		*c = NewIntContent(i)
	case ContentFloat:
		f, err := strconv.ParseFloat(string(w.Value), 64)
		if err != nil {
			return fmt.Errorf("float content: %w", err)
		}
		*c = NewFloatContent(f)
	}
	return nil
}

// MarshalJSON encodes the content in the same shape UnmarshalJSON reads
func (c LinkContent) MarshalJSON() ([]byte, error) {
	if c.kind == ContentNone {
		return []byte(`{"value":null,"type":null}`), nil
	}
	return json.Marshal(struct {
		Value interface{} `json:"value"`
		Type  string      `json:"type"`
	}{c.WireValue(), string(c.kind)})
}
