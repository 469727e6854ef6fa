package scnet

import (
	"encoding/json"
	"strings"

	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
)

// Request types understood by the Graph Service
const (
	TypeKeynodes         = "keynodes"
	TypeCreateElements   = "create_elements"
	TypeCheckElements    = "check_elements"
	TypeDeleteElements   = "delete_elements"
	TypeSearchTemplate   = "search_template"
	TypeGenerateTemplate = "generate_template"
	TypeContent          = "content"
	TypeEvents           = "events"
)

type request struct {
	ID      int64       `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// message is either a response to a request with the same id or, when
// Event is set, an event for the subscription with that id.
type message struct {
	ID      int64           `json:"id"`
	Event   bool            `json:"event"`
	Status  bool            `json:"status"`
	Payload json.RawMessage `json:"payload"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

type keynodeCommand struct {
	Command string                   `json:"command"`
	Idtf    string                   `json:"idtf"`
	ElType  valueobjects.ElementType `json:"elType,omitempty"`
}

type contentCommand struct {
	Command string            `json:"command"`
	Addr    valueobjects.Addr `json:"addr,omitempty"`
	Type    string            `json:"type,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// generatePayload is the structured form of generate_template. The server
// reads params unconditionally, so it is never omitted.
type generatePayload struct {
	Templ  *entities.Template           `json:"templ"`
	Params map[string]valueobjects.Addr `json:"params"`
}

type searchResult struct {
	Aliases map[string]int        `json:"aliases"`
	Addrs   [][]valueobjects.Addr `json:"addrs"`
}

type generateResult struct {
	Aliases map[string]int      `json:"aliases"`
	Addrs   []valueobjects.Addr `json:"addrs"`
}

type eventCreate struct {
	Type string            `json:"type"`
	Addr valueobjects.Addr `json:"addr"`
}

type eventsPayload struct {
	Create []eventCreate `json:"create,omitempty"`
	Delete []int64       `json:"delete,omitempty"`
}

// errorText flattens the errors field. The Graph Service sends a string, a
// list of strings or a list of {message} objects depending on the handler.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "request failed"
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil && text != "" {
		return text
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if json.Unmarshal(item, &s) == nil {
				parts = append(parts, s)
				continue
			}
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(item, &obj) == nil && obj.Message != "" {
				parts = append(parts, obj.Message)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return string(raw)
}
