package events

import (
	"time"

	"kbweb/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeSetPowerCalculated = "agent.set_power_calculated"
	TypeAgentRunFailed     = "agent.run_failed"
	TypeResultAssembled    = "result.assembled"
	TypeNodeCreated        = "kb.node_created"
)

// Agent Events

// SetPowerCalculated is raised when the set power agent wrote a cardinality back
type SetPowerCalculated struct {
	BaseEvent
	Action valueobjects.Addr `json:"action"`
	Set    valueobjects.Addr `json:"set"`
	Power  int64             `json:"power"`
	Link   valueobjects.Addr `json:"link"`
}

// NewSetPowerCalculated creates a SetPowerCalculated event
func NewSetPowerCalculated(action, set valueobjects.Addr, power int64, link valueobjects.Addr, timestamp time.Time) SetPowerCalculated {
	return SetPowerCalculated{
		BaseEvent: BaseEvent{
			AggregateID: action.String(),
			EventType:   TypeSetPowerCalculated,
			Timestamp:   timestamp,
			Version:     1,
		},
		Action: action,
		Set:    set,
		Power:  power,
		Link:   link,
	}
}

// AgentRunFailed is raised when an agent could not process an initiated action
type AgentRunFailed struct {
	BaseEvent
	Agent  string            `json:"agent"`
	Action valueobjects.Addr `json:"action"`
	Reason string            `json:"reason"`
}

// NewAgentRunFailed creates an AgentRunFailed event
func NewAgentRunFailed(agent string, action valueobjects.Addr, reason string, timestamp time.Time) AgentRunFailed {
	return AgentRunFailed{
		BaseEvent: BaseEvent{
			AggregateID: action.String(),
			EventType:   TypeAgentRunFailed,
			Timestamp:   timestamp,
			Version:     1,
		},
		Agent:  agent,
		Action: action,
		Reason: reason,
	}
}

// Editor Events

// ResultAssembled is raised when a query result graph was published to a user
type ResultAssembled struct {
	BaseEvent
	UserID      string `json:"user_id"`
	Query       string `json:"query"`
	Objects     int    `json:"objects"`
	Connections int    `json:"connections"`
}

// NewResultAssembled creates a ResultAssembled event
func NewResultAssembled(graphID, userID, query string, objects, connections int, timestamp time.Time) ResultAssembled {
	return ResultAssembled{
		BaseEvent: BaseEvent{
			AggregateID: graphID,
			EventType:   TypeResultAssembled,
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:      userID,
		Query:       query,
		Objects:     objects,
		Connections: connections,
	}
}

// NodeCreated is raised when the editor created a node with a main identifier
type NodeCreated struct {
	BaseEvent
	UserID     string            `json:"user_id"`
	Node       valueobjects.Addr `json:"node"`
	Identifier string            `json:"identifier"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(node valueobjects.Addr, userID, identifier string, timestamp time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: node.String(),
			EventType:   TypeNodeCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:     userID,
		Node:       node,
		Identifier: identifier,
	}
}
