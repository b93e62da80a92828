//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package frame implements the event-framing wire format spoken by the
// playbook co-authoring agent. A frame is textually:
//
//	event: <kind>
//	data: <json>
//	<blank line>
//
// The decoder is fed the response body in arbitrary-sized chunks and emits
// complete frames as soon as they are available.
package frame

import "encoding/json"

// Kind identifies the type of a decoded frame.
type Kind string

// Frame kinds emitted by the co-authoring agent.
const (
	// KindThinking carries a progress note about what the agent is doing.
	KindThinking Kind = "thinking"
	// KindDataverseOperation reports a host data-store operation in flight.
	KindDataverseOperation Kind = "dataverse_operation"
	// KindCanvasPatch carries one or more graph mutations.
	KindCanvasPatch Kind = "canvas_patch"
	// KindMessage carries assistant chat content, partial or authoritative.
	KindMessage Kind = "message"
	// KindClarification asks the user a question before continuing.
	KindClarification Kind = "clarification"
	// KindPlanPreview summarizes the plan the agent is about to execute.
	KindPlanPreview Kind = "plan_preview"
	// KindDone terminates the turn successfully.
	KindDone Kind = "done"
	// KindError terminates the turn with a server-declared error.
	KindError Kind = "error"
)

// ParseKind maps a wire event name to a Kind. The second return value is
// false for event names outside the protocol.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindThinking, KindDataverseOperation, KindCanvasPatch, KindMessage,
		KindClarification, KindPlanPreview, KindDone, KindError:
		return k, true
	default:
		return "", false
	}
}

// IsTerminal reports whether a frame of this kind ends the stream loop.
func (k Kind) IsTerminal() bool {
	return k == KindDone || k == KindError
}

// Frame is one decoded (kind, payload) unit from the stream.
type Frame struct {
	Kind Kind
	Data json.RawMessage
}

// Thinking is the payload of a KindThinking frame.
type Thinking struct {
	Content string `json:"content"`
}

// DataverseOperation is the payload of a KindDataverseOperation frame.
type DataverseOperation struct {
	Operation string `json:"operation"`
	Entity    string `json:"entity"`
	ID        string `json:"id"`
}

// Message is the payload of a KindMessage frame. When IsPartial is set the
// content is a delta to append; otherwise it replaces the accumulated
// content wholesale.
type Message struct {
	Content   string `json:"content"`
	IsPartial bool   `json:"isPartial"`
}

// Clarification is the payload of a KindClarification frame.
type Clarification struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Context  string   `json:"context,omitempty"`
}

// PlanPreview is the payload of a KindPlanPreview frame.
type PlanPreview struct {
	Summary        string   `json:"summary"`
	Steps          []string `json:"steps,omitempty"`
	EstimatedNodes int      `json:"estimatedNodes,omitempty"`
}

// Done is the payload of a KindDone frame.
type Done struct {
	Summary string `json:"summary,omitempty"`
}

// Error is the payload of a KindError frame.
type Error struct {
	Message string `json:"message"`
}
