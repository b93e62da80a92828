//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package coauthor

import (
	"time"

	"trpc.group/trpc-go/playbook-coauthor-go/canvas"
)

// Role identifies the author of a chat message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one transcript entry. User messages are immutable once
// created; the in-flight assistant message is mutated in place while its
// turn streams, and IsStreaming becomes false exactly once.
type ChatMessage struct {
	ID               string                       `json:"id"`
	Role             Role                         `json:"role"`
	Content          string                       `json:"content"`
	Timestamp        time.Time                    `json:"timestamp"`
	CanvasOperations []canvas.OperationDescriptor `json:"canvasOperations,omitempty"`
	IsStreaming      bool                         `json:"isStreaming"`
}

// StreamingState summarizes the in-flight turn for the UI. OperationCount
// is reset at the start of each turn and never decremented mid-turn.
type StreamingState struct {
	IsActive       bool   `json:"isActive"`
	CurrentStep    string `json:"currentStep,omitempty"`
	OperationCount int    `json:"operationCount"`
}
