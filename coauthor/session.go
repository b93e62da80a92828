//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package coauthor implements the conversation state machine for co-authoring
// a playbook with a remote agent: it owns the chat transcript, opens one
// streamed turn per user message, and applies the agent's canvas patches to
// the shared graph store as they arrive.
package coauthor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/playbook-coauthor-go/canvas"
	"trpc.group/trpc-go/playbook-coauthor-go/frame"
	"trpc.group/trpc-go/playbook-coauthor-go/telemetry"
	"trpc.group/trpc-go/playbook-coauthor-go/testrun"
	"trpc.group/trpc-go/playbook-coauthor-go/transport"
)

// ErrNoPlaybook is the local validation error for a turn attempted before a
// playbook is bound. No network call is made.
var ErrNoPlaybook = errors.New("coauthor: no playbook bound to session")

// Session is one user's co-authoring session: the playbook binding, the
// ordered transcript, the in-flight streaming state and the dry-run tracker.
// Each Session owns its transport client; nothing is shared across sessions.
//
// All exported methods are safe for concurrent use, but the state machine
// itself is sequential: frames of a turn are applied one at a time in
// arrival order.
type Session struct {
	mu sync.Mutex

	id         string
	playbookID string

	client  *transport.Client
	store   canvas.Store
	applier *canvas.Applier
	tracker *testrun.Tracker

	messages  []*ChatMessage
	streaming StreamingState
	lastErr   error

	// inflight is the assistant message of the current turn, nil between
	// turns. turn is the generation token that keeps callbacks of a
	// superseded turn inert.
	inflight *ChatMessage
	turn     uint64

	modalOpen      bool
	testDialogOpen bool
}

// NewSession creates a Session. Without options it gets a fresh id, an
// empty in-memory canvas store and an unconfigured transport; bind a
// playbook and set an endpoint before sending.
func NewSession(opt ...Option) *Session {
	s := &Session{
		id:      uuid.New().String(),
		tracker: testrun.NewTracker(),
	}
	for _, o := range opt {
		o(s)
	}
	if s.store == nil {
		s.store = canvas.NewMemoryStore()
	}
	if s.client == nil {
		s.client = transport.NewClient()
	}
	s.applier = canvas.NewApplier(s.store)
	return s
}

// ID returns the session id sent with each turn.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// BindPlaybook binds the playbook the session co-authors. A session without
// a binding rejects turns locally.
func (s *Session) BindPlaybook(playbookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbookID = playbookID
}

// PlaybookID returns the bound playbook id, if any.
func (s *Session) PlaybookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbookID
}

// Store returns the graph store the session applies patches to.
func (s *Session) Store() canvas.Store {
	return s.store
}

// SendMessage starts one turn: it appends the user message and a streaming
// assistant placeholder, then opens a stream whose frames mutate the
// placeholder and the canvas. An in-flight turn is aborted first, never
// queued behind.
//
// The returned error is the local validation error only; everything after
// the request is built surfaces through session state, never as a panic or
// returned error.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.playbookID == "" {
		s.lastErr = ErrNoPlaybook
		s.mu.Unlock()
		return ErrNoPlaybook
	}

	// Supersede any in-flight turn. The old stream's callbacks go inert
	// via the generation token; its transport is cancelled by Open below.
	s.finalizeInflightLocked()
	s.turn++
	turn := s.turn

	now := time.Now()
	userMsg := &ChatMessage{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: now,
	}
	asst := &ChatMessage{
		ID:          uuid.New().String(),
		Role:        RoleAssistant,
		Timestamp:   now,
		IsStreaming: true,
	}

	req := &transport.StreamRequest{
		PlaybookID: s.playbookID,
		CurrentCanvas: transport.CanvasState{
			Nodes: s.store.Nodes(),
			Edges: s.store.Edges(),
		},
		Message:             text,
		ConversationHistory: s.historyLocked(),
		SessionID:           s.id,
	}

	s.messages = append(s.messages, userMsg, asst)
	s.inflight = asst
	s.streaming = StreamingState{IsActive: true}
	s.lastErr = nil
	s.mu.Unlock()

	if _, err := s.client.Open(ctx, req, s.handlers(turn, asst)); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.turn == turn {
			s.connectionErrorLocked(asst, err)
		}
		return nil
	}
	return nil
}

// AbortStream cancels the in-flight turn. Abort is not an error: the
// session error stays clear and no terminal callback fires. The placeholder
// message is finalized so the transcript never shows a bubble stuck
// mid-stream.
func (s *Session) AbortStream() {
	s.client.Abort()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	s.streaming.IsActive = false
	s.finalizeInflightLocked()
}

// EndSession aborts any in-flight turn and clears the transcript and the
// dry-run record. The playbook binding survives; the session gets a fresh
// id for its next turn.
func (s *Session) EndSession() {
	s.client.Abort()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	s.finalizeInflightLocked()
	s.id = uuid.New().String()
	s.messages = nil
	s.streaming = StreamingState{}
	s.lastErr = nil
	s.tracker.Reset()
}

// Reset is EndSession plus dropping the playbook binding and UI flags.
func (s *Session) Reset() {
	s.EndSession()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbookID = ""
	s.modalOpen = false
	s.testDialogOpen = false
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, 0, len(s.messages))
	for _, m := range s.messages {
		cp := *m
		cp.CanvasOperations = append([]canvas.OperationDescriptor(nil), m.CanvasOperations...)
		out = append(out, cp)
	}
	return out
}

// IsStreaming reports whether a turn is in flight.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming.IsActive
}

// Streaming returns the in-flight turn's progress state.
func (s *Session) Streaming() StreamingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Err returns the session-level error, nil after a successful or aborted
// turn.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// historyLocked builds role/content pairs from the full prior transcript.
func (s *Session) historyLocked() []transport.HistoryMessage {
	history := make([]transport.HistoryMessage, 0, len(s.messages))
	for _, m := range s.messages {
		history = append(history, transport.HistoryMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return history
}

// finalizeInflightLocked clears the streaming flag on the current turn's
// placeholder, if any.
func (s *Session) finalizeInflightLocked() {
	if s.inflight != nil {
		s.inflight.IsStreaming = false
		s.inflight = nil
	}
}

// handlers wires one turn's frame callbacks to the placeholder message.
// Every callback re-checks the generation token under the lock, so
// callbacks of a superseded turn are inert.
func (s *Session) handlers(turn uint64, msg *ChatMessage) transport.Handlers {
	guard := func(fn func()) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.turn != turn {
			return
		}
		fn()
	}
	return transport.Handlers{
		OnThinking: func(p frame.Thinking) {
			guard(func() {
				s.streaming.CurrentStep = p.Content
			})
		},
		OnDataverseOperation: func(p frame.DataverseOperation) {
			guard(func() {
				s.streaming.CurrentStep = formatDataverseOperation(p)
			})
		},
		OnCanvasPatch: func(p canvas.Patch) {
			guard(func() {
				descs := s.applier.Apply(p)
				if len(descs) == 0 {
					return
				}
				msg.CanvasOperations = append(msg.CanvasOperations, descs...)
				s.streaming.OperationCount += len(descs)
				telemetry.CountPatchOperations(context.Background(), int64(len(descs)))
			})
		},
		OnMessage: func(p frame.Message) {
			guard(func() {
				if p.IsPartial {
					msg.Content += p.Content
				} else {
					// Authoritative correction replaces accumulated content.
					msg.Content = p.Content
				}
			})
		},
		OnClarification: func(p frame.Clarification) {
			guard(func() {
				// Terminal-looking, but only done/error/abort ends the turn.
				msg.Content = formatClarification(p)
			})
		},
		OnPlanPreview: func(p frame.PlanPreview) {
			guard(func() {
				msg.Content = formatPlanPreview(p)
			})
		},
		OnDone: func(p frame.Done) {
			guard(func() {
				if p.Summary != "" {
					if msg.Content != "" {
						msg.Content += "\n\n"
					}
					msg.Content += p.Summary
				}
				msg.IsStreaming = false
				s.inflight = nil
				// OperationCount survives for the UI; only IsActive clears.
				s.streaming.IsActive = false
				s.streaming.CurrentStep = ""
			})
		},
		OnError: func(p frame.Error) {
			guard(func() {
				msg.Content = "Error: " + p.Message
				msg.IsStreaming = false
				s.inflight = nil
				s.streaming.IsActive = false
				s.streaming.CurrentStep = ""
				s.lastErr = errors.New(p.Message)
			})
		},
		OnConnectionError: func(err error) {
			guard(func() {
				s.connectionErrorLocked(msg, err)
			})
		},
	}
}

// connectionErrorLocked ends the turn with a transport-level failure,
// worded distinctly from a server-declared error frame.
func (s *Session) connectionErrorLocked(msg *ChatMessage, err error) {
	msg.Content = fmt.Sprintf("Connection error: %v", err)
	msg.IsStreaming = false
	s.inflight = nil
	s.streaming.IsActive = false
	s.streaming.CurrentStep = ""
	s.lastErr = err
}

// StartTestExecution begins a dry run, discarding any prior run's record
// and closing the start dialog if it is open.
func (s *Session) StartTestExecution(opts testrun.StartOptions) {
	s.mu.Lock()
	s.testDialogOpen = false
	s.mu.Unlock()
	s.tracker.Start(opts)
}

// UpdateTestNodeProgress upserts one node's dry-run progress.
func (s *Session) UpdateTestNodeProgress(nodeID string, update testrun.NodeUpdate) {
	s.tracker.UpdateNodeProgress(nodeID, update)
}

// CompleteTestExecution finalizes the dry run as successful.
func (s *Session) CompleteTestExecution(opts testrun.CompleteOptions) {
	s.tracker.Complete(opts)
}

// FailTestExecution finalizes the dry run as failed.
func (s *Session) FailTestExecution(errMsg string) {
	s.tracker.Fail(errMsg)
}

// ResetTestExecution discards the dry-run record.
func (s *Session) ResetTestExecution() {
	s.tracker.Reset()
}

// TestExecution returns a snapshot of the dry-run record, nil when idle.
func (s *Session) TestExecution() *testrun.State {
	return s.tracker.Snapshot()
}

// OpenModal marks the node property modal open.
func (s *Session) OpenModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modalOpen = true
}

// CloseModal marks the node property modal closed.
func (s *Session) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modalOpen = false
}

// ModalOpen reports whether the node property modal is open.
func (s *Session) ModalOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modalOpen
}

// OpenTestDialog marks the dry-run start dialog open.
func (s *Session) OpenTestDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testDialogOpen = true
}

// CloseTestDialog marks the dry-run start dialog closed.
func (s *Session) CloseTestDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testDialogOpen = false
}

// TestDialogOpen reports whether the dry-run start dialog is open.
func (s *Session) TestDialogOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testDialogOpen
}
