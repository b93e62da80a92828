//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package transport opens streaming turns against the co-authoring agent:
// one HTTP POST per turn, an abortable read loop over the decoded frame
// sequence, a wall-clock deadline, and terminal classification of how the
// stream ended.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/playbook-coauthor-go/canvas"
	"trpc.group/trpc-go/playbook-coauthor-go/frame"
	"trpc.group/trpc-go/playbook-coauthor-go/log"
	"trpc.group/trpc-go/playbook-coauthor-go/telemetry"
)

const defaultTimeout = 5 * time.Minute

// ErrNoEndpoint is returned by Open when the client has no endpoint.
var ErrNoEndpoint = errors.New("transport: endpoint not configured")

// CanvasState is the graph snapshot sent with each turn request.
type CanvasState struct {
	Nodes []canvas.Node `json:"nodes"`
	Edges []canvas.Edge `json:"edges"`
}

// HistoryMessage is one prior transcript entry, role and content only.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest is the body of one turn's POST request.
type StreamRequest struct {
	PlaybookID          string           `json:"playbookId"`
	CurrentCanvas       CanvasState      `json:"currentCanvas"`
	Message             string           `json:"message"`
	ConversationHistory []HistoryMessage `json:"conversationHistory"`
	SessionID           string           `json:"sessionId,omitempty"`
}

// Handlers receives decoded frames and the terminal outcome of a stream.
// Frames are dispatched synchronously in arrival order from a single
// goroutine; no two callbacks ever run concurrently. Exactly one of OnDone,
// OnError or OnConnectionError fires per non-aborted stream; an aborted
// stream fires none of them.
type Handlers struct {
	OnThinking           func(frame.Thinking)
	OnDataverseOperation func(frame.DataverseOperation)
	OnCanvasPatch        func(canvas.Patch)
	OnMessage            func(frame.Message)
	OnClarification      func(frame.Clarification)
	OnPlanPreview        func(frame.PlanPreview)
	OnDone               func(frame.Done)
	OnError              func(frame.Error)
	OnConnectionError    func(error)
}

// Client opens streaming turns. At most one stream is open per Client;
// opening a new one silently cancels the previous one first.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string

	mu      sync.Mutex
	current *Stream
}

// NewClient creates a Client.
func NewClient(opt ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}
	for _, o := range opt {
		o(c)
	}
	return c
}

// Open issues one turn request and starts the read loop. The previous
// stream, if any, is aborted first and its callbacks are suppressed. Errors
// building the request are returned synchronously; everything after request
// issuance is reported through the handlers.
func (c *Client) Open(ctx context.Context, req *StreamRequest, handlers Handlers) (*Stream, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to marshal request: %w", err)
	}

	// Fixed wall-clock deadline, started at request issuance.
	streamCtx, cancel := context.WithTimeout(ctx, c.timeout)
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	s := &Stream{
		client:   c,
		cancel:   cancel,
		handlers: handlers,
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	if prev := c.current; prev != nil {
		prev.abort()
	}
	c.current = s
	c.mu.Unlock()

	go s.run(streamCtx, c.httpClient, httpReq, req.PlaybookID)
	return s, nil
}

// Abort cancels the in-flight stream, if any. The cancelled stream's
// failure path is silent.
func (c *Client) Abort() {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s != nil {
		s.abort()
	}
}

// isCurrent reports whether s is still the client's active stream. Stale
// streams must not surface anything to the caller.
func (c *Client) isCurrent(s *Stream) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == s
}

// clear detaches s if it is still current.
func (c *Client) clear(s *Stream) {
	c.mu.Lock()
	if c.current == s {
		c.current = nil
	}
	c.mu.Unlock()
}

// Stream is one open turn. It is returned for lifecycle control only; all
// data flows through the Handlers.
type Stream struct {
	client   *Client
	cancel   context.CancelFunc
	handlers Handlers
	aborted  atomic.Bool
	done     chan struct{}
}

// Abort cancels the stream. Safe to call more than once; no terminal
// callback fires for a self-initiated abort.
func (s *Stream) Abort() {
	s.abort()
}

// Done is closed when the read loop has fully stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) abort() {
	if s.aborted.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// live reports whether callbacks may still fire for this stream.
func (s *Stream) live() bool {
	return !s.aborted.Load() && s.client.isCurrent(s)
}

// run executes the whole stream lifecycle: request, read loop, terminal
// classification.
func (s *Stream) run(ctx context.Context, httpClient *http.Client, req *http.Request, playbookID string) {
	defer close(s.done)
	defer s.cancel()
	defer s.client.clear(s)

	start := time.Now()
	ctx, span := telemetry.Tracer.Start(ctx, "coauthor.stream",
		trace.WithAttributes(attribute.String("playbook.id", playbookID)))
	defer func() {
		telemetry.RecordStreamDuration(context.Background(), time.Since(start).Seconds())
		span.End()
	}()

	resp, err := httpClient.Do(req)
	if err != nil {
		s.connectionError(fmt.Errorf("request failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.connectionError(fmt.Errorf("agent returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
		return
	}

	s.readLoop(ctx, resp.Body)
}

// readLoop feeds body chunks to the decoder and dispatches each frame in
// arrival order. It stops on a terminal frame, end of stream, abort or
// deadline.
func (s *Stream) readLoop(ctx context.Context, body io.Reader) {
	dec := frame.NewDecoder()
	buf := make([]byte, 4096)
	for {
		if s.aborted.Load() {
			return
		}
		n, err := body.Read(buf)
		if n > 0 {
			for _, f := range dec.Feed(string(buf[:n])) {
				if s.dispatch(ctx, f) {
					return
				}
			}
		}
		if err == nil {
			continue
		}
		if err == io.EOF {
			for _, f := range dec.Flush() {
				if s.dispatch(ctx, f) {
					return
				}
			}
			// Stream ended cleanly without a done frame; the turn is over
			// either way.
			if s.live() {
				s.terminalDone(frame.Done{})
			}
			return
		}
		s.connectionError(classifyReadError(ctx, err))
		return
	}
}

// dispatch decodes the frame payload and invokes its handler. The return
// value reports whether the frame terminated the stream.
func (s *Stream) dispatch(ctx context.Context, f frame.Frame) bool {
	if !s.live() {
		return true
	}
	telemetry.CountFramesDecoded(ctx, 1)
	switch f.Kind {
	case frame.KindThinking:
		var p frame.Thinking
		if decodePayload(f, &p) && s.handlers.OnThinking != nil {
			s.handlers.OnThinking(p)
		}
	case frame.KindDataverseOperation:
		var p frame.DataverseOperation
		if decodePayload(f, &p) && s.handlers.OnDataverseOperation != nil {
			s.handlers.OnDataverseOperation(p)
		}
	case frame.KindCanvasPatch:
		var p canvas.Patch
		if decodePayload(f, &p) && s.handlers.OnCanvasPatch != nil {
			s.handlers.OnCanvasPatch(p)
		}
	case frame.KindMessage:
		var p frame.Message
		if decodePayload(f, &p) && s.handlers.OnMessage != nil {
			s.handlers.OnMessage(p)
		}
	case frame.KindClarification:
		var p frame.Clarification
		if decodePayload(f, &p) && s.handlers.OnClarification != nil {
			s.handlers.OnClarification(p)
		}
	case frame.KindPlanPreview:
		var p frame.PlanPreview
		if decodePayload(f, &p) && s.handlers.OnPlanPreview != nil {
			s.handlers.OnPlanPreview(p)
		}
	case frame.KindDone:
		var p frame.Done
		decodePayload(f, &p)
		s.terminalDone(p)
		return true
	case frame.KindError:
		var p frame.Error
		decodePayload(f, &p)
		if s.handlers.OnError != nil {
			s.handlers.OnError(p)
		}
		return true
	}
	return false
}

func (s *Stream) terminalDone(p frame.Done) {
	if s.handlers.OnDone != nil {
		s.handlers.OnDone(p)
	}
}

// connectionError reports a transport-level failure, unless the stream was
// aborted or superseded, in which case it stays silent.
func (s *Stream) connectionError(err error) {
	if !s.live() {
		return
	}
	log.Warnf("transport: stream failed: %v", err)
	if s.handlers.OnConnectionError != nil {
		s.handlers.OnConnectionError(err)
	}
}

// classifyReadError distinguishes the wall-clock deadline from other
// mid-stream read failures.
func classifyReadError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errors.New("stream timed out")
	}
	return fmt.Errorf("error reading stream: %w", err)
}

// decodePayload unmarshals a frame payload, dropping the frame with a log on
// failure. The decoder already validated JSON syntax; this catches shape
// mismatches.
func decodePayload(f frame.Frame, v any) bool {
	if err := json.Unmarshal(f.Data, v); err != nil {
		log.Warnf("transport: dropping %q frame with unexpected payload: %v", f.Kind, err)
		return false
	}
	return true
}
