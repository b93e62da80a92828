//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package stub provides a local development server that speaks the
// co-authoring wire protocol: it replays scripted frame sequences so the
// client, the canvas and the UI can be exercised without a live agent
// backend.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/cors"

	"trpc.group/trpc-go/playbook-coauthor-go/frame"
	"trpc.group/trpc-go/playbook-coauthor-go/log"
	"trpc.group/trpc-go/playbook-coauthor-go/testrun"
	"trpc.group/trpc-go/playbook-coauthor-go/transport"
)

const (
	// StreamPath is the turn endpoint the client POSTs to.
	StreamPath = "/v1/coauthor/stream"

	defaultPoolSize = 64
)

// Server is the stub agent server.
type Server struct {
	address string
	script  ScriptFunc
	pool    *ants.Pool

	mu      sync.RWMutex
	reports map[string]string

	httpServer *http.Server
}

// Option configures the Server.
type Option func(*Server)

// WithAddress sets the listen address.
func WithAddress(address string) Option {
	return func(s *Server) {
		s.address = address
	}
}

// WithScript overrides the frame script replayed per turn.
func WithScript(fn ScriptFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.script = fn
		}
	}
}

// New creates a stub server. poolSize bounds how many scripted streams play
// back concurrently; zero means the default.
func New(poolSize int, opt ...Option) (*Server, error) {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("stub: failed to create playback pool: %w", err)
	}
	s := &Server{
		address: "localhost:8780",
		script:  DefaultScript,
		pool:    pool,
		reports: make(map[string]string),
	}
	for _, o := range opt {
		o(s)
	}
	return s, nil
}

// Handler returns the HTTP handler: the mux router wrapped with permissive
// CORS so a canvas dev host on another origin can reach the stub.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(StreamPath, s.handleStream).Methods(http.MethodPost)
	r.HandleFunc("/v1/testruns/{id}/report", s.handleReport).Methods(http.MethodGet)
	return cors.AllowAll().Handler(r)
}

// Serve starts the server and blocks until it is shut down.
func (s *Server) Serve() error {
	s.httpServer = &http.Server{Addr: s.address, Handler: s.Handler()}
	log.Infof("stub: agent stub listening on %s", s.address)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts the server down and releases the playback pool.
func (s *Server) Close(ctx context.Context) error {
	s.pool.Release()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// SetReport publishes a rendered dry-run report under the given run id.
func (s *Server) SetReport(runID string, state *testrun.State) error {
	html, err := testrun.RenderHTML(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.reports[runID] = html
	s.mu.Unlock()
	return nil
}

// ReportURL returns the path the report for runID is served at.
func ReportURL(runID string) string {
	return "/v1/testruns/" + runID + "/report"
}

// handleStream replays the script for one turn. Playback is submitted to
// the bounded pool; the handler blocks until its stream finishes so the
// response body stays open for the whole script.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req transport.StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	done := make(chan struct{})
	err := s.pool.Submit(func() {
		defer close(done)
		s.playback(r.Context(), w, flusher, &req)
	})
	if err != nil {
		// Pool exhausted; the turn fails as a server-declared error.
		writeFrame(w, frame.KindError, frame.Error{Message: "stub busy, try again"})
		flusher.Flush()
		return
	}
	<-done
}

// playback writes the scripted frames in order, honoring per-step delays
// and client disconnects.
func (s *Server) playback(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, req *transport.StreamRequest) {
	for _, step := range s.script(req) {
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := writeFrame(w, step.Kind, step.Payload); err != nil {
			log.Warnf("stub: failed to write frame: %v", err)
			return
		}
		flusher.Flush()
	}
}

// handleReport serves a previously published dry-run report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	s.mu.RLock()
	html, ok := s.reports[runID]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// writeFrame encodes one frame in the wire format.
func writeFrame(w http.ResponseWriter, kind frame.Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data)
	return err
}
