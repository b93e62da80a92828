//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package testrun tracks per-node progress of a playbook dry run. The
// tracker is a state machine driven entirely by its caller: it records what
// it is told and derives nothing, so a completed run may still contain
// failed nodes.
package testrun

import "sync"

// Mode selects how a dry run executes.
type Mode string

// Dry-run modes.
const (
	// ModeMock replays nodes against canned outputs.
	ModeMock Mode = "mock"
	// ModeQuick executes nodes against live services with reduced inputs.
	ModeQuick Mode = "quick"
	// ModeProduction executes nodes exactly as a real run would.
	ModeProduction Mode = "production"
)

// NodeStatus is the execution status of one node.
type NodeStatus string

// Node statuses.
const (
	StatusPending   NodeStatus = "pending"
	StatusRunning   NodeStatus = "running"
	StatusCompleted NodeStatus = "completed"
	StatusFailed    NodeStatus = "failed"
	StatusSkipped   NodeStatus = "skipped"
)

// NodeProgress records one node's dry-run progress.
type NodeProgress struct {
	NodeID     string     `json:"nodeId"`
	Label      string     `json:"label"`
	Status     NodeStatus `json:"status"`
	Output     string     `json:"output,omitempty"`
	DurationMs int64      `json:"durationMs,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// State is a snapshot of one dry run.
type State struct {
	IsActive        bool           `json:"isActive"`
	Mode            Mode           `json:"mode"`
	CurrentNodeID   string         `json:"currentNodeId,omitempty"`
	NodesProgress   []NodeProgress `json:"nodesProgress"`
	TotalDurationMs int64          `json:"totalDurationMs"`
	AnalysisID      string         `json:"analysisId,omitempty"`
	ReportURL       string         `json:"reportUrl,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// StartOptions configures a new dry run.
type StartOptions struct {
	Mode       Mode
	AnalysisID string
}

// CompleteOptions finalizes a successful dry run.
type CompleteOptions struct {
	TotalDurationMs int64
	ReportURL       string
}

// NodeUpdate is a partial update to one node's progress. Nil fields leave
// the existing value untouched.
type NodeUpdate struct {
	Status     *NodeStatus
	Label      *string
	Output     *string
	DurationMs *int64
	Error      *string
}

// Tracker is the dry-run state machine. A prior run's record is replaced
// wholesale by Start; only Reset discards it.
type Tracker struct {
	mu    sync.Mutex
	state *State
}

// NewTracker creates an idle Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Start begins a new dry run, discarding any prior run's progress.
func (t *Tracker) Start(opts StartOptions) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mode := opts.Mode
	if mode == "" {
		mode = ModeMock
	}
	t.state = &State{
		IsActive:   true,
		Mode:       mode,
		AnalysisID: opts.AnalysisID,
	}
}

// UpdateNodeProgress upserts progress by node id. An unknown id is appended
// with status defaulting to pending and label defaulting to the id; a known
// id is shallow-merged. Setting status to running also records the node as
// current; no other transition touches the current node.
func (t *Tracker) UpdateNodeProgress(nodeID string, update NodeUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return
	}

	idx := -1
	for i := range t.state.NodesProgress {
		if t.state.NodesProgress[i].NodeID == nodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.state.NodesProgress = append(t.state.NodesProgress, NodeProgress{
			NodeID: nodeID,
			Label:  nodeID,
			Status: StatusPending,
		})
		idx = len(t.state.NodesProgress) - 1
	}

	p := &t.state.NodesProgress[idx]
	if update.Label != nil {
		p.Label = *update.Label
	}
	if update.Status != nil {
		p.Status = *update.Status
		if *update.Status == StatusRunning {
			t.state.CurrentNodeID = nodeID
		}
	}
	if update.Output != nil {
		p.Output = *update.Output
	}
	if update.DurationMs != nil {
		p.DurationMs = *update.DurationMs
	}
	if update.Error != nil {
		p.Error = *update.Error
	}
}

// Complete finalizes the run as successful. Run-level success is a
// caller-supplied fact, independent of per-node statuses.
func (t *Tracker) Complete(opts CompleteOptions) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return
	}
	t.state.IsActive = false
	t.state.CurrentNodeID = ""
	t.state.TotalDurationMs = opts.TotalDurationMs
	t.state.ReportURL = opts.ReportURL
}

// Fail finalizes the run as failed.
func (t *Tracker) Fail(errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return
	}
	t.state.IsActive = false
	t.state.CurrentNodeID = ""
	t.state.Error = errMsg
}

// Reset discards the run record entirely, returning the tracker to idle.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = nil
}

// Snapshot returns a copy of the current run state, or nil when idle.
func (t *Tracker) Snapshot() *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return nil
	}
	out := *t.state
	out.NodesProgress = make([]NodeProgress, len(t.state.NodesProgress))
	copy(out.NodesProgress, t.state.NodesProgress)
	return &out
}
