//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package testrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPtr(s NodeStatus) *NodeStatus { return &s }
func strPtr(s string) *string            { return &s }
func int64Ptr(n int64) *int64            { return &n }

func TestTrackerIdle(t *testing.T) {
	tr := NewTracker()
	assert.Nil(t, tr.Snapshot())

	// Updates before Start are dropped, not panics.
	tr.UpdateNodeProgress("n1", NodeUpdate{Status: statusPtr(StatusRunning)})
	tr.Complete(CompleteOptions{})
	tr.Fail("boom")
	assert.Nil(t, tr.Snapshot())
}

func TestTrackerStartDefaultsToMock(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{})

	state := tr.Snapshot()
	require.NotNil(t, state)
	assert.True(t, state.IsActive)
	assert.Equal(t, ModeMock, state.Mode)
	assert.Empty(t, state.NodesProgress)
}

func TestTrackerFullRun(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{Mode: ModeQuick, AnalysisID: "an-1"})

	tr.UpdateNodeProgress("n1", NodeUpdate{
		Label:  strPtr("Trigger"),
		Status: statusPtr(StatusRunning),
	})
	state := tr.Snapshot()
	require.NotNil(t, state)
	assert.Equal(t, "n1", state.CurrentNodeID)
	require.Len(t, state.NodesProgress, 1)
	assert.Equal(t, StatusRunning, state.NodesProgress[0].Status)

	tr.UpdateNodeProgress("n1", NodeUpdate{
		Status:     statusPtr(StatusCompleted),
		Output:     strPtr("3 records"),
		DurationMs: int64Ptr(120),
	})
	tr.UpdateNodeProgress("n2", NodeUpdate{Status: statusPtr(StatusRunning)})

	state = tr.Snapshot()
	assert.Equal(t, "n2", state.CurrentNodeID, "running moves the cursor")
	require.Len(t, state.NodesProgress, 2)
	assert.Equal(t, StatusCompleted, state.NodesProgress[0].Status)
	assert.Equal(t, "3 records", state.NodesProgress[0].Output)
	assert.Equal(t, int64(120), state.NodesProgress[0].DurationMs)
	assert.Equal(t, "n2", state.NodesProgress[1].Label, "label defaults to the node id")

	tr.UpdateNodeProgress("n2", NodeUpdate{Status: statusPtr(StatusCompleted)})
	tr.Complete(CompleteOptions{TotalDurationMs: 450, ReportURL: "/v1/testruns/an-1/report"})

	state = tr.Snapshot()
	assert.False(t, state.IsActive)
	assert.Empty(t, state.CurrentNodeID)
	assert.Equal(t, int64(450), state.TotalDurationMs)
	assert.Equal(t, "/v1/testruns/an-1/report", state.ReportURL)
	assert.Equal(t, ModeQuick, state.Mode)
	assert.Equal(t, "an-1", state.AnalysisID)
}

func TestTrackerPartialUpdateLeavesOtherFields(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{})
	tr.UpdateNodeProgress("n1", NodeUpdate{
		Label:  strPtr("Send email"),
		Status: statusPtr(StatusRunning),
		Output: strPtr("sending"),
	})

	tr.UpdateNodeProgress("n1", NodeUpdate{Status: statusPtr(StatusCompleted)})

	p := tr.Snapshot().NodesProgress[0]
	assert.Equal(t, "Send email", p.Label)
	assert.Equal(t, "sending", p.Output)
	assert.Equal(t, StatusCompleted, p.Status)
}

func TestTrackerFail(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{Mode: ModeProduction})
	tr.UpdateNodeProgress("n1", NodeUpdate{
		Status: statusPtr(StatusFailed),
		Error:  strPtr("condition never matched"),
	})
	tr.Fail("run aborted by engine")

	state := tr.Snapshot()
	assert.False(t, state.IsActive)
	assert.Empty(t, state.CurrentNodeID)
	assert.Equal(t, "run aborted by engine", state.Error)
	assert.Equal(t, "condition never matched", state.NodesProgress[0].Error)
}

func TestTrackerStartReplacesPriorRun(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{Mode: ModeQuick})
	tr.UpdateNodeProgress("n1", NodeUpdate{Status: statusPtr(StatusCompleted)})
	tr.Complete(CompleteOptions{TotalDurationMs: 100})

	tr.Start(StartOptions{})
	state := tr.Snapshot()
	assert.True(t, state.IsActive)
	assert.Equal(t, ModeMock, state.Mode)
	assert.Empty(t, state.NodesProgress)
	assert.Zero(t, state.TotalDurationMs)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{})
	tr.Reset()
	assert.Nil(t, tr.Snapshot())
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.Start(StartOptions{})
	tr.UpdateNodeProgress("n1", NodeUpdate{Status: statusPtr(StatusRunning)})

	snap := tr.Snapshot()
	snap.NodesProgress[0].Status = StatusFailed
	snap.IsActive = false

	fresh := tr.Snapshot()
	assert.True(t, fresh.IsActive)
	assert.Equal(t, StatusRunning, fresh.NodesProgress[0].Status)
}
