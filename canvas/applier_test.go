//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package canvas

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAddNodeDefaultsPosition(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	descs := a.Apply(Patch{
		Operation: OpAddNode,
		Node:      &PatchNode{ID: "n1", Type: "aiAnalysis"},
	})
	require.Len(t, descs, 1)
	assert.Equal(t, DescAddNode, descs[0].Kind)
	assert.Equal(t, "n1", descs[0].NodeID)

	nodes := store.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, Position{X: 100, Y: 100}, nodes[0].Position)
}

func TestApplyAddNodeExplicitPosition(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	a.Apply(Patch{
		Operation: OpAddNode,
		Node: &PatchNode{
			ID:       "n1",
			Type:     "aiAnalysis",
			Position: &Position{X: 5, Y: 7},
		},
	})
	assert.Equal(t, Position{X: 5, Y: 7}, store.Nodes()[0].Position)
}

func TestApplyAddNodeCarriesConfigAndLabel(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	a.Apply(Patch{
		Operation: OpAddNode,
		Node: &PatchNode{
			ID:     "n1",
			Type:   "aiAnalysis",
			Label:  "Analyze",
			Config: map[string]any{"prompt": "Summarize"},
			ToolID: "tool-7",
		},
	})
	data := store.Nodes()[0].Data
	assert.Equal(t, "Analyze", data["label"])
	assert.Equal(t, "Summarize", data["prompt"])
	assert.Equal(t, "tool-7", data["toolId"])
}

func TestApplyRemoveNode(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(Node{ID: "n1"})
	a := NewApplier(store)

	descs := a.Apply(Patch{Operation: OpRemoveNode, NodeID: "n1"})
	require.Len(t, descs, 1)
	assert.Equal(t, DescRemoveNode, descs[0].Kind)
	assert.Empty(t, store.Nodes())
}

func TestApplyUpdateNodeMergeOrder(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(Node{ID: "n1", Data: map[string]any{}})
	a := NewApplier(store)

	// Top-level config wins over node.config; node.label overrides both.
	descs := a.Apply(Patch{
		Operation: OpUpdateNode,
		NodeID:    "n1",
		Node: &PatchNode{
			Label:  "Renamed",
			Config: map[string]any{"prompt": "from-node", "model": "a"},
		},
		Config: map[string]any{"prompt": "from-config"},
	})
	require.Len(t, descs, 1)
	assert.Equal(t, DescUpdateNode, descs[0].Kind)

	data := store.Nodes()[0].Data
	assert.Equal(t, "from-config", data["prompt"])
	assert.Equal(t, "a", data["model"])
	assert.Equal(t, "Renamed", data["label"])
}

func TestApplyConfigureNodeAliasesUpdate(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(Node{ID: "n1"})
	a := NewApplier(store)

	descs := a.Apply(Patch{
		Operation: OpConfigureNode,
		NodeID:    "n1",
		Config:    map[string]any{"timeout": 30},
	})
	require.Len(t, descs, 1)
	assert.Equal(t, DescUpdateNode, descs[0].Kind)
	assert.Equal(t, 30, store.Nodes()[0].Data["timeout"])
}

func TestApplyAddEdgeIsAdditive(t *testing.T) {
	store := NewMemoryStore()
	store.SetEdges([]Edge{{ID: "e0", Source: "a", Target: "b"}})
	a := NewApplier(store)

	descs := a.Apply(Patch{
		Operation: OpAddEdge,
		Edge:      &PatchEdge{ID: "e1", Source: "b", Target: "c"},
	})
	require.Len(t, descs, 1)
	assert.Equal(t, DescAddEdge, descs[0].Kind)

	edges := store.Edges()
	require.Len(t, edges, 2, "existing edges must be preserved")
	assert.Equal(t, "e0", edges[0].ID)
	assert.Equal(t, "e1", edges[1].ID)
}

func TestApplyAddEdgeDefaults(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	a.Apply(Patch{
		Operation: OpAddEdge,
		Edge:      &PatchEdge{ID: "e1", Source: "a", Target: "b"},
	})
	edge := store.Edges()[0]
	assert.Equal(t, "smoothstep", edge.Type)
	assert.True(t, edge.Animated)

	animated := false
	a.Apply(Patch{
		Operation: OpAddEdge,
		Edge:      &PatchEdge{ID: "e2", Source: "b", Target: "c", Type: "straight", Animated: &animated},
	})
	edge = store.Edges()[1]
	assert.Equal(t, "straight", edge.Type)
	assert.False(t, edge.Animated)
}

func TestApplyRemoveEdgeKeepsSurvivorOrder(t *testing.T) {
	store := NewMemoryStore()
	store.SetEdges([]Edge{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}})
	a := NewApplier(store)

	descs := a.Apply(Patch{Operation: OpRemoveEdge, EdgeID: "e2"})
	require.Len(t, descs, 1)
	assert.Equal(t, DescRemoveEdge, descs[0].Kind)

	edges := store.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e3", edges[1].ID)
}

func TestApplyIncompleteOperationsAreInertNoOps(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(Node{ID: "n1"})
	store.SetEdges([]Edge{{ID: "e1"}})
	a := NewApplier(store)

	patches := []Patch{
		{Operation: OpAddNode},                  // missing node
		{Operation: OpRemoveNode},               // missing nodeId
		{Operation: OpUpdateNode, NodeID: "n1"}, // missing node/config
		{Operation: OpAddEdge},                  // missing edge
		{Operation: OpRemoveEdge},               // missing edgeId
		{Operation: OpLinkScope},                // not applied to the graph
		{Operation: Operation("Teleport")},      // unknown
	}
	for _, p := range patches {
		assert.Empty(t, a.Apply(p), "operation %q", p.Operation)
	}
	assert.Len(t, store.Nodes(), 1)
	assert.Len(t, store.Edges(), 1)
}

func TestApplyBatchCompleteness(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	const n = 10
	var patch Patch
	for i := 0; i < n; i++ {
		patch.AddNodes = append(patch.AddNodes, PatchNode{
			ID:   fmt.Sprintf("n%d", i),
			Type: "action",
		})
	}
	descs := a.Apply(patch)
	require.Len(t, descs, n)

	nodes := store.Nodes()
	require.Len(t, nodes, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("n%d", i), nodes[i].ID, "input order preserved")
		assert.Equal(t, fmt.Sprintf("n%d", i), descs[i].NodeID)
	}
}

func TestApplyBatchFixedOrder(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(Node{ID: "old"})
	store.SetEdges([]Edge{{ID: "dead"}})
	a := NewApplier(store)

	descs := a.Apply(Patch{
		AddNodes:      []PatchNode{{ID: "n1", Type: "action"}},
		RemoveNodeIDs: []string{"old"},
		UpdateNodes:   []PatchNode{{ID: "n1", Config: map[string]any{"k": "v"}}},
		AddEdges:      []PatchEdge{{ID: "e1", Source: "n1", Target: "n1"}},
		RemoveEdgeIDs: []string{"dead"},
	})
	require.Len(t, descs, 5)
	assert.Equal(t, []DescriptorKind{
		DescAddNode, DescRemoveNode, DescUpdateNode, DescAddEdge, DescRemoveEdge,
	}, []DescriptorKind{descs[0].Kind, descs[1].Kind, descs[2].Kind, descs[3].Kind, descs[4].Kind})

	assert.Len(t, store.Nodes(), 1)
	assert.Equal(t, "v", store.Nodes()[0].Data["k"])
	require.Len(t, store.Edges(), 1)
	assert.Equal(t, "e1", store.Edges()[0].ID)
}

func TestApplySingleAndBatchOnOnePatch(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	descs := a.Apply(Patch{
		Operation: OpAddNode,
		Node:      &PatchNode{ID: "single", Type: "trigger"},
		AddNodes:  []PatchNode{{ID: "batched", Type: "action"}},
	})
	require.Len(t, descs, 2)
	assert.Equal(t, "single", descs[0].NodeID)
	assert.Equal(t, "batched", descs[1].NodeID)
	assert.Len(t, store.Nodes(), 2)
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Ai Analysis", typeLabel("aiAnalysis"))
	assert.Equal(t, "Trigger", typeLabel("trigger"))
	assert.Equal(t, "untyped", typeLabel(""))
}

func TestDescriptorDescriptions(t *testing.T) {
	store := NewMemoryStore()
	a := NewApplier(store)

	descs := a.Apply(Patch{
		Operation: OpAddNode,
		Node:      &PatchNode{ID: "n1", Type: "aiAnalysis", Label: "Analyze"},
	})
	require.Len(t, descs, 1)
	assert.Equal(t, `Added Ai Analysis node "Analyze"`, descs[0].Description)
}
