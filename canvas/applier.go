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
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trpc.group/trpc-go/playbook-coauthor-go/log"
)

// Applier executes patches against a Store and reports what it did. It is a
// pure mapping from patch payloads to store calls; it holds no state of its
// own and needs no locking because frames are dispatched one at a time.
type Applier struct {
	store Store
}

// NewApplier creates an Applier bound to the given store.
func NewApplier(store Store) *Applier {
	return &Applier{store: store}
}

// Apply executes every mutation described by the patch, in order, and
// returns one descriptor per mutation performed. The single-operation form
// is dispatched first, then the batch arrays in the fixed order add-nodes,
// remove-node-ids, update-nodes, add-edges, remove-edge-ids. Incomplete or
// unknown operations mutate nothing and produce no descriptor.
func (a *Applier) Apply(patch Patch) []OperationDescriptor {
	var descs []OperationDescriptor
	if patch.Operation != "" {
		if d, ok := a.applySingle(patch); ok {
			descs = append(descs, d)
		}
	}
	for _, n := range patch.AddNodes {
		descs = append(descs, a.addNode(n))
	}
	for _, id := range patch.RemoveNodeIDs {
		descs = append(descs, a.removeNode(id))
	}
	for _, n := range patch.UpdateNodes {
		descs = append(descs, a.updateNode(n.ID, mergeConfig(&n, nil)))
	}
	for _, e := range patch.AddEdges {
		descs = append(descs, a.addEdge(e))
	}
	for _, id := range patch.RemoveEdgeIDs {
		descs = append(descs, a.removeEdge(id))
	}
	return descs
}

// applySingle dispatches the single-operation form. The explicit unhandled
// arm exists so that incomplete payloads and unknown operations are logged
// rather than silently falling through.
func (a *Applier) applySingle(patch Patch) (OperationDescriptor, bool) {
	switch patch.Operation {
	case OpAddNode:
		if patch.Node == nil {
			return a.unhandled(patch, "missing node")
		}
		return a.addNode(*patch.Node), true
	case OpRemoveNode:
		if patch.NodeID == "" {
			return a.unhandled(patch, "missing nodeId")
		}
		return a.removeNode(patch.NodeID), true
	case OpUpdateNode, OpConfigureNode:
		if patch.NodeID == "" || (patch.Node == nil && patch.Config == nil) {
			return a.unhandled(patch, "missing nodeId or node/config")
		}
		return a.updateNode(patch.NodeID, mergeConfig(patch.Node, patch.Config)), true
	case OpAddEdge:
		if patch.Edge == nil {
			return a.unhandled(patch, "missing edge")
		}
		return a.addEdge(*patch.Edge), true
	case OpRemoveEdge:
		if patch.EdgeID == "" {
			return a.unhandled(patch, "missing edgeId")
		}
		return a.removeEdge(patch.EdgeID), true
	case OpLinkScope:
		return a.unhandled(patch, "not supported by this client")
	default:
		return a.unhandled(patch, "unknown operation")
	}
}

// unhandled logs and declines a single-operation patch without mutating the
// store. Tolerating these keeps a stream alive when the agent emits an
// operation this client does not understand yet.
func (a *Applier) unhandled(patch Patch, reason string) (OperationDescriptor, bool) {
	log.Warnf("canvas: skipping patch operation %q: %s", patch.Operation, reason)
	return OperationDescriptor{}, false
}

func (a *Applier) addNode(pn PatchNode) OperationDescriptor {
	node := pn.ToNode()
	a.store.AddNode(node)
	return OperationDescriptor{
		Kind:        DescAddNode,
		NodeID:      node.ID,
		Description: fmt.Sprintf("Added %s node %q", typeLabel(node.Type), displayName(pn)),
	}
}

func (a *Applier) removeNode(id string) OperationDescriptor {
	a.store.RemoveNode(id)
	return OperationDescriptor{
		Kind:        DescRemoveNode,
		NodeID:      id,
		Description: fmt.Sprintf("Removed node %q", id),
	}
}

func (a *Applier) updateNode(id string, data map[string]any) OperationDescriptor {
	a.store.UpdateNode(id, data)
	return OperationDescriptor{
		Kind:        DescUpdateNode,
		NodeID:      id,
		Description: fmt.Sprintf("Updated node %q", id),
	}
}

// addEdge appends to the store's edge list; existing edges are preserved.
func (a *Applier) addEdge(pe PatchEdge) OperationDescriptor {
	edge := pe.ToEdge()
	a.store.SetEdges(append(a.store.Edges(), edge))
	return OperationDescriptor{
		Kind:        DescAddEdge,
		EdgeID:      edge.ID,
		Description: fmt.Sprintf("Connected %q to %q", edge.Source, edge.Target),
	}
}

// removeEdge filters the edge out of the store's list, leaving the order of
// survivors unchanged.
func (a *Applier) removeEdge(id string) OperationDescriptor {
	edges := a.store.Edges()
	kept := edges[:0]
	for _, e := range edges {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	a.store.SetEdges(kept)
	return OperationDescriptor{
		Kind:        DescRemoveEdge,
		EdgeID:      id,
		Description: fmt.Sprintf("Removed connection %q", id),
	}
}

// mergeConfig builds the update payload for UpdateNode/ConfigureNode:
// node.config first, then the top-level config (later wins), plus an
// optional label override from the node payload.
func mergeConfig(node *PatchNode, config map[string]any) map[string]any {
	merged := make(map[string]any)
	if node != nil {
		for k, v := range node.Config {
			merged[k] = v
		}
	}
	for k, v := range config {
		merged[k] = v
	}
	if node != nil && node.Label != "" {
		merged["label"] = node.Label
	}
	return merged
}

func displayName(pn PatchNode) string {
	if pn.Label != "" {
		return pn.Label
	}
	return pn.ID
}

var titleCaser = cases.Title(language.English)

// typeLabel renders a camelCase node type as words, e.g. "aiAnalysis"
// becomes "Ai Analysis".
func typeLabel(t string) string {
	if t == "" {
		return "untyped"
	}
	var b strings.Builder
	for i, r := range t {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(strings.ToLower(b.String()))
}
