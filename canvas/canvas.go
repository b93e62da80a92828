//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package canvas models the playbook graph the user and the agent co-author:
// the node/edge store and the applier that turns streamed patches into
// concrete store mutations.
package canvas

import "sync"

// Position is the location of a node on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition is assigned to nodes created without an explicit position.
// Nodes must never enter the store without one.
var DefaultPosition = Position{X: 100, Y: 100}

// Node is the canvas's native node representation.
type Node struct {
	// ID is the unique identifier of the node.
	ID string `json:"id"`
	// Type is the node type, e.g. "aiAnalysis" or "dataverseQuery".
	Type string `json:"type"`
	// Position is the node's location on the canvas.
	Position Position `json:"position"`
	// Data holds the node's label and configuration.
	Data map[string]any `json:"data,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type,omitempty"`
	Animated bool   `json:"animated,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Store is the externally-owned graph store the applier mutates. The canvas
// renderer owns the authoritative copy; this package only issues these calls
// and reads current state to build turn requests.
type Store interface {
	// AddNode adds a node to the canvas.
	AddNode(node Node)
	// RemoveNode removes the node with the given id, if present.
	RemoveNode(id string)
	// UpdateNode shallow-merges data into the node's Data map.
	UpdateNode(id string, data map[string]any)
	// SetEdges replaces the edge list wholesale.
	SetEdges(edges []Edge)
	// Nodes returns a snapshot of the current nodes in insertion order.
	Nodes() []Node
	// Edges returns a snapshot of the current edges in list order.
	Edges() []Edge
}

// MemoryStore is an in-memory Store. All mutation is serialized behind one
// mutex so a future concurrent-edit path cannot race patch application.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes []Node
	edges []Edge
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddNode adds a node. A node with an existing id replaces the old one in
// place, preserving its position in insertion order.
func (s *MemoryStore) AddNode(node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nodes {
		if s.nodes[i].ID == node.ID {
			s.nodes[i] = node
			return
		}
	}
	s.nodes = append(s.nodes, node)
}

// RemoveNode removes the node with the given id, if present.
func (s *MemoryStore) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.nodes[:0]
	for _, n := range s.nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.nodes = kept
}

// UpdateNode shallow-merges data into the node's Data map. Unknown ids are
// ignored.
func (s *MemoryStore) UpdateNode(id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nodes {
		if s.nodes[i].ID != id {
			continue
		}
		if s.nodes[i].Data == nil {
			s.nodes[i].Data = make(map[string]any, len(data))
		}
		for k, v := range data {
			s.nodes[i].Data[k] = v
		}
		return
	}
}

// SetEdges replaces the edge list wholesale.
func (s *MemoryStore) SetEdges(edges []Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = make([]Edge, len(edges))
	copy(s.edges, edges)
}

// Nodes returns a snapshot of the current nodes in insertion order.
func (s *MemoryStore) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a snapshot of the current edges in list order.
func (s *MemoryStore) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}
