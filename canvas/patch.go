//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package canvas

// Operation names a single-operation patch variant.
type Operation string

// Single-operation patch variants sent by the agent.
const (
	OpAddNode       Operation = "AddNode"
	OpRemoveNode    Operation = "RemoveNode"
	OpUpdateNode    Operation = "UpdateNode"
	OpConfigureNode Operation = "ConfigureNode"
	OpAddEdge       Operation = "AddEdge"
	OpRemoveEdge    Operation = "RemoveEdge"
	OpLinkScope     Operation = "LinkScope"
)

// PatchNode is the node payload carried by a patch. It is the agent's wire
// shape, not the canvas's native node type; ToNode converts it.
type PatchNode struct {
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	Label             string         `json:"label,omitempty"`
	Position          *Position      `json:"position,omitempty"`
	Config            map[string]any `json:"config,omitempty"`
	ActionID          string         `json:"actionId,omitempty"`
	OutputVariable    string         `json:"outputVariable,omitempty"`
	SkillIDs          []string       `json:"skillIds,omitempty"`
	KnowledgeIDs      []string       `json:"knowledgeIds,omitempty"`
	ToolID            string         `json:"toolId,omitempty"`
	ModelDeploymentID string         `json:"modelDeploymentId,omitempty"`
}

// PatchEdge is the edge payload carried by a patch.
type PatchEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type,omitempty"`
	Animated *bool  `json:"animated,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Patch describes one or more graph mutations sent by the agent. Two
// mutually compatible shapes share this struct: the single-operation form
// (Operation plus its required fields) used while the agent streams one
// change at a time, and the batch form (the array fields) used for bulk
// replace. Both may be present on the same patch and are processed
// independently.
type Patch struct {
	Operation Operation      `json:"operation,omitempty"`
	NodeID    string         `json:"nodeId,omitempty"`
	EdgeID    string         `json:"edgeId,omitempty"`
	Node      *PatchNode     `json:"node,omitempty"`
	Edge      *PatchEdge     `json:"edge,omitempty"`
	Config    map[string]any `json:"config,omitempty"`

	AddNodes      []PatchNode `json:"addNodes,omitempty"`
	RemoveNodeIDs []string    `json:"removeNodeIds,omitempty"`
	UpdateNodes   []PatchNode `json:"updateNodes,omitempty"`
	AddEdges      []PatchEdge `json:"addEdges,omitempty"`
	RemoveEdgeIDs []string    `json:"removeEdgeIds,omitempty"`
}

// DescriptorKind classifies an applied operation for the chat transcript.
type DescriptorKind string

// Descriptor kinds.
const (
	DescAddNode    DescriptorKind = "add_node"
	DescRemoveNode DescriptorKind = "remove_node"
	DescUpdateNode DescriptorKind = "update_node"
	DescAddEdge    DescriptorKind = "add_edge"
	DescRemoveEdge DescriptorKind = "remove_edge"
)

// OperationDescriptor is the human-readable record of one applied mutation.
// Immutable once created; the conversation state machine appends it to the
// in-flight assistant message.
type OperationDescriptor struct {
	Kind        DescriptorKind `json:"kind"`
	NodeID      string         `json:"nodeId,omitempty"`
	EdgeID      string         `json:"edgeId,omitempty"`
	Description string         `json:"description"`
}

// ToNode converts the wire shape to the canvas's native node representation,
// applying the position default.
func (p PatchNode) ToNode() Node {
	pos := DefaultPosition
	if p.Position != nil {
		pos = *p.Position
	}
	data := make(map[string]any, len(p.Config)+2)
	for k, v := range p.Config {
		data[k] = v
	}
	if p.Label != "" {
		data["label"] = p.Label
	}
	if p.ActionID != "" {
		data["actionId"] = p.ActionID
	}
	if p.OutputVariable != "" {
		data["outputVariable"] = p.OutputVariable
	}
	if len(p.SkillIDs) > 0 {
		data["skillIds"] = p.SkillIDs
	}
	if len(p.KnowledgeIDs) > 0 {
		data["knowledgeIds"] = p.KnowledgeIDs
	}
	if p.ToolID != "" {
		data["toolId"] = p.ToolID
	}
	if p.ModelDeploymentID != "" {
		data["modelDeploymentId"] = p.ModelDeploymentID
	}
	if len(data) == 0 {
		data = nil
	}
	return Node{
		ID:       p.ID,
		Type:     p.Type,
		Position: pos,
		Data:     data,
	}
}

// ToEdge converts the wire shape to the canvas's native edge representation.
// Type defaults to a smooth-stepped connector and Animated to true when
// absent.
func (p PatchEdge) ToEdge() Edge {
	e := Edge{
		ID:       p.ID,
		Source:   p.Source,
		Target:   p.Target,
		Type:     p.Type,
		Animated: true,
		Label:    p.Label,
	}
	if e.Type == "" {
		e.Type = "smoothstep"
	}
	if p.Animated != nil {
		e.Animated = *p.Animated
	}
	return e
}
