//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package stub

import (
	"fmt"
	"time"

	"trpc.group/trpc-go/playbook-coauthor-go/canvas"
	"trpc.group/trpc-go/playbook-coauthor-go/frame"
	"trpc.group/trpc-go/playbook-coauthor-go/transport"
)

// Step is one scripted frame with an optional delay before it is written.
type Step struct {
	Kind    frame.Kind
	Payload any
	Delay   time.Duration
}

// Script is an ordered frame sequence the stub replays for one turn.
type Script []Step

// ScriptFunc builds a script from the incoming turn request, letting tests
// and demos react to what the client sent.
type ScriptFunc func(req *transport.StreamRequest) Script

// DefaultScript answers any turn with a small plausible co-authoring
// exchange: a thinking note, one added node wired to the existing canvas,
// and a chunked message.
func DefaultScript(req *transport.StreamRequest) Script {
	nodeID := fmt.Sprintf("node-%d", len(req.CurrentCanvas.Nodes)+1)
	script := Script{
		{Kind: frame.KindThinking, Payload: frame.Thinking{Content: "Analyzing your request"}},
		{Kind: frame.KindCanvasPatch, Payload: canvas.Patch{
			Operation: canvas.OpAddNode,
			Node: &canvas.PatchNode{
				ID:    nodeID,
				Type:  "aiAnalysis",
				Label: "Analyze records",
			},
		}},
	}
	if n := len(req.CurrentCanvas.Nodes); n > 0 {
		prev := req.CurrentCanvas.Nodes[n-1].ID
		script = append(script, Step{Kind: frame.KindCanvasPatch, Payload: canvas.Patch{
			Operation: canvas.OpAddEdge,
			Edge: &canvas.PatchEdge{
				ID:     fmt.Sprintf("edge-%s-%s", prev, nodeID),
				Source: prev,
				Target: nodeID,
			},
		}})
	}
	return append(script,
		Step{Kind: frame.KindMessage, Payload: frame.Message{Content: "I added an ", IsPartial: true}},
		Step{Kind: frame.KindMessage, Payload: frame.Message{Content: "analysis step.", IsPartial: true}},
		Step{Kind: frame.KindDone, Payload: frame.Done{Summary: "Playbook updated."}},
	)
}
