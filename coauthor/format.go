//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package coauthor

import (
	"fmt"
	"strings"

	"trpc.group/trpc-go/playbook-coauthor-go/frame"
)

// formatClarification renders a clarification frame as message content: the
// question, a numbered option list if present, then free-text context.
func formatClarification(p frame.Clarification) string {
	var b strings.Builder
	b.WriteString(p.Question)
	if len(p.Options) > 0 {
		b.WriteString("\n")
		for i, opt := range p.Options {
			fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
		}
	}
	if p.Context != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Context)
	}
	return b.String()
}

// formatPlanPreview renders a plan preview frame: summary, numbered steps,
// estimated node count.
func formatPlanPreview(p frame.PlanPreview) string {
	var b strings.Builder
	b.WriteString(p.Summary)
	if len(p.Steps) > 0 {
		b.WriteString("\n")
		for i, step := range p.Steps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, step)
		}
	}
	if p.EstimatedNodes > 0 {
		fmt.Fprintf(&b, "\n\nEstimated nodes: %d", p.EstimatedNodes)
	}
	return b.String()
}

// formatDataverseOperation renders a host data-store operation as a
// progress step, e.g. `Create account (8f14...)`.
func formatDataverseOperation(p frame.DataverseOperation) string {
	return fmt.Sprintf("%s %s (%s)", p.Operation, p.Entity, p.ID)
}
