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
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var reportMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// Markdown renders a dry-run record as a markdown report.
func Markdown(state *State) string {
	if state == nil {
		return "# Test Run Report\n\nNo test run has been recorded.\n"
	}

	var b strings.Builder
	b.WriteString("# Test Run Report\n\n")
	fmt.Fprintf(&b, "- Mode: %s\n", state.Mode)
	if state.AnalysisID != "" {
		fmt.Fprintf(&b, "- Analysis: %s\n", state.AnalysisID)
	}
	fmt.Fprintf(&b, "- Total duration: %dms\n", state.TotalDurationMs)
	switch {
	case state.IsActive:
		b.WriteString("- Outcome: still running\n")
	case state.Error != "":
		fmt.Fprintf(&b, "- Outcome: failed (%s)\n", state.Error)
	default:
		b.WriteString("- Outcome: completed\n")
	}

	b.WriteString("\n| Node | Status | Duration | Detail |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, p := range state.NodesProgress {
		detail := p.Output
		if p.Error != "" {
			detail = p.Error
		}
		fmt.Fprintf(&b, "| %s | %s | %dms | %s |\n",
			p.Label, p.Status, p.DurationMs, sanitizeCell(detail))
	}
	return b.String()
}

// RenderHTML renders the markdown report to HTML.
func RenderHTML(state *State) (string, error) {
	var out bytes.Buffer
	if err := reportMarkdown.Convert([]byte(Markdown(state)), &out); err != nil {
		return "", fmt.Errorf("testrun: failed to render report: %w", err)
	}
	return out.String(), nil
}

// sanitizeCell keeps node output from breaking the table layout.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
