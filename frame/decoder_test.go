//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package frame

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "event: thinking\n" +
	"data: {\"content\":\"Analyzing\"}\n" +
	"\n" +
	"event: canvas_patch\n" +
	"data: {\"operation\":\"AddNode\",\"node\":{\"id\":\"n1\",\"type\":\"aiAnalysis\"}}\n" +
	"\n" +
	"event: message\n" +
	"data: {\"content\":\"Hello\",\"isPartial\":true}\n" +
	"\n" +
	"event: done\n" +
	"data: {}\n" +
	"\n"

func decodeAll(t *testing.T, chunks ...string) []Frame {
	t.Helper()
	d := NewDecoder()
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, d.Feed(c)...)
	}
	return append(frames, d.Flush()...)
}

func TestDecodeSingleFeed(t *testing.T) {
	frames := decodeAll(t, sampleStream)
	require.Len(t, frames, 4)
	assert.Equal(t, KindThinking, frames[0].Kind)
	assert.Equal(t, KindCanvasPatch, frames[1].Kind)
	assert.Equal(t, KindMessage, frames[2].Kind)
	assert.Equal(t, KindDone, frames[3].Kind)
	assert.JSONEq(t, `{"content":"Analyzing"}`, string(frames[0].Data))
}

func TestBoundaryInsensitivity(t *testing.T) {
	want := decodeAll(t, sampleStream)
	require.Len(t, want, 4)

	// Splitting at every possible byte offset must yield the identical
	// frame sequence.
	for i := 0; i <= len(sampleStream); i++ {
		got := decodeAll(t, sampleStream[:i], sampleStream[i:])
		assert.Equal(t, want, got, "split at offset %d", i)
	}
}

func TestBoundaryInsensitivityByteAtATime(t *testing.T) {
	want := decodeAll(t, sampleStream)

	d := NewDecoder()
	var got []Frame
	for i := 0; i < len(sampleStream); i++ {
		got = append(got, d.Feed(sampleStream[i:i+1])...)
	}
	got = append(got, d.Flush()...)
	assert.Equal(t, want, got)
}

func TestMalformedPayloadDropped(t *testing.T) {
	stream := "event: thinking\n" +
		"data: {not json\n" +
		"\n" +
		"event: done\n" +
		"data: {}\n" +
		"\n"
	frames := decodeAll(t, stream)
	require.Len(t, frames, 1, "malformed frame must be dropped, not fatal")
	assert.Equal(t, KindDone, frames[0].Kind)
}

func TestUnknownKindSkipped(t *testing.T) {
	stream := "event: telepathy\n" +
		"data: {}\n" +
		"\n" +
		"event: done\n" +
		"data: {}\n" +
		"\n"
	frames := decodeAll(t, stream)
	require.Len(t, frames, 1)
	assert.Equal(t, KindDone, frames[0].Kind)
}

func TestFrameWithoutDataSkipped(t *testing.T) {
	stream := "event: thinking\n" +
		"\n" +
		"event: done\n" +
		"data: {}\n" +
		"\n"
	frames := decodeAll(t, stream)
	require.Len(t, frames, 1)
	assert.Equal(t, KindDone, frames[0].Kind)
}

func TestFlushParsesUnterminatedFrame(t *testing.T) {
	// No trailing blank line and no trailing newline at all: the final
	// flush must still give the buffered frame one parse attempt.
	stream := "event: done\ndata: {\"summary\":\"All set\"}"
	d := NewDecoder()
	require.Empty(t, d.Feed(stream))
	frames := d.Flush()
	require.Len(t, frames, 1)
	assert.Equal(t, KindDone, frames[0].Kind)
	assert.JSONEq(t, `{"summary":"All set"}`, string(frames[0].Data))
}

func TestCRLFTolerated(t *testing.T) {
	stream := strings.ReplaceAll(sampleStream, "\n", "\r\n")
	frames := decodeAll(t, stream)
	require.Len(t, frames, 4)
	assert.Equal(t, KindThinking, frames[0].Kind)
	assert.Equal(t, KindDone, frames[3].Kind)
}

func TestCommentLinesIgnored(t *testing.T) {
	stream := ": keepalive\n" +
		"event: done\n" +
		"data: {}\n" +
		"\n"
	frames := decodeAll(t, stream)
	require.Len(t, frames, 1)
	assert.Equal(t, KindDone, frames[0].Kind)
}

func TestBlankLinesBetweenFramesIgnored(t *testing.T) {
	stream := "\n\n" + sampleStream + "\n\n"
	frames := decodeAll(t, stream)
	require.Len(t, frames, 4)
}

func TestManyFramesOrderPreserved(t *testing.T) {
	var b strings.Builder
	const n = 50
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "event: message\ndata: {\"content\":\"%d\",\"isPartial\":true}\n\n", i)
	}
	frames := decodeAll(t, b.String())
	require.Len(t, frames, n)
	for i, f := range frames {
		assert.JSONEq(t, fmt.Sprintf(`{"content":"%d","isPartial":true}`, i), string(f.Data))
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{
		"thinking", "dataverse_operation", "canvas_patch", "message",
		"clarification", "plan_preview", "done", "error",
	} {
		k, ok := ParseKind(name)
		assert.True(t, ok, name)
		assert.Equal(t, Kind(name), k)
	}
	_, ok := ParseKind("bogus")
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, KindDone.IsTerminal())
	assert.True(t, KindError.IsTerminal())
	assert.False(t, KindMessage.IsTerminal())
	assert.False(t, KindThinking.IsTerminal())
}
