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
	"context"
	"encoding/json"
	"strings"

	"trpc.group/trpc-go/playbook-coauthor-go/log"
	"trpc.group/trpc-go/playbook-coauthor-go/telemetry"
)

const (
	eventPrefix = "event:"
	dataPrefix  = "data:"
)

// Decoder incrementally turns a chunked text stream into complete frames.
//
// Feeding the same total input split at any byte offsets yields the same
// ordered frame sequence as feeding it in one call. A frame whose payload is
// not valid JSON is dropped with a diagnostic log; it never aborts decoding.
//
// Decoder is not safe for concurrent use; the transport feeds it from a
// single read loop.
type Decoder struct {
	buf strings.Builder

	kind    string
	data    string
	hasData bool

	scanned int // bytes of buf already consumed into complete lines
}

// NewDecoder creates an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns every frame completed by it, in order.
func (d *Decoder) Feed(chunk string) []Frame {
	d.buf.WriteString(chunk)
	return d.consumeLines(false)
}

// Flush performs the end-of-stream parse attempt: any buffered but
// unterminated content is treated as if a frame terminator followed it.
func (d *Decoder) Flush() []Frame {
	return d.consumeLines(true)
}

// consumeLines processes all complete lines in the buffer. When final is
// set, the trailing unterminated line (if any) is processed too and a
// synthetic blank line closes any pending frame.
func (d *Decoder) consumeLines(final bool) []Frame {
	var frames []Frame
	s := d.buf.String()
	for {
		i := strings.IndexByte(s[d.scanned:], '\n')
		if i < 0 {
			break
		}
		line := s[d.scanned : d.scanned+i]
		d.scanned += i + 1
		if f, ok := d.consumeLine(strings.TrimSuffix(line, "\r")); ok {
			frames = append(frames, f)
		}
	}
	if d.scanned > 0 {
		rest := s[d.scanned:]
		d.buf.Reset()
		d.buf.WriteString(rest)
		d.scanned = 0
	}
	if final {
		if rest := d.buf.String(); rest != "" {
			d.buf.Reset()
			if f, ok := d.consumeLine(strings.TrimSuffix(rest, "\r")); ok {
				frames = append(frames, f)
			}
		}
		if f, ok := d.emit(); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// consumeLine advances the per-frame state by one line. A blank line closes
// the pending frame; anything the protocol does not define is skipped.
func (d *Decoder) consumeLine(line string) (Frame, bool) {
	switch {
	case line == "":
		return d.emit()
	case strings.HasPrefix(line, eventPrefix):
		d.kind = strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
	case strings.HasPrefix(line, dataPrefix):
		d.data = strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		d.hasData = true
	default:
		// Comment or unknown field line, tolerated and ignored.
	}
	return Frame{}, false
}

// emit validates and produces the pending frame, if any.
func (d *Decoder) emit() (Frame, bool) {
	kind, data, hasData := d.kind, d.data, d.hasData
	d.kind, d.data, d.hasData = "", "", false

	if kind == "" && !hasData {
		return Frame{}, false
	}
	k, ok := ParseKind(kind)
	if !ok {
		log.Warnf("frame: skipping unknown event kind %q", kind)
		telemetry.CountFramesDropped(context.Background(), 1)
		return Frame{}, false
	}
	if !hasData {
		log.Warnf("frame: skipping %q frame without data line", kind)
		telemetry.CountFramesDropped(context.Background(), 1)
		return Frame{}, false
	}
	if !json.Valid([]byte(data)) {
		log.Warnf("frame: dropping %q frame with malformed payload: %s", kind, data)
		telemetry.CountFramesDropped(context.Background(), 1)
		return Frame{}, false
	}
	return Frame{Kind: k, Data: json.RawMessage(data)}, true
}
