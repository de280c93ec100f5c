package completion

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentsquad/core"
)

const framePrefix = "data: "

var frameDelimiter = []byte("\n\n")

// frame is the JSON document carried by one "data: " frame.
type frame struct {
	Type           string          `json:"type"`
	Content        string          `json:"content"`
	ToolCall       *core.ToolCall  `json:"tool_call"`
	FinalContent   *string         `json:"final_content"`
	FinalToolCalls []core.ToolCall `json:"final_tool_calls"`
	FinishReason   string          `json:"finish_reason"`
	Error          json.RawMessage `json:"error"`
}

// Decoder incrementally decodes a chunked frame stream into events. It does
// no I/O: feed it whatever the transport produced and it returns the events
// completed by that chunk. Splitting the same bytes differently yields the
// same events.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	content string
	calls   []core.ToolCall
	index   map[string]int
	last    int
	done    bool
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{index: make(map[string]int), last: -1}
}

// Done reports whether a finish frame or a fatal error frame was decoded.
// Input fed after that is ignored.
func (d *Decoder) Done() bool { return d.done }

// Pending reports whether bytes of an incomplete frame are buffered.
func (d *Decoder) Pending() bool { return len(bytes.TrimSpace(d.buf)) > 0 }

// Content returns the text accumulated so far.
func (d *Decoder) Content() string { return d.content }

// ToolCalls returns a copy of the tool calls accumulated so far in first-seen order.
func (d *Decoder) ToolCalls() []core.ToolCall { return cloneCalls(d.calls) }

// Feed appends chunk to the carry-over buffer and decodes every complete
// frame in it.
func (d *Decoder) Feed(chunk []byte) []core.StreamEvent {
	if d.done {
		return nil
	}

	d.buf = append(d.buf, chunk...)

	var events []core.StreamEvent
	for !d.done {
		i := bytes.Index(d.buf, frameDelimiter)
		if i < 0 {
			break
		}

		raw := d.buf[:i]
		d.buf = d.buf[i+len(frameDelimiter):]

		if ev, ok := d.decodeFrame(raw); ok {
			events = append(events, ev)
		}
	}

	if d.done {
		d.buf = nil
	} else if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}

	return events
}

func (d *Decoder) decodeFrame(raw []byte) (core.StreamEvent, bool) {
	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte(framePrefix)) {
		return core.StreamEvent{}, false
	}

	payload := bytes.TrimSpace(raw[len(framePrefix):])
	if len(payload) == 0 || bytes.Equal(payload, []byte("[DONE]")) {
		return core.StreamEvent{}, false
	}

	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return core.StreamEvent{
			Type: core.StreamEventError,
			Err:  fmt.Errorf("%w: malformed frame: %v", core.ErrStream, err),
		}, true
	}

	if errorSet(f.Error) {
		d.done = true
		return core.StreamEvent{
			Type:  core.StreamEventError,
			Err:   &core.StreamError{Message: errorMessage(f.Error)},
			Fatal: true,
		}, true
	}

	switch f.Type {
	case "content":
		d.content += f.Content
		return core.StreamEvent{Type: core.StreamEventContent, Delta: f.Content, Content: d.content}, true
	case "tool_call":
		if f.ToolCall == nil {
			return core.StreamEvent{}, false
		}
		delta := f.ToolCall.Clone()
		d.upsert(delta)
		return core.StreamEvent{Type: core.StreamEventToolCall, ToolCall: &delta, ToolCalls: cloneCalls(d.calls)}, true
	case "finish":
		d.done = true

		content := d.content
		if f.FinalContent != nil && *f.FinalContent != "" {
			content = *f.FinalContent
		}

		calls := cloneCalls(d.calls)
		if f.FinalToolCalls != nil {
			calls = cloneCalls(f.FinalToolCalls)
		}

		return core.StreamEvent{Type: core.StreamEventFinish, Content: content, ToolCalls: calls, FinishReason: f.FinishReason}, true
	default:
		return core.StreamEvent{}, false
	}
}

// upsert merges a tool call delta into the accumulator. Deltas without an id
// continue the most recently seen call. Non-empty fields of later deltas
// overwrite earlier values.
func (d *Decoder) upsert(delta core.ToolCall) {
	pos, ok := -1, false
	if delta.ID != "" {
		pos, ok = d.index[delta.ID]
	} else if d.last >= 0 {
		pos, ok = d.last, true
	}

	if !ok {
		d.calls = append(d.calls, delta.Clone())
		pos = len(d.calls) - 1
		if delta.ID != "" {
			d.index[delta.ID] = pos
		}
		d.last = pos
		return
	}

	existing := &d.calls[pos]
	if delta.Name != "" {
		existing.Name = delta.Name
	}
	if len(delta.Arguments) > 0 {
		existing.Arguments = append(json.RawMessage(nil), delta.Arguments...)
	}
	d.last = pos
}

// errorSet reports whether an error field carries a value. Empty strings,
// false, zero and null do not end the stream.
func errorSet(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}

	return string(raw)
}

func cloneCalls(calls []core.ToolCall) []core.ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]core.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = c.Clone()
	}
	return out
}
