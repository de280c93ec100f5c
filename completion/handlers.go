package completion

import (
	"context"

	"github.com/hupe1980/agentsquad/core"
)

// Handlers receive the events of a stream. Nil handlers are skipped.
type Handlers struct {
	// OnContent receives every text delta together with the text accumulated so far.
	OnContent func(delta, content string)
	// OnToolCall receives every tool call delta and all calls seen so far.
	OnToolCall func(call core.ToolCall, calls []core.ToolCall)
	// OnFinish receives the final content and tool calls.
	OnFinish func(f Finish)
	// OnError receives malformed frame errors (fatal=false) and stream errors (fatal=true).
	OnError func(err error, fatal bool)
}

// Finish is the terminal result of a stream.
type Finish struct {
	Content   string
	ToolCalls []core.ToolCall
	Reason    string
}

// Message converts f into the assistant message it represents.
func (f Finish) Message() core.Message {
	return core.StreamEvent{Type: core.StreamEventFinish, Content: f.Content, ToolCalls: f.ToolCalls}.Message()
}

// Dispatch consumes s, invokes the matching handler for every event and
// closes s. It returns the finish result, or an error if the stream ended
// with a fatal error, without a finish event, or ctx was cancelled.
func Dispatch(ctx context.Context, s *Stream, h Handlers) (*Finish, error) {
	defer s.Close()

	var finish *Finish
	for {
		ev, ok, err := s.Next(ctx)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err, true)
			}
			return finish, err
		}
		if !ok {
			if finish == nil {
				return nil, core.ErrStreamEndedWithoutFinish
			}
			return finish, nil
		}

		switch ev.Type {
		case core.StreamEventContent:
			if h.OnContent != nil {
				h.OnContent(ev.Delta, ev.Content)
			}
		case core.StreamEventToolCall:
			if h.OnToolCall != nil && ev.ToolCall != nil {
				h.OnToolCall(*ev.ToolCall, ev.ToolCalls)
			}
		case core.StreamEventFinish:
			finish = &Finish{Content: ev.Content, ToolCalls: ev.ToolCalls, Reason: ev.FinishReason}
			if h.OnFinish != nil {
				h.OnFinish(*finish)
			}
		case core.StreamEventError:
			if h.OnError != nil {
				h.OnError(ev.Err, ev.Fatal)
			}
			if ev.Fatal {
				return finish, ev.Err
			}
		}
	}
}
