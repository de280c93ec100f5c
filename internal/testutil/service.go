package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/agentsquad/completion"
	"github.com/hupe1980/agentsquad/core"
)

// Request is one recorded call to a ScriptedService.
type Request struct {
	Messages []core.Message
	Tools    []core.ToolSchema
	Streamed bool
}

// ToolNames returns the names of the tools offered in the request.
func (r Request) ToolNames() []string {
	names := make([]string, len(r.Tools))
	for i, t := range r.Tools {
		names[i] = t.Function.Name
	}
	return names
}

type reply struct {
	msg    core.Message
	frames string
	err    error
}

// ScriptedService replays queued replies in order and records every request.
// SendMessage and StreamMessage share one queue: a queued message is replayed
// as content, tool call and finish frames when streamed, queued raw frames are
// decoded exactly as the HTTP client would decode them.
type ScriptedService struct {
	mu       sync.Mutex
	replies  []reply
	requests []Request
}

var _ completion.Service = (*ScriptedService)(nil)

// NewScriptedService creates a service that replies with msgs in order.
func NewScriptedService(msgs ...core.Message) *ScriptedService {
	s := &ScriptedService{}
	for _, m := range msgs {
		s.Reply(m)
	}
	return s
}

// Reply queues an assistant message.
func (s *ScriptedService) Reply(msg core.Message) *ScriptedService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{msg: msg})
	return s
}

// ReplyFrames queues raw stream frames. Streamed requests decode them,
// non-streamed requests fail.
func (s *ScriptedService) ReplyFrames(frames ...string) *ScriptedService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{frames: strings.Join(frames, "")})
	return s
}

// Fail queues an error.
func (s *ScriptedService) Fail(err error) *ScriptedService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{err: err})
	return s
}

// Requests returns the recorded requests.
func (s *ScriptedService) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining returns the number of unconsumed replies.
func (s *ScriptedService) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}

func (s *ScriptedService) next(messages []core.Message, tools []core.ToolSchema, streamed bool) (reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := make([]core.Message, len(messages))
	for i, m := range messages {
		recorded[i] = m.Clone()
	}
	s.requests = append(s.requests, Request{Messages: recorded, Tools: append([]core.ToolSchema(nil), tools...), Streamed: streamed})

	if len(s.replies) == 0 {
		return reply{}, fmt.Errorf("%w: scripted service has no reply for request %d", core.ErrTransport, len(s.requests))
	}

	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, r.err
}

// SendMessage implements completion.Service.
func (s *ScriptedService) SendMessage(_ context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error) {
	r, err := s.next(messages, tools, false)
	if err != nil {
		return core.Message{}, err
	}
	if r.frames != "" {
		return core.Message{}, fmt.Errorf("%w: scripted frames require a streamed request", core.ErrTransport)
	}
	return r.msg.Clone(), nil
}

// StreamMessage implements completion.Service.
func (s *ScriptedService) StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*completion.Stream, error) {
	r, err := s.next(messages, tools, true)
	if err != nil {
		return nil, err
	}
	if r.frames != "" {
		return completion.NewReaderStream(ctx, io.NopCloser(strings.NewReader(r.frames)), nil), nil
	}
	return completion.MessageStream(ctx, r.msg.Clone()), nil
}

// MockService is a testify mock of completion.Service.
type MockService struct {
	mock.Mock
}

var _ completion.Service = (*MockService)(nil)

// SendMessage implements completion.Service.
func (m *MockService) SendMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error) {
	args := m.Called(ctx, messages, tools)
	return args.Get(0).(core.Message), args.Error(1)
}

// StreamMessage implements completion.Service.
func (m *MockService) StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*completion.Stream, error) {
	args := m.Called(ctx, messages, tools)
	s, _ := args.Get(0).(*completion.Stream)
	return s, args.Error(1)
}
