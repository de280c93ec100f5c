package completion

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsquad/core"
)

// chunkedReader returns the configured chunks one Read at a time.
type chunkedReader struct {
	chunks []string
	closed bool
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkedReader) Close() error {
	r.closed = true
	return nil
}

func TestReaderStream_ContentAccumulates(t *testing.T) {
	body := &chunkedReader{chunks: []string{
		"data: {\"type\":\"content\",\"content\":\"Hel\"}\n\n",
		"data: {\"type\":\"content\",\"content\":\"lo\"}\n\n",
		"data: {\"type\":\"finish\"}\n\n",
	}}

	s := NewReaderStream(context.Background(), body, nil)
	defer s.Close()

	var contents []string
	finish, err := Dispatch(context.Background(), s, Handlers{
		OnContent: func(_, content string) { contents = append(contents, content) },
	})
	require.NoError(t, err)
	require.NotNil(t, finish)

	assert.Equal(t, "Hello", finish.Content)
	assert.Equal(t, []string{"Hel", "Hello"}, contents)
	assert.True(t, body.closed)
}

func TestReaderStream_ExplicitFinalToolCalls(t *testing.T) {
	body := &chunkedReader{chunks: []string{
		"data: {\"type\":\"tool_call\",\"tool_call\":{\"id\":\"t1\",\"name\":\"lookup\"}}\n\n",
		"data: {\"type\":\"finish\",\"final_tool_calls\":[{\"id\":\"t7\",\"name\":\"other\"}]}\n\n",
	}}

	var seen []core.ToolCall
	var finished *Finish
	finish, err := Dispatch(context.Background(), NewReaderStream(context.Background(), body, nil), Handlers{
		OnToolCall: func(_ core.ToolCall, calls []core.ToolCall) { seen = calls },
		OnFinish:   func(f Finish) { finished = &f },
	})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, "t1", seen[0].ID)

	require.NotNil(t, finished)
	require.Len(t, finish.ToolCalls, 1)
	assert.Equal(t, "t7", finish.ToolCalls[0].ID)

	msg := finish.Message()
	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.True(t, msg.HasToolCalls())
}

func TestReaderStream_EndsWithoutFinish(t *testing.T) {
	body := &chunkedReader{chunks: []string{
		"data: {\"type\":\"content\",\"content\":\"partial\"}\n\n",
		"data: {\"type\":\"content\"",
	}}

	s := NewReaderStream(context.Background(), body, nil)
	defer s.Close()

	events, err := s.Collect(context.Background())
	assert.ErrorIs(t, err, core.ErrStreamEndedWithoutFinish)
	require.Len(t, events, 1)
	assert.Equal(t, "partial", events[0].Content)

	// The outcome is sticky.
	_, ok, err := s.Next(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrStreamEndedWithoutFinish)
}

func TestReaderStream_FatalErrorFrame(t *testing.T) {
	body := &chunkedReader{chunks: []string{
		"data: {\"type\":\"content\",\"content\":\"a\"}\n\n",
		"data: {\"error\":\"overloaded\"}\n\n",
		"data: {\"type\":\"finish\"}\n\n",
	}}

	var fatal []bool
	finish, err := Dispatch(context.Background(), NewReaderStream(context.Background(), body, nil), Handlers{
		OnError: func(_ error, isFatal bool) { fatal = append(fatal, isFatal) },
	})

	assert.Nil(t, finish)
	var streamErr *core.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "overloaded", streamErr.Message)
	assert.Equal(t, []bool{true}, fatal)
}

func TestReaderStream_MalformedFrameContinues(t *testing.T) {
	body := &chunkedReader{chunks: []string{
		"data: {oops}\n\n",
		"data: {\"type\":\"content\",\"content\":\"ok\"}\n\n",
		"data: {\"type\":\"finish\"}\n\n",
	}}

	var errs []error
	finish, err := Dispatch(context.Background(), NewReaderStream(context.Background(), body, nil), Handlers{
		OnError: func(e error, isFatal bool) {
			assert.False(t, isFatal)
			errs = append(errs, e)
		},
	})
	require.NoError(t, err)
	assert.Len(t, errs, 1)
	assert.Equal(t, "ok", finish.Content)
}

func TestReaderStream_CloseReleasesBody(t *testing.T) {
	pr, pw := io.Pipe()

	s := NewReaderStream(context.Background(), pr, nil)

	go func() {
		_, _ = pw.Write([]byte("data: {\"type\":\"content\",\"content\":\"x\"}\n\n"))
	}()

	ev, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", ev.Content)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = pw.Write([]byte("data: {\"type\":\"finish\"}\n\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	_, ok, _ = s.Next(context.Background())
	assert.False(t, ok)
}

func TestStream_NextHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	s := NewReaderStream(context.Background(), pr, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := s.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_TransportReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	body := io.NopCloser(io.MultiReader(strings.NewReader("data: {\"type\":\"con"), errReader{readErr}))

	_, err := NewReaderStream(context.Background(), body, nil).Collect(context.Background())
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.ErrorIs(t, err, readErr)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestMessageStream(t *testing.T) {
	msg := core.NewAssistantMessage("hi", core.ToolCall{ID: "t1", Name: "a"})

	s := MessageStream(context.Background(), msg)
	defer s.Close()

	events, err := s.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, core.StreamEventContent, events[0].Type)
	assert.Equal(t, core.StreamEventToolCall, events[1].Type)
	assert.Equal(t, core.StreamEventFinish, events[2].Type)
	assert.Equal(t, msg, events[2].Message())
}
