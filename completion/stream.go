package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/logging"
)

const readChunkSize = 4096

// Stream is a pull-based iterator over the events of one streamed
// completion. Events are produced by a goroutine and handed out by Next.
// The stream ends after a finish event or a fatal error event.
//
// Callers must call Close when done, or cancel the context the stream was
// opened with.
type Stream struct {
	ch        <-chan core.StreamEvent
	errCh     <-chan error
	cancel    context.CancelFunc
	onClose   func()
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// NewStream runs producer in a goroutine. The producer calls emit for every
// event; emit returns false once the stream was closed, after which the
// producer should return. The producer's return value is reported by Next
// after the last event.
func NewStream(ctx context.Context, producer func(ctx context.Context, emit func(core.StreamEvent) bool) error) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan core.StreamEvent, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)

		emit := func(ev core.StreamEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := producer(ctx, emit); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	return &Stream{
		ch:     ch,
		errCh:  errCh,
		cancel: cancel,
	}
}

// NewReaderStream decodes frames read from body. body is closed when the
// stream ends or is closed. If body reaches EOF before a finish frame the
// stream ends with core.ErrStreamEndedWithoutFinish.
func NewReaderStream(ctx context.Context, body io.ReadCloser, logger logging.Logger) *Stream {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	var closeBody sync.Once
	release := func() { closeBody.Do(func() { _ = body.Close() }) }

	s := NewStream(ctx, func(ctx context.Context, emit func(core.StreamEvent) bool) error {
		defer release()

		dec := NewDecoder()
		buf := make([]byte, readChunkSize)

		for {
			n, readErr := body.Read(buf)
			if n > 0 {
				for _, ev := range dec.Feed(buf[:n]) {
					if ev.Type == core.StreamEventError && !ev.Fatal {
						logger.Warn("completion.stream.frame_error", "error", ev.Err.Error())
					}
					if !emit(ev) {
						return ctx.Err()
					}
					if ev.Type == core.StreamEventError && ev.Fatal {
						return ev.Err
					}
				}
				if dec.Done() {
					return nil
				}
			}

			if readErr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(readErr, io.EOF) {
					logger.Warn("completion.stream.unfinished", "pending", dec.Pending())
					return core.ErrStreamEndedWithoutFinish
				}
				return fmt.Errorf("%w: read stream: %w", core.ErrTransport, readErr)
			}
		}
	})
	s.onClose = release

	return s
}

// Next returns the next event. ok is false once the stream is exhausted;
// err then carries the reason the stream ended, if any. A fatal error event
// is returned as an event first and then again as err.
func (s *Stream) Next(ctx context.Context) (ev core.StreamEvent, ok bool, err error) {
	select {
	case <-ctx.Done():
		return core.StreamEvent{}, false, ctx.Err()
	case v, open := <-s.ch:
		if !open {
			return core.StreamEvent{}, false, s.finalErr()
		}
		return v, true, nil
	}
}

func (s *Stream) finalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case e, ok := <-s.errCh:
		if ok && s.err == nil {
			s.err = e
		}
	default:
	}

	return s.err
}

// Collect drains the stream and returns all events.
func (s *Stream) Collect(ctx context.Context) ([]core.StreamEvent, error) {
	var events []core.StreamEvent
	for {
		ev, ok, err := s.Next(ctx)
		if err != nil {
			return events, err
		}
		if !ok {
			return events, nil
		}
		events = append(events, ev)
	}
}

// Close stops the producer, releases the underlying connection and discards
// undelivered events. Safe to call multiple times.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
		for range s.ch {
		}
	})
	return nil
}
