package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultQueueSize = 64

// Handler consumes one advertisement. A Session never runs two handlers at once.
type Handler func(ctx context.Context, a Advertisement)

type SessionOptions struct {
	// Window is the length of one scan window.
	Window time.Duration
	// Pause is the idle time between two windows.
	Pause time.Duration
	// QueueSize bounds the advertisements buffered between the radio callback
	// and the handler.
	QueueSize int
}

// Session drives a Source in repeated scan windows and serialises delivery to
// its handler.
type Session struct {
	source Source
	opts   SessionOptions
	handle Handler
	logger *slog.Logger
}

func NewSession(source Source, opts SessionOptions, handle Handler, logger *slog.Logger) *Session {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		source: source,
		opts:   opts,
		handle: handle,
		logger: logger,
	}
}

// Run scans window after window until ctx is done or the source reports
// ErrEndOfStream. Both end the session cleanly with a nil error.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("ble: scan session started",
		"window", s.opts.Window,
		"pause", s.opts.Pause,
	)

	for n := 1; ; n++ {
		err := s.scanWindow(ctx, n)
		if errors.Is(err, ErrEndOfStream) {
			s.logger.Info("ble: source exhausted, session stopped", "windows", n)
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			s.logger.Info("ble: scan session stopped (context canceled)", "windows", n)
			return nil
		case <-time.After(s.opts.Pause):
		}
	}
}

func (s *Session) scanWindow(ctx context.Context, n int) error {
	wctx, cancel := context.WithTimeout(ctx, s.opts.Window)
	defer cancel()

	events := make(chan Advertisement, s.opts.QueueSize)
	done := make(chan int)
	go func() {
		handled := 0
		for a := range events {
			s.handle(ctx, a)
			handled++
		}
		done <- handled
	}()

	// Platform stacks may still fire a callback while Scan unwinds; mu keeps
	// those sends from racing the close below. A send only gives up when the
	// session ctx ends, so the window closing never drops an advertisement
	// the source already handed over.
	var (
		mu     sync.RWMutex
		closed bool
	)
	err := s.source.Scan(wctx, func(a Advertisement) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		select {
		case events <- a:
		case <-ctx.Done():
		}
	})

	cancel()
	mu.Lock()
	closed = true
	close(events)
	mu.Unlock()
	handled := <-done

	s.logger.Debug("ble: scan window finished", "window", n, "advertisements", handled)

	switch {
	case errors.Is(err, ErrEndOfStream):
		return err
	case err != nil && ctx.Err() != nil:
		return nil
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return nil
	case err != nil:
		return fmt.Errorf("scan window %d: %w", n, err)
	}
	return nil
}
