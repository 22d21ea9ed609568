// Package audit is the append-only security event log. Recording is
// best-effort by contract: a full buffer or a failing sink never blocks
// or fails the guarded operation, but every loss is counted so silent
// drops stay observable.
package audit

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/blogd/internal/store"
	"github.com/me/blogd/pkg/model"
)

// Sink consumes security events. Implementations must tolerate
// concurrent calls from the single dispatcher goroutine plus tests.
type Sink interface {
	Emit(ctx context.Context, ev *model.SecurityEvent) error
}

// StoreSink appends events to the security_events table.
type StoreSink struct {
	st store.Store
}

// NewStoreSink creates a sink over the given store.
func NewStoreSink(st store.Store) *StoreSink {
	return &StoreSink{st: st}
}

func (s *StoreSink) Emit(ctx context.Context, ev *model.SecurityEvent) error {
	return s.st.AppendSecurityEvent(ctx, ev)
}

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink over the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(_ context.Context, ev *model.SecurityEvent) error {
	s.logger.Info("security",
		"action", ev.Action,
		"user_id", ev.UserID,
		"ip", ev.IP,
		"user_agent", ev.UserAgent,
		"path", ev.Path,
		"timestamp", ev.CreatedAt.Format(time.RFC3339),
	)
	return nil
}

// MultiSink fans an event out to every sink. One sink failing does not
// stop the others.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, ev *model.SecurityEvent) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Log is the security event log. Events are handed to a buffered channel
// and written by a single background goroutine; callers never wait on
// the sink.
type Log struct {
	sink      Sink
	logger    *slog.Logger
	ch        chan *model.SecurityEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Log writing to sink. buffer bounds the queue; events
// beyond it are dropped and counted.
func New(sink Sink, buffer int, logger *slog.Logger) *Log {
	if buffer <= 0 {
		buffer = 256
	}
	l := &Log{
		sink:   sink,
		logger: logger.With("component", "audit"),
		ch:     make(chan *model.SecurityEvent, buffer),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Log) run() {
	defer l.wg.Done()
	for {
		select {
		case ev := <-l.ch:
			l.emit(ev)
		case <-l.done:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case ev := <-l.ch:
					l.emit(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Log) emit(ev *model.SecurityEvent) {
	if err := l.sink.Emit(context.Background(), ev); err != nil {
		l.dropped.Add(1)
		l.logger.Warn("audit sink failure", "action", ev.Action, "error", err)
	}
}

// Record captures a security event from an HTTP request. userID is 0
// when no principal is known. It never blocks and never fails the
// calling operation.
func (l *Log) Record(action string, userID int64, r *http.Request) {
	ev := &model.SecurityEvent{
		Action:    action,
		UserID:    userID,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		CreatedAt: time.Now().UTC(),
	}
	l.RecordEvent(ev)
}

// RecordEvent enqueues an already-built event.
func (l *Log) RecordEvent(ev *model.SecurityEvent) {
	if l == nil || l.closed.Load() {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	select {
	case l.ch <- ev:
	case <-l.done:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to a full buffer or a
// failing sink.
func (l *Log) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close drains the queue and stops the dispatcher.
func (l *Log) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
		l.wg.Wait()
	})
}
