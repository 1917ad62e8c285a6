package rulpm

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"github.com/lucianolorenti/rul-pm/internal/adapters/sink"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("rulpm: channel sink closed")

// Sink receives whole lives during Export.
type Sink = ports.Sink

// ExportedLife is one life handed to a callback or channel sink.
type ExportedLife struct {
	Entry ManifestEntry
	Frame *Frame
}

// LifeHandler is invoked once per exported life.
type LifeHandler func(ExportedLife) error

// NewCallbackSink adapts a LifeHandler into a Sink so callers can plug
// arbitrary functions without defining structs.
func NewCallbackSink(name string, fn LifeHandler) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes lives via a channel; it returns the sink, the read-only
// channel, and a close function that the caller should invoke when done.
func NewChannelSink(name string, buffer int) (Sink, <-chan ExportedLife, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan ExportedLife, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

// OpenTimescaleSink connects to PostgreSQL/TimescaleDB with lib/pq. The caller
// closes the returned *sql.DB.
func OpenTimescaleSink(cfg TimescaleConfig) (Sink, *sql.DB, error) {
	if cfg.ConnString == "" {
		return nil, nil, fmt.Errorf("timescale.conn_string is required")
	}
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, nil, err
	}
	return sink.NewTimescaleSink(db, cfg.Table), db, nil
}

type callbackSink struct {
	name string
	fn   LifeHandler
}

func (s *callbackSink) WriteLife(entry ManifestEntry, f *Frame) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(ExportedLife{Entry: entry, Frame: f})
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan ExportedLife
	closed chan struct{}
	once   sync.Once
	// mu keeps close(ch) from racing a send in flight.
	mu sync.RWMutex
}

func (s *channelSink) WriteLife(entry ManifestEntry, f *Frame) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- ExportedLife{Entry: entry, Frame: f}:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		// closed first, so blocked writers return and release the read lock
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
