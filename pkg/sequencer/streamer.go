package sequencer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/strideworks/go-strider/internal/log"
	"github.com/strideworks/go-strider/pkg/packet"
	"github.com/strideworks/go-strider/pkg/transport"
)

// DefaultPeriod is the control feed rate the robot expects.
const DefaultPeriod = 100 * time.Millisecond

// Source yields the frame to ship on each tick.
type Source interface {
	Current() packet.Packet
}

// Streamer ships the current frame over the persistent channel at a fixed
// period, independent of command boundaries. One instance per connection;
// Start while running is a no-op.
type Streamer struct {
	src    Source
	stream transport.Stream
	period time.Duration
	clk    clock.Clock

	mu      sync.Mutex
	running bool
	stopc   chan struct{}

	tap func(frame []byte)

	sent   atomic.Uint64
	errors atomic.Uint64
}

// StreamerOption configures a Streamer.
type StreamerOption func(*Streamer)

// WithPeriod overrides the tick period, for tests.
func WithPeriod(d time.Duration) StreamerOption {
	return func(s *Streamer) { s.period = d }
}

// WithStreamerClock substitutes the wall clock, for tests.
func WithStreamerClock(c clock.Clock) StreamerOption {
	return func(s *Streamer) { s.clk = c }
}

// NewStreamer creates a stopped streamer.
func NewStreamer(src Source, stream transport.Stream, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		src:    src,
		stream: stream,
		period: DefaultPeriod,
		clk:    clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTap installs an observer called with each frame that was actually
// sent. Used by the dashboard trace feed.
func (s *Streamer) SetTap(tap func(frame []byte)) {
	s.mu.Lock()
	s.tap = tap
	s.mu.Unlock()
}

// Start launches the tick loop. No-op when already running.
func (s *Streamer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopc = make(chan struct{})
	go s.run(s.stopc)
	log.Info("frame stream started", "period", s.period)
}

// Stop halts the tick loop. No-op when not running.
func (s *Streamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopc)
	log.Info("frame stream stopped", "sent", s.sent.Load(), "errors", s.errors.Load())
}

// IsRunning reports whether the tick loop is live.
func (s *Streamer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SentCount returns the number of frames handed to the transport.
func (s *Streamer) SentCount() uint64 {
	return s.sent.Load()
}

func (s *Streamer) run(stopc chan struct{}) {
	ticker := s.clk.Ticker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-stopc:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick ships one frame. Send failures count and log sparsely; the robot is
// open-loop so there is nothing to retry.
func (s *Streamer) tick() {
	frame := s.src.Current().Bytes()

	if err := s.stream.Send(frame); err != nil {
		n := s.errors.Add(1)
		if n%50 == 1 {
			log.Warn("frame send failed", "err", err, "errors", n)
		}
		return
	}
	s.sent.Add(1)

	s.mu.Lock()
	tap := s.tap
	s.mu.Unlock()
	if tap != nil {
		tap(frame)
	}
}
