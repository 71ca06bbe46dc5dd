// Package walker is the public motion surface for the hexapod. It owns the
// sequencer, the streaming loop and both transports, and enforces the
// disconnect ordering that guarantees the robot's last frame is neutral.
package walker

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/strideworks/go-strider/internal/log"
	"github.com/strideworks/go-strider/pkg/motion"
	"github.com/strideworks/go-strider/pkg/packet"
	"github.com/strideworks/go-strider/pkg/sequencer"
	"github.com/strideworks/go-strider/pkg/transport"
)

// Config wires a Walker. StreamAddr is the robot's websocket control URL;
// EchoURL, when set, enables the one-shot frame echo. Stream and Echo
// override the default transports (tests inject fakes here). Clock
// substitutes the wall clock for the sequencer and streaming loop.
type Config struct {
	StreamAddr  string
	EchoURL     string
	Calibration motion.Calibration

	Stream transport.Stream
	Echo   transport.OneShot
	Clock  clock.Clock
}

// Status is a dashboard snapshot of the walker.
type Status struct {
	State      string        `json:"state"`
	QueueLen   int           `json:"queue_len"`
	Connected  bool          `json:"connected"`
	FramesSent uint64        `json:"frames_sent"`
	Current    packet.Packet `json:"current"`
}

// Walker drives one robot connection. Exactly one sequencer and one
// streaming loop exist per Walker.
type Walker struct {
	addr     string
	seq      *sequencer.Sequencer
	streamer *sequencer.Streamer
	stream   transport.Stream

	// lifeMu serializes the start/complete/disconnect transitions so a
	// completion pended before a new enqueue cannot interleave with the
	// new sequence's startup.
	lifeMu sync.Mutex

	mu        sync.Mutex
	connected bool
	notify    func(Status)
}

// New creates a disconnected walker.
func New(cfg Config) *Walker {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	stream := cfg.Stream
	if stream == nil {
		stream = transport.NewWSStream()
	}

	echo := cfg.Echo
	if echo == nil && cfg.EchoURL != "" {
		echo = transport.NewHTTPEcho(cfg.EchoURL)
	}

	tr := motion.NewTranslator(cfg.Calibration)
	seq := sequencer.New(tr, echo, sequencer.WithClock(clk))

	w := &Walker{
		addr:     cfg.StreamAddr,
		seq:      seq,
		stream:   stream,
		streamer: sequencer.NewStreamer(seq, stream, sequencer.WithStreamerClock(clk)),
	}
	seq.SetHooks(w.sequenceStarted, w.sequenceComplete)
	return w
}

// MoveForward walks d meters ahead. Non-positive distances are rejected
// with a warning and never enqueued.
func (w *Walker) MoveForward(meters float64) error {
	if meters <= 0 {
		log.Warn("rejecting move forward", "meters", meters)
		return fmt.Errorf("move forward: distance %.3fm is not positive", meters)
	}
	w.enqueue(motion.New(motion.KindMoveForward, meters))
	return nil
}

// MoveBack walks d meters backwards. Non-positive distances are rejected.
func (w *Walker) MoveBack(meters float64) error {
	if meters <= 0 {
		log.Warn("rejecting move back", "meters", meters)
		return fmt.Errorf("move back: distance %.3fm is not positive", meters)
	}
	w.enqueue(motion.New(motion.KindMoveBack, meters))
	return nil
}

// TurnLeft rotates in place by the given degrees.
func (w *Walker) TurnLeft(degrees float64) {
	w.enqueue(motion.New(motion.KindTurnLeft, degrees))
}

// TurnRight rotates in place by the given degrees.
func (w *Walker) TurnRight(degrees float64) {
	w.enqueue(motion.New(motion.KindTurnRight, degrees))
}

// TiltForward leans ahead for the given seconds.
func (w *Walker) TiltForward(seconds float64) {
	w.enqueue(motion.New(motion.KindTiltForward, seconds))
}

// TiltBack leans back for the given seconds.
func (w *Walker) TiltBack(seconds float64) {
	w.enqueue(motion.New(motion.KindTiltBack, seconds))
}

// TiltLeft leans left for the given seconds.
func (w *Walker) TiltLeft(seconds float64) {
	w.enqueue(motion.New(motion.KindTiltLeft, seconds))
}

// TiltRight leans right for the given seconds.
func (w *Walker) TiltRight(seconds float64) {
	w.enqueue(motion.New(motion.KindTiltRight, seconds))
}

// Rest holds the neutral stance for the given seconds. Rest(0) installs
// the neutral frame and completes immediately.
func (w *Walker) Rest(seconds float64) {
	w.enqueue(motion.New(motion.KindRest, seconds))
}

// SendCustom streams a caller-built frame for its own cycle count.
func (w *Walker) SendCustom(p packet.Packet) {
	w.enqueue(motion.NewCustom(p))
}

// Disconnect tears the connection down safely: cancel the duration timer
// and clear the queue, stop the stream tick, push one final neutral frame,
// then close the channel. The robot never keeps executing a stale frame.
func (w *Walker) Disconnect() {
	w.lifeMu.Lock()
	w.seq.Reset()
	w.streamer.Stop()

	if err := w.stream.Send(packet.Neutral().Bytes()); err != nil {
		log.Warn("final neutral frame not delivered", "err", err)
	}
	if err := w.stream.Close(); err != nil {
		log.Warn("control channel close failed", "err", err)
	}

	w.mu.Lock()
	w.connected = false
	notify := w.notify
	w.mu.Unlock()
	w.lifeMu.Unlock()

	log.Info("walker disconnected")
	w.emit(notify)
}

// Status returns a snapshot for callers and the dashboard.
func (w *Walker) Status() Status {
	w.mu.Lock()
	connected := w.connected
	w.mu.Unlock()

	return Status{
		State:      w.seq.State().String(),
		QueueLen:   w.seq.QueueLen(),
		Connected:  connected,
		FramesSent: w.streamer.SentCount(),
		Current:    w.seq.Current(),
	}
}

// SetNotify installs a status observer invoked after enqueues, sequence
// completion and disconnects.
func (w *Walker) SetNotify(fn func(Status)) {
	w.mu.Lock()
	w.notify = fn
	w.mu.Unlock()
}

// SetFrameTap installs an observer for every frame put on the wire.
func (w *Walker) SetFrameTap(fn func(frame []byte)) {
	w.streamer.SetTap(fn)
}

func (w *Walker) enqueue(cmd motion.Command) {
	w.seq.Enqueue(cmd)

	w.mu.Lock()
	notify := w.notify
	w.mu.Unlock()
	w.emit(notify)
}

// sequenceStarted runs when the sequencer leaves idle: make sure the
// persistent channel is open and the streaming loop is ticking. A failed
// dial leaves the walker idle and inert until the caller retries.
func (w *Walker) sequenceStarted() {
	w.lifeMu.Lock()
	defer w.lifeMu.Unlock()

	w.mu.Lock()
	connected := w.connected
	w.mu.Unlock()

	if !connected {
		if err := w.stream.Open(w.addr); err != nil {
			log.Error("robot unreachable, dropping sequence", "addr", w.addr, "err", err)
			w.seq.Reset()
			return
		}
		w.mu.Lock()
		w.connected = true
		w.mu.Unlock()
	}

	w.streamer.Start()
}

// sequenceComplete runs when the queue drains: stop the periodic stream
// and tear the persistent channel down. The hook is pended outside the
// sequencer lock, so a command enqueued into the completion window may
// already have advanced the sequencer by the time it runs; such a stale
// completion must leave the live sequence alone.
func (w *Walker) sequenceComplete() {
	w.lifeMu.Lock()

	if w.seq.State() == sequencer.Running {
		w.lifeMu.Unlock()
		log.Debug("stale sequence completion ignored")
		return
	}

	w.streamer.Stop()

	w.mu.Lock()
	connected := w.connected
	w.connected = false
	notify := w.notify
	w.mu.Unlock()

	if connected {
		// One last resting frame so the robot settles even if the final
		// stream tick raced the stop.
		if err := w.stream.Send(packet.Neutral().Bytes()); err != nil {
			log.Warn("final neutral frame not delivered", "err", err)
		}
		if err := w.stream.Close(); err != nil {
			log.Warn("control channel close failed", "err", err)
		}
	}
	w.lifeMu.Unlock()
	w.emit(notify)
}

func (w *Walker) emit(notify func(Status)) {
	if notify != nil {
		notify(w.Status())
	}
}
