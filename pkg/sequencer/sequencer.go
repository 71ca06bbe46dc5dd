// Package sequencer drains queued motion commands one at a time, keeping
// exactly one control frame "current" for the streaming loop to ship.
//
// The sequencer is the only writer of the current frame; the streaming
// loop reads it on every tick. Both sides go through one mutex, so a frame
// installed here is visible to the very next tick.
package sequencer

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/strideworks/go-strider/internal/log"
	"github.com/strideworks/go-strider/pkg/motion"
	"github.com/strideworks/go-strider/pkg/packet"
	"github.com/strideworks/go-strider/pkg/transport"
)

// State of the command state machine.
type State int

const (
	// Idle: no command executing, the neutral frame is current.
	Idle State = iota
	// Running: a command's frame is current and its timer is live.
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// timerSlack is added to every host-side duration timer so the robot's own
// cycle-count timeout always expires before the host advances.
const timerSlack = 100 * time.Millisecond

// Sequencer owns the pending-command queue and the current frame.
// Commands enqueue without blocking; all progression is timer driven.
type Sequencer struct {
	tr   *motion.Translator
	echo transport.OneShot
	clk  clock.Clock

	mu      sync.Mutex
	state   State
	queue   []motion.Command
	current packet.Packet
	timer   *clock.Timer
	gen     uint64 // invalidates stale timer callbacks

	onStart    func()
	onComplete func()
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock substitutes the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Sequencer) { s.clk = c }
}

// New creates an idle sequencer with the neutral frame installed.
// echo may be nil when no one-shot collaborator exists.
func New(tr *motion.Translator, echo transport.OneShot, opts ...Option) *Sequencer {
	s := &Sequencer{
		tr:      tr,
		echo:    echo,
		clk:     clock.New(),
		current: packet.Neutral(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHooks installs the start-of-sequence and sequence-complete signals.
// onStart fires when the sequencer leaves idle; onComplete fires when the
// queue drains and the neutral frame is reinstalled. Hooks run outside the
// sequencer lock and may call back into it.
func (s *Sequencer) SetHooks(onStart, onComplete func()) {
	s.mu.Lock()
	s.onStart = onStart
	s.onComplete = onComplete
	s.mu.Unlock()
}

// Enqueue appends cmd and returns immediately. If the sequencer is idle it
// advances synchronously, so the state is Running (or already back to Idle
// for an all-zero-duration queue) by the time Enqueue returns.
func (s *Sequencer) Enqueue(cmd motion.Command) {
	s.mu.Lock()
	s.queue = append(s.queue, cmd)
	var hooks []func()
	if s.state == Idle {
		hooks = s.advanceLocked()
	} else {
		log.Debug("command queued behind running sequence",
			"cmd", cmd.String(), "depth", len(s.queue))
	}
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

// Current returns the frame the streaming loop should ship right now.
func (s *Sequencer) Current() packet.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the machine state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen returns the number of commands waiting behind the current one.
func (s *Sequencer) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Reset cancels any pending duration timer, clears the queue, reinstalls
// the neutral frame and returns to idle. No hooks fire: Reset is the
// disconnect path, and the caller owns the teardown ordering.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.queue = nil
	s.current = packet.Neutral()
	s.state = Idle
	s.mu.Unlock()
}

// advanceLocked pops and installs commands until one arms a timer or the
// queue drains. Zero-duration commands complete in place, so a run of them
// is a loop here rather than timer recursion. Returns hooks to fire after
// the lock is released.
func (s *Sequencer) advanceLocked() []func() {
	var hooks []func()
	if s.state == Idle {
		s.state = Running
		if s.onStart != nil {
			hooks = append(hooks, s.onStart)
		}
	}

	for len(s.queue) > 0 {
		cmd := s.queue[0]
		s.queue = s.queue[1:]

		p, sec, err := s.tr.Translate(cmd)
		if err != nil {
			// Malformed input degrades to the safe frame, never aborts.
			log.Warn("command translation failed, resting", "cmd", cmd.String(), "err", err)
			p, sec = packet.Neutral(), 0
		}

		s.current = p
		s.echoAsync(p)
		log.Info("command installed",
			"id", cmd.ID, "cmd", cmd.String(), "seconds", sec, "cycles", p.Duration)

		if sec > 0 {
			s.armTimerLocked(sec)
			return hooks
		}
	}

	// Queue drained: back to the resting frame.
	s.state = Idle
	s.current = packet.Neutral()
	s.echoAsync(s.current)
	log.Info("sequence complete")
	if s.onComplete != nil {
		hooks = append(hooks, s.onComplete)
	}
	return hooks
}

// armTimerLocked schedules the advance for the installed command. The
// robot-side timeout is sec exactly (in cycles); the host waits sec plus
// slack so it never preempts the robot's own expiry.
func (s *Sequencer) armTimerLocked(sec float64) {
	s.gen++
	gen := s.gen
	d := time.Duration(sec*float64(time.Second)) + timerSlack
	s.timer = s.clk.AfterFunc(d, func() {
		s.timerFired(gen)
	})
}

// timerFired is the duration-timer callback: load the next command or
// return to idle.
func (s *Sequencer) timerFired(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != Running {
		// A Reset raced this callback; the frame it guarded is gone.
		s.mu.Unlock()
		return
	}
	s.timer = nil
	hooks := s.advanceLocked()
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

// echoAsync mirrors an installed frame over the one-shot collaborator.
// Best effort: failures are logged and forgotten.
func (s *Sequencer) echoAsync(p packet.Packet) {
	if s.echo == nil {
		return
	}
	frame := p.Bytes()
	go func() {
		if err := s.echo.SendOnce(frame); err != nil {
			log.Debug("frame echo failed", "err", err)
		}
	}()
}
