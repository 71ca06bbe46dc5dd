package walker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/strideworks/go-strider/pkg/motion"
	"github.com/strideworks/go-strider/pkg/packet"
)

var benchCal = motion.Calibration{SpeedFactor: 13, RotationPeriod: 13}

// fakeStream records frames and lifecycle calls in order.
type fakeStream struct {
	mu       sync.Mutex
	frames   [][]byte
	opens    int
	closes   int
	openErr  error
	sequence []string // "open", "send", "close" in call order
}

func (f *fakeStream) Open(addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	f.sequence = append(f.sequence, "open")
	return nil
}

func (f *fakeStream) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.frames = append(f.frames, cp)
	f.sequence = append(f.sequence, "send")
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.sequence = append(f.sequence, "close")
	return nil
}

func (f *fakeStream) lastFrame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

func (f *fakeStream) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sequence...)
}

func newTestWalker(stream *fakeStream) (*Walker, *clock.Mock) {
	mock := clock.NewMock()
	w := New(Config{
		StreamAddr:  "ws://robot.test/control",
		Calibration: benchCal,
		Stream:      stream,
		Clock:       mock,
	})
	return w, mock
}

func TestMoveForward_RejectsNonPositiveDistance(t *testing.T) {
	stream := &fakeStream{}
	w, _ := newTestWalker(stream)

	tests := []float64{0, -1, -0.001}
	for _, d := range tests {
		if err := w.MoveForward(d); err == nil {
			t.Errorf("MoveForward(%v): want error", d)
		}
		if err := w.MoveBack(d); err == nil {
			t.Errorf("MoveBack(%v): want error", d)
		}
	}

	st := w.Status()
	if st.State != "idle" || st.QueueLen != 0 {
		t.Errorf("rejected commands reached the sequencer: %+v", st)
	}
	if len(stream.calls()) != 0 {
		t.Errorf("rejected commands touched the transport: %v", stream.calls())
	}
}

func TestMoveForward_OpensChannelAndRuns(t *testing.T) {
	stream := &fakeStream{}
	w, _ := newTestWalker(stream)

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}

	st := w.Status()
	if st.State != "running" {
		t.Errorf("state: got %s, want running", st.State)
	}
	if !st.Connected {
		t.Error("walker should be connected after a sequence starts")
	}
	if stream.opens != 1 {
		t.Errorf("opens: got %d, want 1", stream.opens)
	}
	if st.Current.Power != 100 || st.Current.Duration != 650 {
		t.Errorf("current: got %v, want power=100 duration=650", st.Current)
	}
}

func TestSequence_RunsToCompletionAndTearsDown(t *testing.T) {
	stream := &fakeStream{}
	w, mock := newTestWalker(stream)

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}
	w.TurnLeft(90)

	// First command: 13s + slack.
	mock.Add(14 * time.Second)
	st := w.Status()
	if st.Current.Rotation != -100 || st.Current.Duration != 162 {
		t.Errorf("second frame: got %v, want rotation=-100 duration=162", st.Current)
	}

	// Second command: 3.25s + slack.
	mock.Add(4 * time.Second)
	st = w.Status()
	if st.State != "idle" {
		t.Errorf("state: got %s, want idle", st.State)
	}
	if !st.Current.IsNeutral() {
		t.Errorf("current: got %v, want neutral", st.Current)
	}
	if st.Connected {
		t.Error("walker should have torn the channel down after the sequence")
	}

	stream.mu.Lock()
	closes := stream.closes
	stream.mu.Unlock()
	if closes != 1 {
		t.Errorf("closes: got %d, want 1", closes)
	}

	neutral, err := packet.Decode(stream.lastFrame())
	if err != nil {
		t.Fatalf("decode last frame: %v", err)
	}
	if !neutral.IsNeutral() {
		t.Errorf("last frame on the wire: got %v, want neutral", neutral)
	}
}

func TestDisconnect_MidSequence(t *testing.T) {
	stream := &fakeStream{}
	w, mock := newTestWalker(stream)

	if err := w.MoveForward(2); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}
	w.TurnRight(180)
	w.Rest(5)

	w.Disconnect()

	st := w.Status()
	if st.State != "idle" {
		t.Errorf("state: got %s, want idle", st.State)
	}
	if st.QueueLen != 0 {
		t.Errorf("queue: got %d, want 0", st.QueueLen)
	}
	if st.Connected {
		t.Error("walker still connected after Disconnect")
	}

	// Last frame on the wire is the neutral default, then close.
	neutral, err := packet.Decode(stream.lastFrame())
	if err != nil {
		t.Fatalf("decode last frame: %v", err)
	}
	if !neutral.IsNeutral() {
		t.Errorf("last frame: got %v, want neutral", neutral)
	}
	calls := stream.calls()
	if len(calls) < 2 || calls[len(calls)-1] != "close" || calls[len(calls)-2] != "send" {
		t.Errorf("teardown order: got %v, want ...send,close", calls)
	}

	// The cancelled duration timer must stay dead.
	mock.Add(time.Hour)
	if w.Status().State != "idle" {
		t.Error("stale timer advanced a disconnected walker")
	}
}

func TestDialFailure_LeavesWalkerIdleAndInert(t *testing.T) {
	stream := &fakeStream{openErr: fmt.Errorf("no route to robot")}
	w, mock := newTestWalker(stream)

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}

	st := w.Status()
	if st.State != "idle" {
		t.Errorf("state: got %s, want idle after failed dial", st.State)
	}
	if st.Connected {
		t.Error("walker claims connected after failed dial")
	}

	mock.Add(time.Hour)
	if len(stream.frames) != 0 {
		t.Errorf("frames sent over a dead channel: %d", len(stream.frames))
	}

	// A later attempt with a healthy link recovers.
	stream.mu.Lock()
	stream.openErr = nil
	stream.mu.Unlock()
	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward retry: %v", err)
	}
	if got := w.Status().State; got != "running" {
		t.Errorf("state after retry: got %s, want running", got)
	}
}

func TestRestZero_NoTransportLingering(t *testing.T) {
	stream := &fakeStream{}
	w, _ := newTestWalker(stream)

	w.Rest(0)

	st := w.Status()
	if st.State != "idle" {
		t.Errorf("state: got %s, want idle", st.State)
	}
	if st.Connected {
		t.Error("rest(0) left the channel open")
	}
	if !st.Current.IsNeutral() {
		t.Errorf("current: got %v, want neutral", st.Current)
	}
}

func TestStaleCompletion_LeavesNewSequenceRunning(t *testing.T) {
	stream := &fakeStream{}
	w, mock := newTestWalker(stream)

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}
	mock.Add(14 * time.Second)
	if got := w.Status().State; got != "idle" {
		t.Fatalf("state after first sequence: got %s, want idle", got)
	}

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}

	// Replay the completion of the first sequence after the second has
	// started, the way a hook pended before the enqueue would land.
	w.sequenceComplete()

	st := w.Status()
	if st.State != "running" {
		t.Errorf("state: got %s, want running", st.State)
	}
	if !st.Connected {
		t.Error("stale completion tore the channel down")
	}
	if !w.streamer.IsRunning() {
		t.Error("stale completion stopped the streaming loop")
	}
	if stream.closes != 1 {
		t.Errorf("closes: got %d, want 1 (first teardown only)", stream.closes)
	}

	// The live sequence still finishes normally.
	mock.Add(14 * time.Second)
	st = w.Status()
	if st.State != "idle" || st.Connected {
		t.Errorf("second sequence never completed: %+v", st)
	}
	if stream.closes != 2 {
		t.Errorf("closes: got %d, want 2", stream.closes)
	}
}

func TestEnqueueFromNotify_RestartsStreaming(t *testing.T) {
	stream := &fakeStream{}
	w, mock := newTestWalker(stream)

	var once sync.Once
	w.SetNotify(func(s Status) {
		if s.State == "idle" {
			once.Do(func() { w.TurnLeft(90) })
		}
	})

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}
	mock.Add(14 * time.Second)

	// The idle notification enqueued a turn, which must have reopened
	// the channel and restarted the stream.
	st := w.Status()
	if st.State != "running" {
		t.Errorf("state: got %s, want running", st.State)
	}
	if !st.Connected {
		t.Error("walker not reconnected for the follow-up command")
	}
	if !w.streamer.IsRunning() {
		t.Error("streaming loop not running for the follow-up command")
	}
	if st.Current.Rotation != -100 || st.Current.Duration != 162 {
		t.Errorf("current: got %v, want rotation=-100 duration=162", st.Current)
	}
	if stream.opens != 2 {
		t.Errorf("opens: got %d, want 2", stream.opens)
	}

	mock.Add(4 * time.Second)
	st = w.Status()
	if st.State != "idle" || st.Connected {
		t.Errorf("follow-up sequence never completed: %+v", st)
	}
}

func TestNotify_FiresOnLifecycle(t *testing.T) {
	stream := &fakeStream{}
	w, mock := newTestWalker(stream)

	var mu sync.Mutex
	var seen []string
	w.SetNotify(func(s Status) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})

	if err := w.MoveForward(1); err != nil {
		t.Fatalf("MoveForward: %v", err)
	}
	mock.Add(14 * time.Second)
	w.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("notifications: got %d, want at least 2", len(seen))
	}
	if seen[0] != "running" {
		t.Errorf("first notification state: got %s, want running", seen[0])
	}
	if seen[len(seen)-1] != "idle" {
		t.Errorf("last notification state: got %s, want idle", seen[len(seen)-1])
	}
}
