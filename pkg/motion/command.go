// Package motion defines high-level motion intents and their translation
// into control frames plus execution durations.
package motion

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/strideworks/go-strider/pkg/packet"
)

// Kind identifies a motion intent.
type Kind string

const (
	KindMoveForward Kind = "move_forward" // arg: distance in meters
	KindMoveBack    Kind = "move_back"    // arg: distance in meters
	KindTurnLeft    Kind = "turn_left"    // arg: degrees
	KindTurnRight   Kind = "turn_right"   // arg: degrees
	KindTiltForward Kind = "tilt_forward" // arg: seconds
	KindTiltBack    Kind = "tilt_back"    // arg: seconds
	KindTiltLeft    Kind = "tilt_left"    // arg: seconds
	KindTiltRight   Kind = "tilt_right"   // arg: seconds
	KindRest        Kind = "rest"         // arg: seconds, 0 = neutral
	KindCustom      Kind = "custom"       // carries a packet verbatim
)

// Command is a single motion intent. It is created by the public walker
// surface, consumed exactly once by the sequencer, then discarded.
type Command struct {
	ID   string
	Kind Kind
	Args []float64

	// Custom is set only for KindCustom.
	Custom *packet.Packet
}

// New creates a command with a fresh correlation ID.
func New(kind Kind, args ...float64) Command {
	return Command{ID: uuid.NewString(), Kind: kind, Args: args}
}

// NewCustom creates a command that installs p verbatim.
func NewCustom(p packet.Packet) Command {
	return Command{ID: uuid.NewString(), Kind: KindCustom, Custom: &p}
}

// Arg returns the i-th argument, or 0 if absent.
func (c Command) Arg(i int) float64 {
	if i < 0 || i >= len(c.Args) {
		return 0
	}
	return c.Args[i]
}

func (c Command) String() string {
	if c.Kind == KindCustom {
		return fmt.Sprintf("%s{%s}", c.Kind, c.Custom)
	}
	return fmt.Sprintf("%s%v", c.Kind, c.Args)
}
