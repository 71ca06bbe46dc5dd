package motion

import (
	"fmt"

	"github.com/strideworks/go-strider/pkg/packet"
)

// cyclesPerSecond converts wall-clock seconds into the robot's 20ms
// execution cycles.
const cyclesPerSecond = 50

// tiltAcc is the lean strength used by the tilt commands, in tenths of m/s^2.
const tiltAcc = 30

// Calibration holds the per-robot kinematic constants.
type Calibration struct {
	// SpeedFactor is seconds of walking per meter of ground covered.
	SpeedFactor float64
	// RotationPeriod is seconds per full 360 degree turn in place.
	RotationPeriod float64
}

// Translator maps commands onto control frames. It is pure: the same
// command and calibration always yield the same frame and duration.
type Translator struct {
	cal Calibration
}

// NewTranslator creates a translator for the given calibration.
func NewTranslator(cal Calibration) *Translator {
	return &Translator{cal: cal}
}

// Translate produces the frame to stream for cmd and the wall-clock
// execution time in seconds. The frame's own Duration field carries the
// same time in whole 20ms cycles, truncated; the seconds value drives the
// host-side timer. A non-positive seconds value means the command
// completes immediately.
func (t *Translator) Translate(cmd Command) (packet.Packet, float64, error) {
	switch cmd.Kind {
	case KindMoveForward:
		sec := cmd.Arg(0) * t.cal.SpeedFactor
		return t.frame(func(p *packet.Packet) {
			p.Power = 100
		}, sec), sec, nil

	case KindMoveBack:
		sec := cmd.Arg(0) * t.cal.SpeedFactor
		return t.frame(func(p *packet.Packet) {
			p.Power = 100
			p.Angle = 180
		}, sec), sec, nil

	case KindTurnLeft:
		sec := cmd.Arg(0) / 360 * t.cal.RotationPeriod
		return t.frame(func(p *packet.Packet) {
			p.Rotation = -100
		}, sec), sec, nil

	case KindTurnRight:
		sec := cmd.Arg(0) / 360 * t.cal.RotationPeriod
		return t.frame(func(p *packet.Packet) {
			p.Rotation = 100
		}, sec), sec, nil

	case KindTiltForward:
		return t.tiltFrame(-tiltAcc, 0, cmd.Arg(0)), cmd.Arg(0), nil

	case KindTiltBack:
		return t.tiltFrame(tiltAcc, 0, cmd.Arg(0)), cmd.Arg(0), nil

	case KindTiltLeft:
		return t.tiltFrame(0, -tiltAcc, cmd.Arg(0)), cmd.Arg(0), nil

	case KindTiltRight:
		return t.tiltFrame(0, tiltAcc, cmd.Arg(0)), cmd.Arg(0), nil

	case KindRest:
		sec := cmd.Arg(0)
		if sec <= 0 {
			return packet.Neutral(), 0, nil
		}
		return t.frame(nil, sec), sec, nil

	case KindCustom:
		if cmd.Custom == nil {
			return packet.Neutral(), 0, fmt.Errorf("custom command %s carries no packet", cmd.ID)
		}
		p := *cmd.Custom
		if p.Duration == 0 {
			return p, 0, nil
		}
		return p, float64(p.Duration) / cyclesPerSecond, nil

	default:
		return packet.Neutral(), 0, fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
}

// frame builds a neutral-based frame, applies set, and stamps the cycle
// count for sec.
func (t *Translator) frame(set func(*packet.Packet), sec float64) packet.Packet {
	p := packet.Neutral()
	if set != nil {
		set(&p)
	}
	p.Duration = cycles(sec)
	return p
}

func (t *Translator) tiltFrame(accX, accY int8, sec float64) packet.Packet {
	return t.frame(func(p *packet.Packet) {
		p.StaticTilt = 1
		p.AccX = accX
		p.AccY = accY
	}, sec)
}

// cycles truncates seconds to whole 20ms cycles, saturating at the wire
// maximum.
func cycles(sec float64) uint16 {
	c := sec * cyclesPerSecond
	if c <= 0 {
		return 0
	}
	if c >= packet.MaxDuration {
		return packet.MaxDuration
	}
	return uint16(c)
}
