// Package packet defines the fixed 22-byte control frame streamed to the
// walker at 10Hz. A Packet is a value: build it once, serialize it as often
// as needed, replace it rather than mutating it.
package packet

import (
	"fmt"

	"github.com/strideworks/go-strider/internal/log"
)

// Size is the serialized frame length in bytes.
const Size = 22

// Magic header, first three bytes of every frame.
var magic = [3]byte{'P', 'K', 'T'}

// AuxLen is the required auxiliary array length: height, gait, then seven
// user-defined bytes.
const AuxLen = 9

// DefaultAux is the auxiliary array of the neutral frame: mid stance height,
// default gait, user bytes zeroed.
var DefaultAux = [AuxLen]uint8{50, 0, 0, 0, 0, 0, 0, 0, 0}

// Field ranges. The builder does not enforce these for numeric fields
// (robot firmware tolerates out-of-range values); they document the wire
// contract and back the strict builder.
const (
	MaxPower    = 100
	MaxAngle    = 180
	MaxRotation = 100
	MaxAcc      = 40
	MaxDuration = 65535
)

// Packet is one control frame. Duration is in 20ms robot-side cycles;
// zero means "rest when the robot's internal timeout expires", not
// "execute for zero time".
type Packet struct {
	Power      uint8 // forward drive, 0-100
	Angle      int16 // heading in degrees, -180..180, halved on the wire
	Rotation   int8  // turn rate, -100..100
	StaticTilt uint8 // 0 or 1, never set together with MovingTilt
	MovingTilt uint8 // 0 or 1
	OnOff      uint8 // 0 or 1
	AccX       int8  // tenths of m/s^2, meaningful only while tilting
	AccY       int8  // tenths of m/s^2
	Aux        [AuxLen]uint8
	Duration   uint16 // 20ms cycles
}

// Fields is the permissive input to Build. Numeric values pass through
// unchecked; only the aux array length is guarded.
type Fields struct {
	Power      int
	Angle      int
	Rotation   int
	StaticTilt int
	MovingTilt int
	OnOff      int
	AccX       int
	AccY       int
	Aux        []uint8
	Duration   int
}

// Neutral returns the resting frame: stand still, powered on.
func Neutral() Packet {
	return Packet{OnOff: 1, Aux: DefaultAux}
}

// Build constructs a Packet from f. Numeric fields are passed through
// as-is; an aux array of the wrong length is replaced wholesale by
// DefaultAux with a warning. Both tilt flags set resolves to static tilt.
func Build(f Fields) Packet {
	p := Packet{
		Power:      uint8(f.Power),
		Angle:      int16(f.Angle),
		Rotation:   int8(f.Rotation),
		StaticTilt: uint8(f.StaticTilt),
		MovingTilt: uint8(f.MovingTilt),
		OnOff:      uint8(f.OnOff),
		AccX:       int8(f.AccX),
		AccY:       int8(f.AccY),
		Aux:        DefaultAux,
		Duration:   uint16(f.Duration),
	}

	if f.Aux != nil {
		if len(f.Aux) == AuxLen {
			copy(p.Aux[:], f.Aux)
		} else {
			log.Warn("aux array has wrong length, using default",
				"got", len(f.Aux), "want", AuxLen)
		}
	}

	if p.StaticTilt != 0 && p.MovingTilt != 0 {
		p.MovingTilt = 0
	}

	return p
}

// BuildStrict is the validating variant of Build: it returns an error for
// any out-of-range numeric field instead of passing it through.
func BuildStrict(f Fields) (Packet, error) {
	checks := []struct {
		name     string
		v        int
		min, max int
	}{
		{"power", f.Power, 0, MaxPower},
		{"angle", f.Angle, -MaxAngle, MaxAngle},
		{"rotation", f.Rotation, -MaxRotation, MaxRotation},
		{"staticTilt", f.StaticTilt, 0, 1},
		{"movingTilt", f.MovingTilt, 0, 1},
		{"onOff", f.OnOff, 0, 1},
		{"accX", f.AccX, -MaxAcc, MaxAcc},
		{"accY", f.AccY, -MaxAcc, MaxAcc},
		{"duration", f.Duration, 0, MaxDuration},
	}
	for _, c := range checks {
		if c.v < c.min || c.v > c.max {
			return Packet{}, fmt.Errorf("packet field %s out of range: %d not in [%d,%d]",
				c.name, c.v, c.min, c.max)
		}
	}
	if f.StaticTilt != 0 && f.MovingTilt != 0 {
		return Packet{}, fmt.Errorf("packet cannot set both tilt flags")
	}
	if f.Aux != nil && len(f.Aux) != AuxLen {
		return Packet{}, fmt.Errorf("aux array length %d, want %d", len(f.Aux), AuxLen)
	}
	return Build(f), nil
}

// Serialize encodes the frame for the wire. The angle is halved to fit a
// signed byte; duration is big-endian.
func (p Packet) Serialize() [Size]byte {
	var b [Size]byte
	copy(b[:3], magic[:])
	b[3] = p.Power
	b[4] = byte(int8(p.Angle / 2))
	b[5] = byte(p.Rotation)
	b[6] = p.StaticTilt
	b[7] = p.MovingTilt
	b[8] = p.OnOff
	b[9] = byte(p.AccX)
	b[10] = byte(p.AccY)
	copy(b[11:20], p.Aux[:])
	b[20] = byte(p.Duration >> 8)
	b[21] = byte(p.Duration & 0xff)
	return b
}

// Bytes returns the serialized frame as a slice.
func (p Packet) Bytes() []byte {
	b := p.Serialize()
	return b[:]
}

// Decode parses a serialized frame. The angle comes back doubled from its
// halved wire form, so it round-trips to the nearest even degree.
func Decode(b []byte) (Packet, error) {
	if len(b) != Size {
		return Packet{}, fmt.Errorf("packet: %d bytes, want %d", len(b), Size)
	}
	if b[0] != magic[0] || b[1] != magic[1] || b[2] != magic[2] {
		return Packet{}, fmt.Errorf("packet: bad magic %q", b[:3])
	}

	p := Packet{
		Power:      b[3],
		Angle:      int16(int8(b[4])) * 2,
		Rotation:   int8(b[5]),
		StaticTilt: b[6],
		MovingTilt: b[7],
		OnOff:      b[8],
		AccX:       int8(b[9]),
		AccY:       int8(b[10]),
		Duration:   uint16(b[20])<<8 | uint16(b[21]),
	}
	copy(p.Aux[:], b[11:20])
	return p, nil
}

// IsNeutral reports whether p is the resting frame.
func (p Packet) IsNeutral() bool {
	return p == Neutral()
}

// String renders the frame for logs.
func (p Packet) String() string {
	return fmt.Sprintf("packet{power:%d angle:%d rot:%d tilt:%d/%d on:%d acc:(%d,%d) dur:%d}",
		p.Power, p.Angle, p.Rotation, p.StaticTilt, p.MovingTilt, p.OnOff, p.AccX, p.AccY, p.Duration)
}
