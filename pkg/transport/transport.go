// Package transport carries serialized control frames to the robot.
//
// Two collaborators exist: a persistent bidirectional stream for the 10Hz
// frame feed, and a one-shot channel for best-effort out-of-band echoes.
// Both are fire-and-forget: failures are logged, never retried, and never
// surfaced as sequencing errors.
package transport

// Stream is the persistent control channel.
type Stream interface {
	// Open dials the robot. A failed open leaves the stream closed.
	Open(addr string) error
	// Send transmits one serialized frame.
	Send(frame []byte) error
	// Close tears the channel down. Safe to call when not open.
	Close() error
}

// OneShot is the request/response side channel used to echo installed
// frames and push the neutral frame at sequence completion.
type OneShot interface {
	SendOnce(frame []byte) error
}
