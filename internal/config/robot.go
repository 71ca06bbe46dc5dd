// Package config provides configuration helpers for go-strider commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default robot configuration.
const (
	DefaultStreamPort = "8266"
	DefaultEchoPort   = "8080"

	// DefaultSpeedFactor is seconds of walking per meter of ground covered.
	DefaultSpeedFactor = 13.0
	// DefaultRotationPeriod is seconds per full 360 degree turn in place.
	DefaultRotationPeriod = 13.0
)

// RobotIP returns the robot IP from ROBOT_IP env var.
// Falls back to the provided default if not set.
func RobotIP(defaultIP string) string {
	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// RobotIPRequired returns the robot IP from ROBOT_IP env var.
// Exits if not set.
func RobotIPRequired() string {
	ip := os.Getenv("ROBOT_IP")
	if ip == "" {
		fmt.Fprintln(os.Stderr, "Error: ROBOT_IP environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: ROBOT_IP=192.168.4.1 go run ./cmd/...")
		os.Exit(1)
	}
	return ip
}

// StreamURL returns the persistent control-channel websocket URL.
func StreamURL(robotIP string) string {
	return fmt.Sprintf("ws://%s:%s/control", robotIP, envOr("STRIDER_STREAM_PORT", DefaultStreamPort))
}

// EchoURL returns the one-shot HTTP echo endpoint.
func EchoURL(robotIP string) string {
	return fmt.Sprintf("http://%s:%s/packet", robotIP, envOr("STRIDER_ECHO_PORT", DefaultEchoPort))
}

// SpeedFactor returns the walking calibration from STRIDER_SPEED_FACTOR
// (seconds per meter) or the default.
func SpeedFactor() float64 {
	return envFloat("STRIDER_SPEED_FACTOR", DefaultSpeedFactor)
}

// RotationPeriod returns the turning calibration from STRIDER_ROTATION_PERIOD
// (seconds per full rotation) or the default.
func RotationPeriod() float64 {
	return envFloat("STRIDER_ROTATION_PERIOD", DefaultRotationPeriod)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s=%q, using %.1f\n", key, v, def)
		return def
	}
	return f
}
