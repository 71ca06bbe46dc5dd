package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/strideworks/go-strider/pkg/packet"
	"github.com/strideworks/go-strider/pkg/walker"
)

type distanceRequest struct {
	Meters float64 `json:"meters"`
}

type degreesRequest struct {
	Degrees float64 `json:"degrees"`
}

type secondsRequest struct {
	Seconds float64 `json:"seconds"`
}

// customRequest mirrors packet.Fields for the raw-frame endpoint.
type customRequest struct {
	Power      int     `json:"power"`
	Angle      int     `json:"angle"`
	Rotation   int     `json:"rotation"`
	StaticTilt int     `json:"static_tilt"`
	MovingTilt int     `json:"moving_tilt"`
	OnOff      int     `json:"on_off"`
	AccX       int     `json:"acc_x"`
	AccY       int     `json:"acc_y"`
	Aux        []uint8 `json:"aux,omitempty"`
	Duration   int     `json:"duration"`
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func accepted(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// statusResponse is the walker snapshot plus console viewer counts.
type statusResponse struct {
	walker.Status
	StatusClients int `json:"status_clients"`
	TraceClients  int `json:"trace_clients"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(statusResponse{
		Status:        s.walker.Status(),
		StatusClients: s.statusHub.ClientCount(),
		TraceClients:  s.traceHub.ClientCount(),
	})
}

func (s *Server) handleMoveForward(c *fiber.Ctx) error {
	var req distanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := s.walker.MoveForward(req.Meters); err != nil {
		return badRequest(c, err)
	}
	return accepted(c)
}

func (s *Server) handleMoveBack(c *fiber.Ctx) error {
	var req distanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := s.walker.MoveBack(req.Meters); err != nil {
		return badRequest(c, err)
	}
	return accepted(c)
}

func (s *Server) handleTurnLeft(c *fiber.Ctx) error {
	var req degreesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	s.walker.TurnLeft(req.Degrees)
	return accepted(c)
}

func (s *Server) handleTurnRight(c *fiber.Ctx) error {
	var req degreesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	s.walker.TurnRight(req.Degrees)
	return accepted(c)
}

func (s *Server) handleTilt(c *fiber.Ctx) error {
	var req secondsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	switch c.Params("direction") {
	case "forward":
		s.walker.TiltForward(req.Seconds)
	case "back":
		s.walker.TiltBack(req.Seconds)
	case "left":
		s.walker.TiltLeft(req.Seconds)
	case "right":
		s.walker.TiltRight(req.Seconds)
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown tilt direction: " + c.Params("direction"),
		})
	}
	return accepted(c)
}

func (s *Server) handleRest(c *fiber.Ctx) error {
	var req secondsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	s.walker.Rest(req.Seconds)
	return accepted(c)
}

func (s *Server) handleCustom(c *fiber.Ctx) error {
	var req customRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	// Same permissive semantics as the builder: numeric values pass
	// through, a wrong-length aux array falls back to the default.
	p := packet.Build(packet.Fields{
		Power:      req.Power,
		Angle:      req.Angle,
		Rotation:   req.Rotation,
		StaticTilt: req.StaticTilt,
		MovingTilt: req.MovingTilt,
		OnOff:      req.OnOff,
		AccX:       req.AccX,
		AccY:       req.AccY,
		Aux:        req.Aux,
		Duration:   req.Duration,
	})
	s.walker.SendCustom(p)
	return accepted(c)
}

func (s *Server) handleDisconnect(c *fiber.Ctx) error {
	s.walker.Disconnect()
	return accepted(c)
}
