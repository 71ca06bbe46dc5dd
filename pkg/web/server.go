// Package web provides the operator console for the walker: a small REST
// surface over the motion commands plus websocket feeds for live status
// and the raw frame trace.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/strideworks/go-strider/internal/log"
	"github.com/strideworks/go-strider/pkg/hub"
	"github.com/strideworks/go-strider/pkg/walker"
)

// Server is the operator console server.
type Server struct {
	app    *fiber.App
	port   string
	walker *walker.Walker

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	traceHub  *hub.Hub
}

// NewServer creates a console server bound to w.
func NewServer(port string, w *walker.Walker) *Server {
	s := &Server{
		port:      port,
		walker:    w,
		statusHub: hub.New("status"),
		traceHub:  hub.New("trace"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Strider Console",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/move/forward", s.handleMoveForward)
	api.Post("/move/back", s.handleMoveBack)
	api.Post("/turn/left", s.handleTurnLeft)
	api.Post("/turn/right", s.handleTurnRight)
	api.Post("/tilt/:direction", s.handleTilt)
	api.Post("/rest", s.handleRest)
	api.Post("/custom", s.handleCustom)
	api.Post("/disconnect", s.handleDisconnect)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket feeds
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/trace", websocket.New(s.handleTraceWS))

	// Push walker lifecycle and wire traffic to the feeds
	w.SetNotify(func(st walker.Status) {
		s.statusHub.BroadcastJSON(st)
	})
	w.SetFrameTap(func(frame []byte) {
		s.traceHub.BroadcastBinary(frame)
	})

	s.app = app
	return s
}

// Start starts the console server. Blocks.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.traceHub.Run()

	log.Info("operator console listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the console server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("console server stopped", "err", err)
		}
	}()
}

// Shutdown gracefully stops the console server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

func (s *Server) handleTraceWS(c *websocket.Conn) {
	hub.NewClient(s.traceHub, c).Run()
}
