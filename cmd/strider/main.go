// Strider control service.
//
// Connects the command sequencer to a hexapod and serves the operator
// console. Ctrl+C always ends with a neutral frame on the wire.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/strideworks/go-strider/internal/config"
	"github.com/strideworks/go-strider/internal/log"
	"github.com/strideworks/go-strider/pkg/motion"
	"github.com/strideworks/go-strider/pkg/walker"
	"github.com/strideworks/go-strider/pkg/web"
)

func main() {
	log.Init(os.Getenv("LOG_LEVEL"))

	robotIP := config.RobotIPRequired()
	cal := motion.Calibration{
		SpeedFactor:    config.SpeedFactor(),
		RotationPeriod: config.RotationPeriod(),
	}

	w := walker.New(walker.Config{
		StreamAddr:  config.StreamURL(robotIP),
		EchoURL:     config.EchoURL(robotIP),
		Calibration: cal,
	})

	port := os.Getenv("CONSOLE_PORT")
	if port == "" {
		port = "3000"
	}
	console := web.NewServer(port, w)
	console.StartAsync()

	fmt.Println("🦿 Strider control service")
	fmt.Printf("Robot:   %s\n", robotIP)
	fmt.Printf("Console: http://localhost:%s\n", port)
	fmt.Printf("Gait:    %.1fs/m, %.1fs/360°\n", cal.SpeedFactor, cal.RotationPeriod)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n👋 Shutting down, resting the robot...")
	w.Disconnect()
	if err := console.Shutdown(); err != nil {
		log.Warn("console shutdown", "err", err)
	}
}
