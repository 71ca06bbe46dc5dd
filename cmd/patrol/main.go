// Patrol - scripted demo route for the hexapod.
//
// Walks a one-meter square with a tilt salute at each corner, then rests.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strideworks/go-strider/internal/config"
	"github.com/strideworks/go-strider/internal/log"
	"github.com/strideworks/go-strider/pkg/motion"
	"github.com/strideworks/go-strider/pkg/walker"
)

var robotIP = config.RobotIP("192.168.4.1")

func main() {
	log.Init(os.Getenv("LOG_LEVEL"))

	fmt.Println("🦿 Strider patrol demo")
	fmt.Printf("Robot: %s\n\n", robotIP)

	w := walker.New(walker.Config{
		StreamAddr: config.StreamURL(robotIP),
		EchoURL:    config.EchoURL(robotIP),
		Calibration: motion.Calibration{
			SpeedFactor:    config.SpeedFactor(),
			RotationPeriod: config.RotationPeriod(),
		},
	})

	// Ctrl+C rests the robot before exiting.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\n👋 Patrol interrupted, resting...")
		w.Disconnect()
		os.Exit(0)
	}()

	fmt.Println("🚶 Walking the square (Ctrl+C to stop)")
	for corner := 1; corner <= 4; corner++ {
		if err := w.MoveForward(1); err != nil {
			log.Error("enqueue failed", "err", err)
			os.Exit(1)
		}
		// A failed dial drops the sequence; idle alone is not success.
		if !w.Status().Connected {
			fmt.Println("❌ Robot unreachable, patrol aborted")
			os.Exit(1)
		}
		w.TurnLeft(90)
		w.TiltForward(1)
	}
	w.Rest(2)

	// The sequencer reports idle once the whole route has played out.
	for {
		st := w.Status()
		if st.State == "idle" && st.QueueLen == 0 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if w.Status().FramesSent == 0 {
		fmt.Println("❌ No frames reached the robot, patrol aborted")
		w.Disconnect()
		os.Exit(1)
	}

	fmt.Println("✅ Patrol complete")
	w.Disconnect()
}
