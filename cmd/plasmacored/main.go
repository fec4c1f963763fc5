// Command plasmacored is the host process: it loads machine
// configuration, wires the move queue, planner, stepper driver, torch
// controller and sync coordinator together, drives the 1ms tick, and
// exposes the push/feedhold/run/abort command surface over a simple
// line-oriented console for whatever upstream G-code layer is attached —
// that parser itself is out of scope here, per the external interfaces
// section; this process only needs to give it something to call.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"plasmacore/config"
	"plasmacore/core"
	"plasmacore/host/serial"
	"plasmacore/motion"
	"plasmacore/sync"
	"plasmacore/torch"
)

var (
	configPath = flag.String("config", "", "path to machine config JSON (defaults built in if omitted)")
	device     = flag.String("device", "", "status-line serial device (e.g. /dev/ttyACM0); omitted disables it")
	baud       = flag.Int("baud", 115200, "status link baud rate")
	verbose    = flag.Bool("verbose", false, "enable debug trace output")
)

// Pin assignments. The out-of-scope configuration surface governs axis
// scale/accel/jerk; GPIO numbering is a deployment detail pinned here the
// way the teacher's host cmd pins its own MCU wiring constants.
const (
	pinXStep core.GPIOPin = iota
	pinXDir
	pinYStep
	pinYDir
	pinZStep
	pinZDir
	pinVoltage
	pinArcStart
	pinProbe
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if *device != "" {
		port, err := serial.Open(&serial.Config{Device: *device, Baud: *baud, ReadTimeout: 100})
		if err != nil {
			fmt.Fprintf(os.Stderr, "status link: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()
		core.SetDebugWriter(func(s string) { fmt.Fprintln(port, s) })
	} else {
		core.SetDebugWriter(func(s string) { fmt.Println(s) })
	}
	core.SetDebugEnabled(*verbose)
	core.InitAsyncDebug()
	core.TimerInit()

	gpio := core.NewMockGPIO()
	analog := core.NewMockAnalog()

	queue := motion.NewQueue(cfg.MoveStackSize)
	stepper := motion.NewStepper(gpio,
		motion.AxisDrive{StepPin: pinXStep, DirPin: pinXDir, InvertDir: cfg.X.InvertDir},
		motion.AxisDrive{StepPin: pinYStep, DirPin: pinYDir, InvertDir: cfg.Y.InvertDir},
	)
	stepper.Init()

	planner := motion.NewPlanner(motion.PlannerConfig{
		X:                motion.AxisParams{StepScale: cfg.X.StepScale, FeedJerk: cfg.X.FeedJerk, FeedAccel: cfg.X.FeedAccel},
		Y:                motion.AxisParams{StepScale: cfg.Y.StepScale, FeedJerk: cfg.Y.FeedJerk, FeedAccel: cfg.Y.FeedAccel},
		MinFeedRate:      cfg.MinFeedRate,
		FeedRampInterval: cfg.FeedRampUpdateInterval,
	}, queue, stepper)
	if !planner.Init() {
		fmt.Fprintln(os.Stderr, "planner init failed")
		os.Exit(1)
	}

	torchCtl := torch.NewController(torch.Config{
		SetVoltage:       cfg.Torch.SetVoltage,
		VoltageTolerance: cfg.Torch.VoltageTolerance,
		CompVelocity:     cfg.Torch.CompVelocity,
		Enabled:          cfg.Torch.Enabled,
		ADCAtZero:        cfg.Torch.ADCAtZero,
		ADCAtOneHundred:  cfg.Torch.ADCAtOneHundred,
		NumReadings:      cfg.Torch.NumReadings,
		Z: torch.AxisParams{
			StepScale: cfg.Torch.ZAxis.StepScale,
			InvertDir: cfg.Torch.ZAxis.InvertDir,
		},
	}, gpio, analog, pinZStep, pinZDir, pinVoltage, pinArcStart)
	torchCtl.Init()

	coordinator := sync.NewCoordinator(sync.Config{
		ZRapidFeed:         cfg.Sync.ZRapidFeed,
		ZProbeFeed:         cfg.Sync.ZProbeFeed,
		FloatingHeadTakeup: cfg.Sync.FloatingHeadTakeup,
	}, torchCtl, func() bool { return !gpio.ReadPin(pinProbe) }, planner.SyncFinished)

	planner.SetSyncHooks(coordinator.StartCut, coordinator.AbortCut)

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	go func() {
		for range tick.C {
			planner.MotionTick()
			torchCtl.MoveTick()
			torchCtl.Tick(planner.GetCurrentPosition().F / 60)
		}
	}()

	runConsole(planner, torchCtl)
}

func loadConfig(path string) (*config.MachineConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.Load(data)
}

// runConsole is the push/feedhold/run/abort command surface: a minimal
// line-oriented stand-in for the out-of-scope upstream parser, enough to
// drive and observe the core interactively.
func runConsole(p *motion.Planner, t *torch.Controller) {
	fmt.Println("plasmacore motion/torch core")
	fmt.Println("commands: push X Y F [rapid|line], feedhold, run, softabort, abort, fire, extinguish, pos, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "push":
			if len(fields) < 4 {
				fmt.Println("usage: push X Y F [rapid|line]")
				continue
			}
			x, _ := strconv.ParseFloat(fields[1], 64)
			y, _ := strconv.ParseFloat(fields[2], 64)
			f, _ := strconv.ParseFloat(fields[3], 64)
			moveType := motion.Rapid
			if len(fields) > 4 && fields[4] == "line" {
				moveType = motion.Line
			}
			if !p.PushTarget(motion.Vector3F{X: x, Y: y, F: f}, moveType) {
				fmt.Println("queue full, retry")
			}
		case "feedhold":
			p.Feedhold()
		case "run":
			p.Run()
		case "softabort":
			p.SoftAbort()
		case "abort":
			p.Abort()
		case "fire":
			t.FireTorch()
		case "extinguish":
			t.ExtinguishTorch()
		case "pos":
			pos := p.GetCurrentPosition()
			fmt.Printf("x=%.4f y=%.4f f=%.2f z=%.4f torch=%v\n", pos.X, pos.Y, pos.F, t.GetPosition(), t.GetTorchState())
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
