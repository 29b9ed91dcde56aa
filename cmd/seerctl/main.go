// seerctl - one-shot command-line client for SEER robots.
//
// seerctl talks the robot wire protocol directly, without the daemon:
//
//	seerctl position
//	seerctl navigate -x 2.5 -y 1.0
//	seerctl motion -vx 0.2 -duration 500
//	seerctl rotate -angle 1.57 -vw 0.3
//	seerctl monitor -n 10
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/seer-project/seerd/internal/config"
	"github.com/seer-project/seerd/internal/robot"
)

func main() {
	// One-shot tool: keep stderr quiet unless something goes wrong.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "position":
		err = cmdPosition(args)
	case "navigate":
		err = cmdNavigate(args)
	case "motion":
		err = cmdMotion(args)
	case "rotate":
		err = cmdRotate(args)
	case "monitor":
		err = cmdMonitor(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "seerctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`seerctl - SEER robot command-line client

Commands:
  position   Query the robot's current position
  navigate   Send the robot to a target point
  motion     Send one open-loop velocity command
  rotate     Turn the robot in place
  monitor    Poll and print the position periodically

Common flags (every command):
  -robot <ip>   robot IP address (default from config)
  -config <dir> configuration directory (default "config")

Run 'seerctl <command> -h' for command-specific flags.`)
}

// newController loads config, applies common flag overrides, and builds
// a controller. Each subcommand registers its flags on fs first.
func newController(fs *flag.FlagSet, args []string) (*robot.Controller, error) {
	robotIP := fs.String("robot", "", "robot IP address (overrides config)")
	configDir := fs.String("config", config.DefaultConfigDir, "configuration directory")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return nil, err
	}
	robotCfg := cfg.GetRobot()
	if *robotIP != "" {
		robotCfg.IP = *robotIP
	}
	return robot.NewController(robotCfg, nil), nil
}

func cmdPosition(args []string) error {
	fs := flag.NewFlagSet("position", flag.ExitOnError)
	c, err := newController(fs, args)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	sample, err := c.QueryPosition()
	if err != nil {
		return err
	}
	printSamples([]robot.PositionSample{sample})
	return nil
}

func cmdNavigate(args []string) error {
	fs := flag.NewFlagSet("navigate", flag.ExitOnError)
	x := fs.Float64("x", 0, "target x (meters)")
	y := fs.Float64("y", 0, "target y (meters)")
	coordinate := fs.String("frame", "world", "coordinate frame: world or robot")
	c, err := newController(fs, args)
	if err != nil {
		return err
	}

	result, err := c.Navigate(*x, *y, *coordinate)
	if err != nil {
		return err
	}
	return printResult(result)
}

func cmdMotion(args []string) error {
	fs := flag.NewFlagSet("motion", flag.ExitOnError)
	vx := fs.Float64("vx", 0, "linear velocity x (m/s)")
	vy := fs.Float64("vy", 0, "linear velocity y (m/s)")
	w := fs.Float64("w", 0, "angular velocity (rad/s)")
	duration := fs.Int("duration", 0, "duration in milliseconds (0 = unset)")
	c, err := newController(fs, args)
	if err != nil {
		return err
	}

	params := robot.MotionParams{VX: *vx, VY: *vy, W: *w}
	if *duration > 0 {
		params.Duration = duration
	}
	result, err := c.Motion(params)
	if err != nil {
		return err
	}
	return printResult(result)
}

func cmdRotate(args []string) error {
	fs := flag.NewFlagSet("rotate", flag.ExitOnError)
	angle := fs.Float64("angle", 0, "rotation angle in radians (sign selects direction)")
	vw := fs.Float64("vw", 0.2, "angular speed (rad/s)")
	c, err := newController(fs, args)
	if err != nil {
		return err
	}

	result, err := c.Rotate(*angle, *vw)
	if err != nil {
		return err
	}
	return printResult(result)
}

func cmdMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	n := fs.Int("n", 0, "number of samples to take (0 = until interrupted)")
	intervalMS := fs.Int("interval", 1000, "polling interval in milliseconds")
	c, err := newController(fs, args)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	interval := time.Duration(*intervalMS) * time.Millisecond
	for i := 0; *n == 0 || i < *n; i++ {
		started := time.Now()
		sample, err := c.QueryPosition()
		if err != nil {
			fmt.Fprintf(os.Stderr, "seerctl: %v\n", err)
		} else {
			fmt.Printf("%s  x=%.4f  y=%.4f  angle=%.4f  confidence=%.2f\n",
				sample.Timestamp.Format("15:04:05.000"),
				sample.X, sample.Y, sample.Angle, sample.Confidence)
		}
		if sleep := interval - time.Since(started); sleep > 0 {
			time.Sleep(sleep)
		}
	}
	return nil
}

func printSamples(samples []robot.PositionSample) {
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Time", "X", "Y", "Angle", "Confidence", "Station"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, s := range samples {
		tw.Append([]string{
			s.Timestamp.Format("15:04:05.000"),
			fmt.Sprintf("%.4f", s.X),
			fmt.Sprintf("%.4f", s.Y),
			fmt.Sprintf("%.4f", s.Angle),
			fmt.Sprintf("%.2f", s.Confidence),
			s.CurrentStation,
		})
	}
	tw.Render()
}

func printResult(r robot.CommandResult) error {
	if !r.OK {
		return fmt.Errorf("robot rejected command: ret_code=%d %s", r.RetCode, r.ErrMsg)
	}
	fmt.Println("OK")
	return nil
}
