// Package cli implements the interactive command-line interface for the
// robot driver: connection control, one-shot commands, and live
// position display.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/seer-project/seerd/internal/config"
	"github.com/seer-project/seerd/internal/events"
	"github.com/seer-project/seerd/internal/robot"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg        *config.Config
	notifier   *events.Notifier
	controller *robot.Controller
}

// NewCLI creates a new CLI handler.
func NewCLI(cfg *config.Config, notifier *events.Notifier, controller *robot.Controller) *CLI {
	return &CLI{
		cfg:        cfg,
		notifier:   notifier,
		controller: controller,
	}
}

// Start begins the interactive CLI loop. It returns when ctx is
// cancelled or stdin closes.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nseerd CLI ready. Type 'help' for available commands.")
	fmt.Println("─────────────────────────────────────────────────────")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("seerd> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if c.execute(ctx, cmd, args) {
			return
		}
	}
}

// execute processes a single CLI command. It returns true when the
// driver should shut down.
func (c *CLI) execute(ctx context.Context, cmd string, args []string) bool {
	var err error
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus()
	case "connect":
		err = c.controller.Connect()
	case "disconnect":
		c.controller.Disconnect()
		fmt.Println("Disconnected")
	case "monitor":
		err = c.cmdMonitor(args)
	case "position", "pos", "p":
		err = c.cmdPosition(args)
	case "history", "hist":
		c.printHistory(args)
	case "goto":
		err = c.cmdGoto(args)
	case "move":
		err = c.cmdMove(args)
	case "rotate", "turn":
		err = c.cmdRotate(args)
	case "quit", "exit", "q":
		fmt.Println("Shutting down seerd...")
		c.notifier.Publish(events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
		return true
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	return false
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println("\n╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      seerd CLI Commands                      ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  status             Show connection state and counters      ║")
	fmt.Println("║  connect            Connect to the robot                    ║")
	fmt.Println("║  disconnect         Disconnect from the robot               ║")
	fmt.Println("║  monitor start|stop Control background position polling     ║")
	fmt.Println("║  position [live]    Show cached (or freshly queried) pose   ║")
	fmt.Println("║  history [n]        Show the last n recorded positions      ║")
	fmt.Println("║  goto <x> <y> [f]   Navigate to a point (frame world|robot) ║")
	fmt.Println("║  move <vx> [vy] [w] Send an open-loop velocity command      ║")
	fmt.Println("║  rotate <rad> [vw]  Turn in place by an angle in radians    ║")
	fmt.Println("║  quit               Shutdown seerd                          ║")
	fmt.Println("║  help               Show this help message                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printStatus displays driver status in a formatted table.
func (c *CLI) printStatus() {
	robotCfg := c.cfg.GetRobot()
	stats := c.controller.Stats()

	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Robot", "State", "Monitoring", "Queries", "OK", "Failed", "Dials"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	tw.Append([]string{
		fmt.Sprintf("%s:%d", robotCfg.IP, robotCfg.StatusPort),
		c.controller.State().String(),
		fmt.Sprintf("%v", c.controller.Monitoring()),
		fmt.Sprintf("%d", stats.Queries),
		fmt.Sprintf("%d", stats.Successful),
		fmt.Sprintf("%d", stats.Failed),
		fmt.Sprintf("%d", stats.ConnectionAttempts),
	})
	tw.Render()
	fmt.Println()
}

func (c *CLI) cmdMonitor(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: monitor start|stop")
	}
	switch strings.ToLower(args[0]) {
	case "start":
		c.controller.StartMonitoring()
		fmt.Println("Monitoring started")
	case "stop":
		c.controller.StopMonitoring()
		fmt.Println("Monitoring stopped")
	default:
		return fmt.Errorf("usage: monitor start|stop")
	}
	return nil
}

func (c *CLI) cmdPosition(args []string) error {
	var sample robot.PositionSample
	if len(args) > 0 && strings.EqualFold(args[0], "live") {
		var err error
		sample, err = c.controller.QueryPosition()
		if err != nil {
			return err
		}
	} else {
		var ok bool
		sample, ok = c.controller.CurrentPosition()
		if !ok {
			return fmt.Errorf("no position recorded yet; try 'position live' or 'monitor start'")
		}
	}
	printSample(sample)
	return nil
}

func printSample(s robot.PositionSample) {
	fmt.Printf("\n  X:          %.4f m\n", s.X)
	fmt.Printf("  Y:          %.4f m\n", s.Y)
	fmt.Printf("  Angle:      %.4f rad\n", s.Angle)
	fmt.Printf("  Confidence: %.2f\n", s.Confidence)
	if s.CurrentStation != "" {
		fmt.Printf("  Station:    %s\n", s.CurrentStation)
	}
	fmt.Printf("  At:         %s\n\n", s.Timestamp.Format(time.RFC3339))
}

// printHistory displays recorded samples in a formatted table.
func (c *CLI) printHistory(args []string) {
	count := 10
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			count = n
		}
	}

	history := c.controller.History(count)
	if len(history) == 0 {
		fmt.Println("No recorded positions; start monitoring first.")
		return
	}

	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Time", "X", "Y", "Angle", "Confidence", "Station"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, entry := range history {
		tw.Append([]string{
			entry.Timestamp.Format("15:04:05.000"),
			fmt.Sprintf("%.4f", entry.Sample.X),
			fmt.Sprintf("%.4f", entry.Sample.Y),
			fmt.Sprintf("%.4f", entry.Sample.Angle),
			fmt.Sprintf("%.2f", entry.Sample.Confidence),
			entry.Sample.CurrentStation,
		})
	}
	tw.Render()
	fmt.Println()
}

func (c *CLI) cmdGoto(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: goto <x> <y> [world|robot]")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid x: %s", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid y: %s", args[1])
	}
	coordinate := "world"
	if len(args) > 2 {
		coordinate = strings.ToLower(args[2])
	}

	result, err := c.controller.Navigate(x, y, coordinate)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func (c *CLI) cmdMove(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: move <vx> [vy] [w] [duration_ms]")
	}

	var params robot.MotionParams
	var err error
	params.VX, err = strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid vx: %s", args[0])
	}
	if len(args) > 1 {
		if params.VY, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("invalid vy: %s", args[1])
		}
	}
	if len(args) > 2 {
		if params.W, err = strconv.ParseFloat(args[2], 64); err != nil {
			return fmt.Errorf("invalid w: %s", args[2])
		}
	}
	if len(args) > 3 {
		dur, err := strconv.Atoi(args[3])
		if err != nil || dur < 0 {
			return fmt.Errorf("invalid duration: %s", args[3])
		}
		params.Duration = &dur
	}

	result, err := c.controller.Motion(params)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func (c *CLI) cmdRotate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: rotate <angle_rad> [vw]")
	}
	angle, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid angle: %s", args[0])
	}
	vw := 0.2
	if len(args) > 1 {
		if vw, err = strconv.ParseFloat(args[1], 64); err != nil || vw <= 0 {
			return fmt.Errorf("invalid vw: %s", args[1])
		}
	}

	result, err := c.controller.Rotate(angle, vw)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func printResult(r robot.CommandResult) {
	if r.OK {
		fmt.Println("OK")
		return
	}
	fmt.Printf("Robot rejected command: ret_code=%d %s\n", r.RetCode, r.ErrMsg)
}
