package robot

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seer-project/seerd/internal/config"
	"github.com/seer-project/seerd/internal/events"
	"github.com/seer-project/seerd/internal/protocol"
	"github.com/seer-project/seerd/internal/util"
)

// navigationScript is the on-robot script driving point navigation.
const navigationScript = "syspy/goPath.py"

// Controller is the high-level driver facade. It owns one persistent
// connection to the robot's status port, shared by direct position
// queries and the background monitor, and dials short-lived
// per-command connections for navigation, motion, and rotation, which
// the robot serves on separate ports.
type Controller struct {
	cfg      config.RobotData
	notifier *events.Notifier
	logger   zerolog.Logger

	// mu serializes use of the persistent status connection and
	// guards the connection state.
	mu     sync.Mutex
	client *Client
	state  ConnState

	monitor *Monitor

	statsMu sync.Mutex
	stats   Stats
}

// NewController creates a controller for the configured robot. Stats
// counters start at zero and are never reset for the controller's
// lifetime.
func NewController(cfg config.RobotData, notifier *events.Notifier) *Controller {
	c := &Controller{
		cfg:      cfg,
		notifier: notifier,
		logger:   util.ComponentLogger("controller"),
		state:    StateDisconnected,
		stats:    Stats{StartTime: time.Now()},
	}
	c.monitor = NewMonitor(c.samplePosition, cfg.MonitorInterval(), cfg.HistorySize, notifier)
	return c
}

// State returns the current connection state.
func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the persistent status connection. Connecting
// while already connected is a no-op.
func (c *Controller) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.client.Broken() {
		c.logger.Debug().Msg("already connected")
		return nil
	}
	return c.connectLocked()
}

// connectLocked dials the status port. Caller holds mu.
func (c *Controller) connectLocked() error {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}

	c.setStateLocked(StateConnecting)
	c.bumpStats(func(s *Stats) { s.ConnectionAttempts++ })

	client, err := dialClient(c.cfg.IP, c.cfg.StatusPort, c.cfg.ConnectTimeout())
	if err != nil {
		c.setStateLocked(StateDisconnected)
		c.logger.Error().Err(err).
			Str("host", c.cfg.IP).
			Int("port", c.cfg.StatusPort).
			Msg("connection failed")
		return err
	}

	c.client = client
	c.setStateLocked(StateConnected)
	c.logger.Info().
		Str("host", c.cfg.IP).
		Int("port", c.cfg.StatusPort).
		Msg("connected to robot")
	return nil
}

// Disconnect stops monitoring and closes the persistent connection.
// Disconnecting while already disconnected is a no-op.
func (c *Controller) Disconnect() {
	c.monitor.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return
	}
	c.client.Close()
	c.client = nil
	c.setStateLocked(StateDisconnected)
	c.logger.Info().Msg("disconnected from robot")
}

// setStateLocked records a state transition and publishes it. Caller
// holds mu.
func (c *Controller) setStateLocked(state ConnState) {
	if c.state == state {
		return
	}
	c.state = state
	if c.notifier != nil {
		c.notifier.Publish(events.Event{
			Type:   events.EventConnectionState,
			Source: "controller",
			Payload: events.StateChangePayload{
				State: state.String(),
				Addr:  fmt.Sprintf("%s:%d", c.cfg.IP, c.cfg.StatusPort),
			},
		})
	}
}

// QueryPosition performs one synchronous position query on the
// persistent connection, reconnecting first if needed.
func (c *Controller) QueryPosition() (PositionSample, error) {
	return c.samplePosition()
}

// samplePosition is the shared poll path for QueryPosition and the
// monitor. On a dead connection it attempts exactly one reconnect
// before giving up, so a down robot costs one dial per call rather
// than a retry storm.
func (c *Controller) samplePosition() (PositionSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil || c.client.Broken() {
		if err := c.connectLocked(); err != nil {
			c.bumpStats(func(s *Stats) { s.Queries++; s.Failed++ })
			return PositionSample{}, err
		}
	}

	c.bumpStats(func(s *Stats) { s.Queries++ })

	body, err := c.client.Call(protocol.TypePositionReq, nil, c.cfg.ResponseTimeout())
	if err != nil {
		c.bumpStats(func(s *Stats) { s.Failed++ })
		if c.client.Broken() {
			c.setStateLocked(StateDisconnected)
		}
		return PositionSample{}, err
	}

	if code, msg := protocol.RetCode(body); code != 0 {
		// The robot reported a failure; the connection itself is
		// still healthy.
		c.bumpStats(func(s *Stats) { s.Failed++ })
		return PositionSample{}, &protocol.ProtocolError{RetCode: code, ErrMsg: msg}
	}

	sample := sampleFromBody(body, time.Now())
	c.bumpStats(func(s *Stats) { s.Successful++; s.LastUpdate = sample.Timestamp })
	return sample, nil
}

// StartMonitoring launches periodic position polling.
func (c *Controller) StartMonitoring() {
	c.monitor.Start()
}

// StopMonitoring halts periodic position polling.
func (c *Controller) StopMonitoring() {
	c.monitor.Stop()
}

// Monitoring reports whether the background monitor is running.
func (c *Controller) Monitoring() bool {
	return c.monitor.Running()
}

// CurrentPosition returns the most recent cached sample, if any.
func (c *Controller) CurrentPosition() (PositionSample, bool) {
	return c.monitor.Current()
}

// History returns up to count recorded samples, oldest first.
func (c *Controller) History(count int) []HistoryEntry {
	return c.monitor.History(count)
}

// Stats returns a copy of the controller counters.
func (c *Controller) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *Controller) bumpStats(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

// Navigate sends the robot to a target point. coordinate selects the
// reference frame, "world" or "robot".
func (c *Controller) Navigate(x, y float64, coordinate string) (CommandResult, error) {
	if coordinate != "world" && coordinate != "robot" {
		return CommandResult{}, fmt.Errorf("invalid coordinate frame %q (want world or robot)", coordinate)
	}
	payload := map[string]any{
		"script_name": navigationScript,
		"script_args": map[string]any{
			"x":          x,
			"y":          y,
			"coordinate": coordinate,
		},
		"operation": "Script",
		"id":        "SELF_POSITION",
		"source_id": "SELF_POSITION",
		"task_id":   "12344321",
	}
	return c.oneShot(c.cfg.NavigationPort, protocol.TypeNavigationReq, payload)
}

// Motion sends one open-loop velocity command.
func (c *Controller) Motion(params MotionParams) (CommandResult, error) {
	return c.oneShot(c.cfg.MotionPort, protocol.TypeMotionReq, params.payload())
}

// Rotate turns the robot in place by angle radians at angular speed vw.
// The sign of angle selects the direction; the wire payload carries the
// magnitude plus a mode flag.
func (c *Controller) Rotate(angle, vw float64) (CommandResult, error) {
	mode := 0
	if angle < 0 {
		mode = 1
	}
	payload := map[string]any{
		"angle": math.Abs(angle),
		"vw":    vw,
		"mode":  mode,
	}
	return c.oneShot(c.cfg.RotationPort, protocol.TypeRotationReq, payload)
}

// oneShot dials the given command port, runs a single exchange, and
// closes the connection. Command families live on dedicated ports, so
// these never touch the persistent status connection.
func (c *Controller) oneShot(port int, msgType protocol.MessageType, payload any) (CommandResult, error) {
	client, err := dialClient(c.cfg.IP, port, c.cfg.ConnectTimeout())
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	body, err := client.Call(msgType, payload, c.cfg.ResponseTimeout())
	if err != nil {
		return CommandResult{}, err
	}

	code, msg := protocol.RetCode(body)
	result := CommandResult{
		OK:      code == 0,
		RetCode: code,
		ErrMsg:  msg,
		Body:    body,
	}
	if !result.OK {
		c.logger.Warn().
			Str("type", msgType.String()).
			Int("ret_code", code).
			Str("err_msg", msg).
			Msg("robot rejected command")
	}
	return result, nil
}
