package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seer-project/seerd/internal/protocol"
	"github.com/seer-project/seerd/internal/robot"
	"github.com/seer-project/seerd/internal/util"
)

// handlePing responds to health checks.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetSystemInfo returns information about the control station host.
func (s *Server) handleGetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, util.GetSystemInfo())
}

// handleConnect establishes the persistent robot connection.
func (s *Server) handleConnect(c *gin.Context) {
	if err := s.controller.Connect(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.controller.State()})
}

// handleDisconnect closes the robot connection.
func (s *Server) handleDisconnect(c *gin.Context) {
	s.controller.Disconnect()
	c.JSON(http.StatusOK, gin.H{"state": s.controller.State()})
}

// handleStatus reports connection state, monitoring state, and counters.
func (s *Server) handleStatus(c *gin.Context) {
	robotCfg := s.cfg.GetRobot()
	c.JSON(http.StatusOK, gin.H{
		"robot":      robotCfg.IP,
		"state":      s.controller.State(),
		"monitoring": s.controller.Monitoring(),
		"stats":      s.controller.Stats(),
	})
}

// handleStartMonitoring launches periodic position polling.
func (s *Server) handleStartMonitoring(c *gin.Context) {
	s.controller.StartMonitoring()
	c.JSON(http.StatusOK, gin.H{"monitoring": true})
}

// handleStopMonitoring halts periodic position polling.
func (s *Server) handleStopMonitoring(c *gin.Context) {
	s.controller.StopMonitoring()
	c.JSON(http.StatusOK, gin.H{"monitoring": false})
}

// handlePosition returns the cached position when monitoring, or runs a
// direct query when ?live=true.
func (s *Server) handlePosition(c *gin.Context) {
	if c.Query("live") == "true" {
		sample, err := s.controller.QueryPosition()
		if err != nil {
			writeRobotError(c, err)
			return
		}
		c.JSON(http.StatusOK, sample)
		return
	}

	sample, ok := s.controller.CurrentPosition()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no position recorded yet"})
		return
	}
	c.JSON(http.StatusOK, sample)
}

// handleHistory returns recorded samples, newest last. ?count=N limits
// the result to the most recent N entries.
func (s *Server) handleHistory(c *gin.Context) {
	count := 0
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count parameter"})
			return
		}
		count = n
	}

	history := s.controller.History(count)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(history),
		"history": history,
	})
}

type navigateRequest struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Coordinate string  `json:"coordinate"`
}

// handleNavigate sends the robot to a target point.
func (s *Server) handleNavigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Coordinate == "" {
		req.Coordinate = "world"
	}
	if req.Coordinate != "world" && req.Coordinate != "robot" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinate must be world or robot"})
		return
	}

	result, err := s.controller.Navigate(req.X, req.Y, req.Coordinate)
	if err != nil {
		writeRobotError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type motionRequest struct {
	VX        float64  `json:"vx"`
	VY        float64  `json:"vy"`
	W         float64  `json:"w"`
	Duration  *int     `json:"duration"`
	Steer     *int     `json:"steer"`
	RealSteer *float64 `json:"real_steer"`
}

// handleMotion sends one open-loop velocity command.
func (s *Server) handleMotion(c *gin.Context) {
	var req motionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.controller.Motion(robot.MotionParams{
		VX:        req.VX,
		VY:        req.VY,
		W:         req.W,
		Duration:  req.Duration,
		Steer:     req.Steer,
		RealSteer: req.RealSteer,
	})
	if err != nil {
		writeRobotError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rotateRequest struct {
	Angle float64 `json:"angle"`
	VW    float64 `json:"vw"`
}

// handleRotate turns the robot in place.
func (s *Server) handleRotate(c *gin.Context) {
	var req rotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VW <= 0 {
		req.VW = 0.2
	}

	result, err := s.controller.Rotate(req.Angle, req.VW)
	if err != nil {
		writeRobotError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleGetCPUUsage returns current CPU usage.
func (s *Server) handleGetCPUUsage(c *gin.Context) {
	usage, err := util.GetCPUUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get CPU usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cpu_usage_percent": usage})
}

// handleGetMemoryUsage returns current memory usage.
func (s *Server) handleGetMemoryUsage(c *gin.Context) {
	usage, err := util.GetMemoryUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get memory usage"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// writeRobotError maps driver errors to HTTP responses. A robot-reported
// failure keeps the connection and surfaces as 422; transport-level
// failures surface as 502.
func writeRobotError(c *gin.Context, err error) {
	var perr *protocol.ProtocolError
	if errors.As(err, &perr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    perr.ErrMsg,
			"ret_code": perr.RetCode,
		})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
