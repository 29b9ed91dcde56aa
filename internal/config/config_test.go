package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	robot := cfg.GetRobot()
	if robot.IP != DefaultRobotIP {
		t.Fatalf("robot IP %q, want %q", robot.IP, DefaultRobotIP)
	}
	if robot.StatusPort != DefaultStatusPort || robot.MotionPort != DefaultMotionPort || robot.RotationPort != DefaultRotationPort {
		t.Fatalf("unexpected port defaults: %+v", robot)
	}
	if robot.HistorySize != 100 {
		t.Fatalf("history size %d, want 100", robot.HistorySize)
	}
	if robot.MonitorInterval() != time.Second {
		t.Fatalf("monitor interval %v, want 1s", robot.MonitorInterval())
	}

	if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	partial := `{"robot": {"robot_ip": "10.0.0.7", "monitor_interval_ms": 250}}`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(partial), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	robot := cfg.GetRobot()
	if robot.IP != "10.0.0.7" {
		t.Fatalf("robot IP %q, want 10.0.0.7", robot.IP)
	}
	if robot.MonitorInterval() != 250*time.Millisecond {
		t.Fatalf("interval %v, want 250ms", robot.MonitorInterval())
	}
	// Untouched fields keep their defaults.
	if robot.StatusPort != DefaultStatusPort {
		t.Fatalf("status port %d, want default %d", robot.StatusPort, DefaultStatusPort)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	robot := cfg.GetRobot()
	robot.IP = "192.168.1.50"
	robot.ResponseTimeoutSec = 10
	cfg.SetRobot(robot)
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.GetRobot()
	if got.IP != "192.168.1.50" || got.ResponseTimeout() != 10*time.Second {
		t.Fatalf("reloaded robot config %+v", got)
	}
}
