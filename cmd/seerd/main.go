// seerd - SEER robot driver daemon.
//
// seerd maintains a persistent connection to a SEER industrial robot,
// polls its position in the background, exposes a REST API for remote
// control, publishes real-time telemetry via MQTT, and provides an
// interactive CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seer-project/seerd/internal/api"
	"github.com/seer-project/seerd/internal/cli"
	"github.com/seer-project/seerd/internal/config"
	"github.com/seer-project/seerd/internal/events"
	"github.com/seer-project/seerd/internal/robot"
	"github.com/seer-project/seerd/internal/telemetry"
	"github.com/seer-project/seerd/internal/util"
)

const (
	AppName    = "seerd"
	AppVersion = "1.0.0"
	Banner     = `
                          _
  ___  ___  ___ _ __ __| |
 / __|/ _ \/ _ \ '__/ _' |
 \__ \  __/  __/ | | (_| |
 |___/\___|\___|_|  \__,_|  v%s
 SEER Robot Driver & API
`
)

func main() {
	configDir := flag.String("config", config.DefaultConfigDir, "configuration directory")
	robotIP := flag.String("robot", "", "robot IP address (overrides config)")
	noCLI := flag.Bool("no-cli", false, "disable the interactive CLI")
	flag.Parse()

	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting seerd")

	// Load configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *robotIP != "" {
		robotCfg := cfg.GetRobot()
		robotCfg.IP = *robotIP
		cfg.SetRobot(robotCfg)
		log.Info().Str("robot_ip", *robotIP).Msg("robot IP overridden from command line")
	}

	// Re-initialize logger with config-based settings
	appCfg := cfg.GetApplication()
	logCfg := util.LogConfig{
		Level:      appCfg.Logging.Level,
		Directory:  appCfg.Logging.Directory,
		MaxBackups: appCfg.Logging.MaxBackups,
		Console:    true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	// Log system info
	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	robotCfg := cfg.GetRobot()
	log.Info().
		Str("robot", robotCfg.IP).
		Int("status_port", robotCfg.StatusPort).
		Int("motion_port", robotCfg.MotionPort).
		Int("rotation_port", robotCfg.RotationPort).
		Msg("robot endpoint")

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize core components
	notifier := events.NewNotifier()
	controller := robot.NewController(robotCfg, notifier)

	// Initialize REST API
	var apiServer *api.Server
	if appCfg.API.Enabled {
		apiServer = api.NewServer(cfg, notifier, controller)
	}

	// Initialize MQTT telemetry
	var mqttHandler *telemetry.MQTTHandler
	if appCfg.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, notifier)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	// Initialize CLI
	cliHandler := cli.NewCLI(cfg, notifier, controller)

	var wg sync.WaitGroup

	// Task 1: connect to the robot and start monitoring. Non-fatal: the
	// monitor keeps retrying once per interval while the robot is down.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.Connect(); err != nil {
			log.Warn().Err(err).Msg("initial robot connection failed (non-fatal, will retry while monitoring)")
		}
		controller.StartMonitoring()
	}()

	// Task 2: REST API server
	if apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Int("port", appCfg.API.Port).Msg("starting REST API server")
			if err := apiServer.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("API server failed (non-fatal)")
			}
		}()
	}

	// Task 3: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 4: interactive CLI
	if !*noCLI {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting interactive CLI")
			cliHandler.Start(ctx)
		}()
	}

	// ---------------------------------------------------------------
	// Graceful shutdown handling
	// ---------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shutdownCh := make(chan struct{}, 1)
	notifier.Subscribe(events.EventShutdown, "main", func(events.Event) {
		select {
		case shutdownCh <- struct{}{}:
		default:
		}
	})

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested")
	}

	log.Info().Msg("initiating graceful shutdown...")

	// Cancel the root context to signal all goroutines
	cancel()

	// Stop monitoring and close the robot connection
	controller.Disconnect()

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("shutdown timed out after 15 seconds, forcing exit")
	}

	log.Info().Msg("seerd stopped")
}
