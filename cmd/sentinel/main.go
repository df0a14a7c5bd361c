// sentinel installs the first-responder exception interceptor and runs the
// multi-threaded logger demonstration.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sentinelmon/sentinel/internal/audit"
	"github.com/sentinelmon/sentinel/internal/config"
	"github.com/sentinelmon/sentinel/internal/logging"
	"github.com/sentinelmon/sentinel/internal/telemetry"
	"github.com/sentinelmon/sentinel/internal/veh"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// setupLogger builds the console logger, wiring in the audit sink when
// configured. Returns the logger and a cleanup function.
func setupLogger(settings *config.Settings) (*logging.Logger, func(), error) {
	var sink logging.LineSink
	cleanup := func() {}

	if settings.AuditLogPath != "" {
		auditLog, err := audit.Open(settings.AuditLogPath, settings.AuditFilter)
		if err != nil {
			return nil, nil, err
		}
		sink = auditLog
		cleanup = func() {
			if err := auditLog.Close(); err != nil {
				log.Printf("Error closing audit log: %v", err)
			}
		}
	}

	logger := logging.New(logging.Options{
		ColorMode: settings.ColorMode,
		Sink:      sink,
	})
	return logger, cleanup, nil
}

// setupTelemetry initializes the OTLP provider and returns a shutdown
// function that emits the session span and flushes.
func setupTelemetry(started time.Time) (func(), error) {
	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return nil, err
	}

	tp, err := telemetry.InitProvider(otelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	cleanup := func() {
		telemetry.RecordSession(tp.Tracer("sentinel"), started, veh.ProcessCounters())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.ShutdownProvider(shutdownCtx, tp); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}
	return cleanup, nil
}

// runDemo exercises the logger from several goroutines at once, the same
// smoke test the original monitor shipped with.
func runDemo(logger *logging.Logger, threads, messages int) {
	logger.RecordInfo("Starting multi-threaded test...")

	var wg sync.WaitGroup
	for id := 1; id <= threads; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < messages; i++ {
				logger.RecordInfo(fmt.Sprintf("Thread %d - Message %d", id, i))
				time.Sleep(10 * time.Millisecond)
			}
		}(id)
	}
	wg.Wait()

	logger.RecordInfo("Multi-threaded test completed successfully")
}

func run() error {
	cfg, err := config.ParseArgs(os.Args)
	if err != nil {
		return err
	}

	settings, err := config.ParseSettings()
	if err != nil {
		return err
	}

	logger, cleanupLogger, err := setupLogger(settings)
	if err != nil {
		return err
	}
	defer cleanupLogger()

	if settings.Telemetry {
		cleanupTelemetry, err := setupTelemetry(time.Now())
		if err != nil {
			return err
		}
		defer cleanupTelemetry()
	}

	logger.RecordInfo("Sentinel System Monitor")

	if !cfg.NoInstall {
		// Registration failure is non-fatal: the monitor keeps running
		// without interception and the operator sees the error line.
		if !veh.Install(logger) {
			logger.RecordInfo("Continuing without exception interception")
		}
	}

	runDemo(logger, cfg.DemoThreads, cfg.DemoMessages)

	c := veh.ProcessCounters()
	logger.RecordInfo(fmt.Sprintf(
		"Interception summary: %d access violations, %d guard-page violations, %d unmatched exceptions",
		c.AccessViolations, c.GuardPageViolations, c.Unmatched))
	logger.RecordInfo("Logger demonstration complete")

	return nil
}
