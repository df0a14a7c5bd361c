package config

import (
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// Config holds the parsed command-line configuration for the demo binary.
type Config struct {
	// DemoThreads is the number of concurrent logging goroutines the demo
	// runs.
	DemoThreads int
	// DemoMessages is the number of info lines each demo goroutine emits.
	DemoMessages int
	// NoInstall skips exception interceptor registration (logger demo
	// only).
	NoInstall bool
}

// Settings holds environment configuration.
type Settings struct {
	// ColorMode selects console coloring: auto, always, or never.
	ColorMode string `env:"SENTINEL_COLOR" envDefault:"auto"`
	// AuditLogPath enables the forensic audit sink when non-empty.
	AuditLogPath string `env:"SENTINEL_AUDIT_LOG"`
	// AuditFilter is an optional expression over {severity, line} deciding
	// which records reach the audit file.
	AuditFilter string `env:"SENTINEL_AUDIT_FILTER"`
	// Telemetry enables the OTLP session span at shutdown.
	Telemetry bool `env:"SENTINEL_TELEMETRY" envDefault:"false"`
}

// ParseSettings reads Settings from the environment.
func ParseSettings() (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	switch s.ColorMode {
	case "auto", "always", "never":
	default:
		return nil, fmt.Errorf("SENTINEL_COLOR must be auto, always, or never; got %q", s.ColorMode)
	}
	return &s, nil
}

// ParseArgs parses command-line arguments for the demo binary.
// Expected format: sentinel [--demo-threads N] [--demo-messages N] [--no-install]
func ParseArgs(args []string) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no arguments provided")
	}

	cfg := &Config{
		DemoThreads:  3,
		DemoMessages: 3,
	}

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--demo-threads":
			n, used, err := intValue(args, i)
			if err != nil {
				return nil, err
			}
			cfg.DemoThreads = n
			i += used
		case "--demo-messages":
			n, used, err := intValue(args, i)
			if err != nil {
				return nil, err
			}
			cfg.DemoMessages = n
			i += used
		case "--no-install":
			cfg.NoInstall = true
		default:
			return nil, fmt.Errorf("Usage: %s [--demo-threads N] [--demo-messages N] [--no-install]", args[0])
		}
	}

	if cfg.DemoThreads < 1 {
		return nil, fmt.Errorf("--demo-threads must be at least 1")
	}
	if cfg.DemoMessages < 1 {
		return nil, fmt.Errorf("--demo-messages must be at least 1")
	}

	return cfg, nil
}

// intValue reads the integer value following the flag at args[i].
func intValue(args []string, i int) (val, consumed int, err error) {
	if i+1 >= len(args) {
		return 0, 0, fmt.Errorf("%s requires a value", args[i])
	}
	n, err := strconv.Atoi(args[i+1])
	if err != nil {
		return 0, 0, fmt.Errorf("%s requires an integer value: %v", args[i], err)
	}
	return n, 1, nil
}
