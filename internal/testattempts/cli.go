package testattempts

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/speakeval/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the global logger, writing to stdout and to
// logFile. An empty logFile gets a timestamped name.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the attempt test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Speakeval Attempt Test Tool
===========================

Submits generated speaking attempts to a running speakeval service, waits
for their evaluations and checks them.

Usage:
  go run ./cmd/test-attempts [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -attempts int
        Number of attempts to generate (default 1000)
  -learners int
        Number of distinct learners (default 50)
  -workers int
        Concurrent requests (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for evaluations (default 30s)
  -duplicates float
        Fraction of attempts resubmitted to test dedupe (default 0.05)
  -seed uint
        Generator seed (default 1)
  -fixtures string
        YAML question bank (default: built-in bank)
  -output string
        Write generated attempts to this YAML file
  -log string
        Log file (default: test_log_TIMESTAMP.log)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  go run ./cmd/test-attempts -attempts 5000 -workers 16
  go run ./cmd/test-attempts -fixtures bank.yaml -output attempts.yaml
`)
}
