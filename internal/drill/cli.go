package drill

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends logs to both the console and a file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "drill_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the drill tool.
func ShowHelp() {
	os.Stdout.WriteString(`Pitchside Drill
===============

Drives a running pitchside service through a short match over HTTP and
verifies that ticks advance and operator commands are applied.

Usage:
  go run cmd/drill/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -ticks int
        Sequence advance to wait for while play runs (default 120)
  -poll duration
        Delay between snapshot polls (default 50ms)
  -burst int
        Commands posted concurrently to exercise backpressure (default 200)
  -workers int
        Number of concurrent workers for the burst (default CPU cores * 2)
  -timeout duration
        HTTP request and per-step timeout (default 10s)
  -log string
        Log file for drill output (default: drill_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Drill a local service started with PITCH_SIMULATE=true
  go run cmd/drill/main.go

  # Larger burst against a remote service
  go run cmd/drill/main.go -url http://field-pc:9080 -burst 2000 -workers 32
`)
}
