package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/pitchside/internal/drill"
)

// Default configuration constants.
const (
	defaultTicks        = 120
	defaultPoll         = 50 * time.Millisecond
	defaultBurst        = 200
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 10 * time.Second
	defaultDrillTimeout = 2 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		ticks   = flag.Uint64("ticks", defaultTicks, "Sequence advance to wait for while play runs")
		poll    = flag.Duration("poll", defaultPoll, "Delay between snapshot polls")
		burst   = flag.Int("burst", defaultBurst, "Commands posted concurrently to exercise backpressure")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers for the burst")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request and per-step timeout")
		logFile = flag.String("log", "", "Log file for drill output (default: drill_log_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		drill.ShowHelp()
		return
	}

	if err := drill.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDrillTimeout)
	defer cancel()

	config := &drill.Config{
		BaseURL:      *baseURL,
		Ticks:        *ticks,
		PollInterval: *poll,
		Burst:        *burst,
		Workers:      *workers,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if _, err := drill.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Drill failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel is called above
	}
}
