// Package drill exercises a running service over HTTP: it checks health,
// starts play, waits for the tick loop to advance, floods the command
// queue and halts the match, verifying each step through /snapshot.
package drill

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/pkg/logger"
)

// Run executes the complete drill.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(config.BaseURL, config.Timeout)
	log := logger.Get().Named("drill")

	log.Info(ctx, "starting drill",
		logger.String("baseURL", config.BaseURL),
		logger.Uint64("ticks", config.Ticks),
		logger.Int("burst", config.Burst),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, log); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Wait for the first committed frame
	start, err := waitForFrame(ctx, client, config, stats, func(frame) bool { return true })
	if err != nil {
		return stats, fmt.Errorf("no frame published: %w", err)
	}
	stats.StartSeq = start.Snapshot.Seq

	// Step 3: Start play
	for _, cmd := range []game.Command{game.CommandStop, game.CommandForceStart} {
		if err := command(ctx, client, cmd); err != nil {
			return stats, err
		}
	}
	log.Info(ctx, "play started", logger.Uint64("seq", stats.StartSeq))

	// Step 4: Let the loop run
	target := stats.StartSeq + config.Ticks
	end, err := waitForFrame(ctx, client, config, stats, func(f frame) bool { return f.Snapshot.Seq >= target })
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrNoProgress, err)
	}
	stats.EndSeq = end.Snapshot.Seq
	log.Info(ctx, "tick loop advanced",
		logger.Uint64("from", stats.StartSeq),
		logger.Uint64("to", stats.EndSeq),
		logger.String("command", end.Referee.Command.String()))

	// Step 5: Flood the command queue
	burst(ctx, client, config, stats, log)

	// Step 6: Halt and verify
	if err := command(ctx, client, game.CommandHalt); err != nil {
		return stats, err
	}
	halted, err := waitForFrame(ctx, client, config, stats, func(f frame) bool { return f.Referee.Command == game.CommandHalt })
	if err != nil {
		return stats, fmt.Errorf("%w: want %s: %w", ErrWrongCommand, game.CommandHalt, err)
	}
	stats.FinalCommand = halted.Referee.Command

	// Step 7: Collect service counters
	if err := collectServiceStats(ctx, client, stats); err != nil {
		log.Warn(ctx, "failed to read service stats", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	log.Info(ctx, "drill completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, log logger.Logger) error {
	log.Info(ctx, "checking service health")

	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	// The service answers with its Prometheus exposition.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	log.Info(ctx, "service is healthy")
	return nil
}

func command(ctx context.Context, client *HTTPClient, cmd game.Command) error {
	code, err := client.postCommand(ctx, cmd.String())
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("command %s: %w: %d", cmd, ErrUnexpectedStatus, code)
	}
	return nil
}

// waitForFrame polls /snapshot until done accepts a frame or the timeout
// passes. A 503 means no tick has committed yet and is retried.
func waitForFrame(ctx context.Context, client *HTTPClient, config *Config, stats *Stats, done func(frame) bool) (frame, error) {
	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()
	for {
		var f frame
		stats.Polls++
		err := client.getJSON(ctx, "/snapshot", &f)
		if err == nil && done(f) {
			return f, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return f, fmt.Errorf("%w (last error: %w)", ctx.Err(), err)
			}
			return f, ctx.Err()
		case <-ticker.C:
		}
	}
}

// burst posts STOP from several workers at once. 429 means the command
// queue was full and counts as rejected, not failed.
func burst(ctx context.Context, client *HTTPClient, config *Config, stats *Stats, log logger.Logger) {
	if config.Burst <= 0 {
		return
	}
	workers := min(max(config.Workers, 1), config.Burst)
	log.Info(ctx, "flooding command queue", logger.Int("commands", config.Burst), logger.Int("workers", workers))

	var applied, rejected, failed int64
	jobs := make(chan struct{}, config.Burst)
	for i := 0; i < config.Burst; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if ctx.Err() != nil {
					return
				}
				code, err := client.postCommand(ctx, game.CommandStop.String())
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "burst command failed", logger.Error(err))
					}
				case code == http.StatusOK:
					atomic.AddInt64(&applied, 1)
				case code == http.StatusTooManyRequests:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}
	wg.Wait()

	stats.BurstApplied = int(applied)
	stats.BurstRejected = int(rejected)
	stats.BurstFailed = int(failed)
	log.Info(ctx, "burst completed",
		logger.Int("applied", stats.BurstApplied),
		logger.Int("rejected", stats.BurstRejected),
		logger.Int("failed", stats.BurstFailed))
}

func collectServiceStats(ctx context.Context, client *HTTPClient, stats *Stats) error {
	var body map[string]any
	if err := client.getJSON(ctx, "/stats", &body); err != nil {
		return err
	}
	loop, ok := body["scheduler"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: stats without scheduler section", ErrUnexpectedStatus)
	}
	stats.ServiceTicks, _ = loop["ticks"].(float64)
	stats.ServiceOverrun, _ = loop["overruns"].(float64)
	return nil
}

// displayFinalStats logs the final drill statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var ticksPerSecond float64
	if stats.Duration > 0 {
		ticksPerSecond = float64(stats.EndSeq-stats.StartSeq) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Uint64("startSeq", stats.StartSeq),
		logger.Uint64("endSeq", stats.EndSeq),
		logger.Int("polls", stats.Polls),
		logger.Int("burstApplied", stats.BurstApplied),
		logger.Int("burstRejected", stats.BurstRejected),
		logger.Int("burstFailed", stats.BurstFailed),
		logger.String("finalCommand", stats.FinalCommand.String()),
		logger.Float64("serviceTicks", stats.ServiceTicks),
		logger.Float64("serviceOverruns", stats.ServiceOverrun),
		logger.Duration("duration", stats.Duration),
		logger.Float64("ticksPerSecond", ticksPerSecond))
}
