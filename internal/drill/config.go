package drill

import (
	"time"

	"github.com/okian/pitchside/internal/domain/game"
)

// Config holds configuration for a drill run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Ticks        uint64        // Sequence advance required while the match runs
	PollInterval time.Duration // Delay between snapshot polls
	Burst        int           // Commands posted concurrently in the burst step
	Workers      int           // Number of concurrent workers for the burst
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Log file for drill output
	Verbose      bool          // Enable verbose logging
}

// frame is the subset of a published frame the drill reads.
type frame struct {
	Snapshot struct {
		Seq uint64 `json:"seq"`
	} `json:"snapshot"`
	Referee struct {
		Command game.Command `json:"command"`
		Stage   game.Stage   `json:"stage"`
	} `json:"referee"`
}

type commandBody struct {
	Command string `json:"command"`
}

type appliedResponse struct {
	Status string `json:"status"`
	Value  string `json:"value"`
}

// Stats holds drill statistics.
type Stats struct {
	StartSeq       uint64
	EndSeq         uint64
	Polls          int
	BurstApplied   int
	BurstRejected  int
	BurstFailed    int
	FinalCommand   game.Command
	ServiceTicks   float64
	ServiceOverrun float64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
