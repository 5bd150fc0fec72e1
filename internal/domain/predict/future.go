package predict

import (
	"time"

	"github.com/okian/pitchside/internal/domain/game"
)

// RobotEstimate is a predicted robot state.
type RobotEstimate struct {
	ID int `json:"id"`
	Estimate
}

// Future is one strategy's view of the match Horizon after the snapshot
// with sequence BaseSeq. It is built fresh each tick and never changed.
type Future struct {
	Strategy string        `json:"strategy"`
	BaseSeq  uint64        `json:"base_seq"`
	Horizon  time.Duration `json:"horizon"`

	Ball    Estimate `json:"ball"`
	HasBall bool     `json:"has_ball"`

	Friendly []RobotEstimate `json:"friendly"`
	Enemy    []RobotEstimate `json:"enemy"`
}

// Predictor keeps the history and runs every registered strategy.
type Predictor struct {
	history    *History
	strategies []Strategy
	horizon    time.Duration
}

// Default strategy parameters.
const (
	DefaultAlpha  = 0.5
	DefaultBeta   = 0.3
	DefaultWindow = 10
)

// DefaultStrategies returns linear, double-exponential and least-squares.
func DefaultStrategies() []Strategy {
	return []Strategy{
		Linear{},
		DoubleExponential{Alpha: DefaultAlpha, Beta: DefaultBeta},
		LeastSquares{Window: DefaultWindow},
	}
}

// NewPredictor creates a predictor over a ring of historySize snapshots.
func NewPredictor(historySize int, horizon time.Duration, strategies ...Strategy) *Predictor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Predictor{
		history:    NewHistory(historySize),
		strategies: strategies,
		horizon:    horizon,
	}
}

// Observe records a committed snapshot.
func (p *Predictor) Observe(s game.Snapshot) { p.history.Push(s) }

// HistoryLen returns how many snapshots are held.
func (p *Predictor) HistoryLen() int { return p.history.Len() }

// Futures runs every strategy over the current history, keyed by strategy
// name. Strategies without enough data still yield a Future with no
// estimates.
func (p *Predictor) Futures() map[string]Future {
	series := p.history.Series()
	latest, ok := series.Latest()
	if !ok {
		return nil
	}
	out := make(map[string]Future, len(p.strategies))
	ball := series.Ball()
	for _, st := range p.strategies {
		f := Future{Strategy: st.Name(), BaseSeq: latest.Seq, Horizon: p.horizon}
		f.Ball, f.HasBall = st.Estimate(ball, p.horizon)
		f.Friendly = p.robots(st, series, latest.Perspective.Friendly(), latest.Friendly)
		f.Enemy = p.robots(st, series, latest.Perspective.Enemy(), latest.Enemy)
		out[st.Name()] = f
	}
	return out
}

func (p *Predictor) robots(st Strategy, series Series, team game.Team, current []game.Robot) []RobotEstimate {
	var out []RobotEstimate
	for _, r := range current {
		if e, ok := st.Estimate(series.Robot(team, r.ID), p.horizon); ok {
			out = append(out, RobotEstimate{ID: r.ID, Estimate: e})
		}
	}
	return out
}
