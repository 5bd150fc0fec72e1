package drill_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitchside/internal/adapters/http/api"
	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/drill"
	"github.com/okian/pitchside/internal/scheduler"
	"github.com/okian/pitchside/pkg/logger"
)

// fakeService advances one tick per snapshot read and applies commands
// immediately. Every rejectAt-th submit of STOP finds the queue full.
type fakeService struct {
	mu       sync.Mutex
	seq      uint64
	command  game.Command
	submits  int
	rejectAt int
	ready    bool
}

func (f *fakeService) Current() (scheduler.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		f.ready = true
		return scheduler.Frame{}, false
	}
	f.seq++
	s := game.NewSnapshot(game.Perspective{MyTeamIsYellow: true})
	s.Seq = f.seq
	return scheduler.Frame{Snapshot: s, Referee: game.RefereeState{Command: f.command}}, true
}

func (f *fakeService) Submit(_ context.Context, r scheduler.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if r.Command == game.CommandStop && f.rejectAt > 0 && f.submits%f.rejectAt == 0 {
		return queue.ErrFull
	}
	f.command = r.Command
	return nil
}

func (f *fakeService) Profile() profile.Profile { return profile.Default() }

type statsProvider struct{}

func (statsProvider) GetStats() map[string]any {
	return map[string]any{"scheduler": scheduler.Stats{Ticks: 50, Overruns: 2}}
}

func newServer(svc *fakeService) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, statsProvider{}, nil).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func config(url string) *drill.Config {
	return &drill.Config{
		BaseURL:      url,
		Ticks:        5,
		PollInterval: time.Millisecond,
		Burst:        30,
		Workers:      4,
		Timeout:      2 * time.Second,
	}
}

func TestRun(t *testing.T) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		t.Fatal(err)
	}

	Convey("Given a responsive service", t, func() {
		svc := &fakeService{command: game.CommandHalt, rejectAt: 3}
		srv := newServer(svc)
		defer srv.Close()

		Convey("The drill completes and reports what it saw", func() {
			stats, err := drill.Run(context.Background(), config(srv.URL))
			So(err, ShouldBeNil)
			So(stats.EndSeq, ShouldBeGreaterThanOrEqualTo, stats.StartSeq+5)
			So(stats.BurstApplied+stats.BurstRejected, ShouldEqual, 30)
			So(stats.BurstRejected, ShouldBeGreaterThan, 0)
			So(stats.BurstFailed, ShouldEqual, 0)
			So(stats.FinalCommand, ShouldEqual, game.CommandHalt)
			So(stats.ServiceTicks, ShouldEqual, 50)
			So(stats.ServiceOverrun, ShouldEqual, 2)
			So(stats.Duration, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a service that is not running", t, func() {
		srv := newServer(&fakeService{})
		url := srv.URL
		srv.Close()

		Convey("The health check fails", func() {
			_, err := drill.Run(context.Background(), config(url))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})

	Convey("Given a service that refuses commands", t, func() {
		svc := &fakeService{rejectAt: 1}
		srv := newServer(svc)
		defer srv.Close()

		Convey("Starting play fails with the status", func() {
			_, err := drill.Run(context.Background(), config(srv.URL))
			So(err, ShouldWrap, drill.ErrUnexpectedStatus)
		})
	})
}

func TestSetupLogging(t *testing.T) {
	Convey("SetupLogging writes to the named file", t, func() {
		path := filepath.Join(t.TempDir(), "drill.log")
		So(drill.SetupLogging(path), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, "logging to file")

		So(drill.SetupLogging(filepath.Join(t.TempDir(), "missing", "x.log")), ShouldNotBeNil)
		So(logger.InitWithWriter(io.Discard), ShouldBeNil)
	})
}
