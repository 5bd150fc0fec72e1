package stream_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/pitchside/internal/adapters/http/stream"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/scheduler"
	"github.com/okian/pitchside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func frame(seq uint64) scheduler.Frame {
	s := game.NewSnapshot(game.Perspective{MyTeamIsYellow: true})
	s.Seq = seq
	s.Ball = game.Ball{Position: game.Vec2{X: 1, Y: 2}, Visible: true}
	return scheduler.Frame{Snapshot: s, Referee: game.RefereeState{Command: game.CommandStop}}
}

func dial(url string) *websocket.Conn {
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	So(err, ShouldBeNil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func readFrame(conn *websocket.Conn) scheduler.Frame {
	So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
	_, payload, err := conn.ReadMessage()
	So(err, ShouldBeNil)
	var f scheduler.Frame
	So(json.Unmarshal(payload, &f), ShouldBeNil)
	return f
}

func waitClients(h *stream.Hub, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	So(h.Clients(), ShouldEqual, n)
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind a test server", t, func() {
		hub := stream.NewHub(stream.WithLogger(logger.Nop()), stream.WithWriteTimeout(time.Second))
		srv := httptest.NewServer(hub)
		defer srv.Close()

		Convey("When a client connects and a frame is published", func() {
			conn := dial(srv.URL)
			defer conn.Close()
			waitClients(hub, 1)
			hub.Publish(frame(7))

			Convey("Then the client receives it", func() {
				f := readFrame(conn)
				So(f.Snapshot.Seq, ShouldEqual, 7)
				So(f.Referee.Command, ShouldEqual, game.CommandStop)
				So(f.Snapshot.Ball.Position, ShouldResemble, game.Vec2{X: 1, Y: 2})
			})
		})

		Convey("When a client joins after frames were published", func() {
			hub.Publish(frame(1))
			hub.Publish(frame(2))
			conn := dial(srv.URL)
			defer conn.Close()

			Convey("Then it starts from the newest one", func() {
				So(readFrame(conn).Snapshot.Seq, ShouldEqual, 2)
			})
		})

		Convey("When the client goes away", func() {
			conn := dial(srv.URL)
			waitClients(hub, 1)
			So(conn.Close(), ShouldBeNil)

			Convey("Then it is removed", func() {
				waitClients(hub, 0)
			})
		})

		Convey("When the hub is closed", func() {
			conn := dial(srv.URL)
			defer conn.Close()
			waitClients(hub, 1)
			hub.Close()

			Convey("Then clients are disconnected and new ones refused", func() {
				waitClients(hub, 0)
				So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
				_, _, err := conn.ReadMessage()
				So(err, ShouldNotBeNil)

				late := dial(srv.URL)
				defer late.Close()
				So(late.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
				_, _, err = late.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
			})
		})
	})
}
