package ingest

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitchside/internal/domain/game"
)

func TestBuffer(t *testing.T) {
	Convey("Given an empty buffer", t, func() {
		b := NewBuffer[int]("unit")

		Convey("Taking yields nothing", func() {
			_, ok := b.TakeLatest()
			So(ok, ShouldBeFalse)
		})

		Convey("When two values are written before a take", func() {
			b.Write(1)
			b.Write(2)

			Convey("Then only the newest is returned and the slot empties", func() {
				v, ok := b.TakeLatest()
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)

				_, ok = b.TakeLatest()
				So(ok, ShouldBeFalse)

				writes, overwrites := b.Stats()
				So(writes, ShouldEqual, 2)
				So(overwrites, ShouldEqual, 1)
			})
		})

		Convey("When writers race a reader", func() {
			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 1000; i++ {
						b.Write(i)
					}
				}()
			}
			taken := 0
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 1000; i++ {
					if _, ok := b.TakeLatest(); ok {
						taken++
					}
				}
			}()
			wg.Wait()
			<-done
			if _, ok := b.TakeLatest(); ok {
				taken++
			}

			Convey("Then every write is either taken or counted as overwritten", func() {
				writes, overwrites := b.Stats()
				So(writes, ShouldEqual, 4000)
				So(uint64(taken)+overwrites, ShouldEqual, writes)
			})
		})
	})
}

func TestSources(t *testing.T) {
	Convey("Given sources for two cameras and robots 3 and 1", t, func() {
		s := NewSources(2, []int{3, 1})
		now := time.Unix(100, 0)

		So(s.CameraCount(), ShouldEqual, 2)
		So(s.RobotIDs(), ShouldResemble, []int{1, 3})

		Convey("Writes to unknown sources are rejected", func() {
			So(s.WriteVision(game.VisionFrame{Camera: 5}), ShouldWrap, ErrUnknownSource)
			So(s.WriteTelemetry(game.RobotTelemetry{RobotID: 9}), ShouldWrap, ErrUnknownSource)
		})

		Convey("When every source has data", func() {
			So(s.WriteVision(game.VisionFrame{Camera: 1, Timestamp: now}), ShouldBeNil)
			So(s.WriteVision(game.VisionFrame{Camera: 0, Timestamp: now}), ShouldBeNil)
			So(s.WriteTelemetry(game.RobotTelemetry{RobotID: 3, Timestamp: now}), ShouldBeNil)
			So(s.WriteTelemetry(game.RobotTelemetry{RobotID: 1, Timestamp: now, HasBall: true}), ShouldBeNil)
			s.WriteReferee(game.RefereePacket{Command: game.CommandStop})

			batch := s.Drain()

			Convey("Then the batch is ordered by camera and robot id", func() {
				So(batch.Vision.Frames, ShouldHaveLength, 2)
				So(batch.Vision.Frames[0].Camera, ShouldEqual, 0)
				So(batch.Vision.Frames[1].Camera, ShouldEqual, 1)
				So(batch.Telemetry.Reports, ShouldHaveLength, 2)
				So(batch.Telemetry.Reports[0].RobotID, ShouldEqual, 1)
				So(batch.Telemetry.Reports[0].HasBall, ShouldBeTrue)
				So(batch.HasReferee, ShouldBeTrue)
				So(batch.Referee.Command, ShouldEqual, game.CommandStop)
			})

			Convey("Then a second drain is empty", func() {
				So(s.Drain().Empty(), ShouldBeTrue)
			})
		})

		Convey("Overwrites are summed across buffers", func() {
			s.WriteReferee(game.RefereePacket{})
			s.WriteReferee(game.RefereePacket{})
			So(s.WriteVision(game.VisionFrame{Camera: 0}), ShouldBeNil)
			So(s.WriteVision(game.VisionFrame{Camera: 0}), ShouldBeNil)
			So(s.Overwrites(), ShouldEqual, 2)
		})
	})
}
