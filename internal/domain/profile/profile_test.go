package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuiltinProfiles(t *testing.T) {
	Convey("Given the embedded profiles", t, func() {
		So(profile.BuiltinNames(), ShouldResemble, []string{"arcade", "exhibition", "strict_ai"})

		Convey("Then strict_ai matches the in-code default", func() {
			p, err := profile.Builtin("strict_ai")
			So(err, ShouldBeNil)
			So(p, ShouldResemble, profile.Default())
			So(p.Rules.GoalDetection.Cooldown(), ShouldEqual, time.Second)
			So(p.Game.TransitionCooldown(), ShouldEqual, 300*time.Millisecond)
			So(p.Game.HalfDuration(), ShouldEqual, 5*time.Minute)
			So(p.Game.Kickoff(), ShouldEqual, game.TeamYellow)
		})

		Convey("Then exhibition turns off area and distance fouls", func() {
			p, err := profile.Builtin("exhibition")
			So(err, ShouldBeNil)
			So(p.Rules.DefenseArea.Enabled, ShouldBeFalse)
			So(p.Rules.KeepOut.Enabled, ShouldBeFalse)
			So(p.Rules.OutOfBounds.Enabled, ShouldBeTrue)
		})

		Convey("Then arcade restarts play after goals", func() {
			p, err := profile.Builtin("arcade")
			So(err, ShouldBeNil)
			So(p.Game.ForceStartAfterGoal, ShouldBeTrue)
			So(p.Game.StopDuration(), ShouldEqual, 2*time.Second)
		})

		Convey("Then unknown names fail", func() {
			_, err := profile.Builtin("pub_league")
			So(errors.Is(err, profile.ErrUnknownProfile), ShouldBeTrue)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given YAML profile documents", t, func() {
		base, err := os.ReadFile(filepath.Join("profiles", "strict_ai.yaml"))
		So(err, ShouldBeNil)

		Convey("When a key is misspelled", func() {
			doc := strings.Replace(string(base), "radius_meters:", "radius_metres:", 1)
			_, err := profile.Parse([]byte(doc))

			Convey("Then decoding fails", func() {
				So(errors.Is(err, profile.ErrInvalidProfile), ShouldBeTrue)
			})
		})

		Convey("When the geometry section is missing", func() {
			_, err := profile.Parse([]byte("name: bare\n"))

			Convey("Then validation fails on the zero geometry", func() {
				So(errors.Is(err, profile.ErrInvalidProfile), ShouldBeTrue)
				So(errors.Is(err, field.ErrInvalidGeometry), ShouldBeTrue)
			})
		})

		Convey("When the document is empty", func() {
			_, err := profile.Parse(nil)
			So(errors.Is(err, profile.ErrInvalidProfile), ShouldBeTrue)
		})

		Convey("When loaded from a file", func() {
			path := filepath.Join(t.TempDir(), "custom.yaml")
			doc := strings.Replace(string(base), "name: strict_ai", "name: custom", 1)
			So(os.WriteFile(path, []byte(doc), 0o600), ShouldBeNil)

			p, err := profile.Resolve("ignored", path)
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, "custom")

			_, err = profile.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
			So(errors.Is(err, profile.ErrLoadProfile), ShouldBeTrue)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the default profile with one bad value", t, func() {
		cases := []struct {
			name   string
			mutate func(*profile.Profile)
		}{
			{"missing name", func(p *profile.Profile) { p.Name = "" }},
			{"negative goal cooldown", func(p *profile.Profile) { p.Rules.GoalDetection.CooldownSeconds = -1 }},
			{"unknown assigner", func(p *profile.Profile) { p.Rules.OutOfBounds.FreeKickAssigner = "coin_toss" }},
			{"zero infield offset", func(p *profile.Profile) { p.Rules.OutOfBounds.InfieldOffset = 0 }},
			{"huge infield offset", func(p *profile.Profile) { p.Rules.OutOfBounds.InfieldOffset = 3 }},
			{"zero touch radius", func(p *profile.Profile) { p.Rules.OutOfBounds.TouchRadius = 0 }},
			{"negative defenders", func(p *profile.Profile) { p.Rules.DefenseArea.MaxDefenders = -1 }},
			{"zero keep-out radius", func(p *profile.Profile) { p.Rules.KeepOut.RadiusMeters = 0 }},
			{"zero persistence", func(p *profile.Profile) { p.Rules.KeepOut.PersistenceFrames = 0 }},
			{"zero half duration", func(p *profile.Profile) { p.Game.HalfDurationSeconds = 0 }},
			{"negative transition cooldown", func(p *profile.Profile) { p.Game.TransitionCooldownSeconds = -0.1 }},
			{"unknown kickoff team", func(p *profile.Profile) { p.Game.KickoffTeam = "green" }},
		}
		for _, tc := range cases {
			Convey("Then "+tc.name+" is fatal", func() {
				p := profile.Default()
				tc.mutate(&p)
				So(errors.Is(p.Validate(), profile.ErrInvalidProfile), ShouldBeTrue)
			})
		}
	})
}
