// Command replay prints a recorded match from the journal as JSON lines,
// paced like the original match. Without -match it lists the matches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/replay"
	"github.com/okian/pitchside/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

type options struct {
	db    string
	match string
	from  uint64
	speed float64
}

func parse(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.StringVar(&o.db, "db", "pitchside.db", "Journal database written by the service")
	fs.StringVar(&o.match, "match", "", "Match id to play; empty lists the matches")
	fs.Uint64Var(&o.from, "from", 0, "First sequence id to play")
	fs.Float64Var(&o.speed, "speed", 1, "Playback speed; 0 prints without pauses")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer) int {
	log := logger.Get().Named("replay")
	o, err := parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	store, err := journal.Open(ctx, o.db)
	if err != nil {
		log.Error(ctx, "open journal", logger.String("db", o.db), logger.Error(err))
		return 1
	}
	defer func() { _ = store.Close() }()

	if err := play(ctx, store, o, json.NewEncoder(out)); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "replay failed", logger.String("match", o.match), logger.Error(err))
		return 1
	}
	return 0
}

func play(ctx context.Context, store *journal.Store, o options, enc *json.Encoder) error {
	if o.match == "" {
		matches, err := store.Matches(ctx)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if err := enc.Encode(m); err != nil {
				return fmt.Errorf("write match: %w", err)
			}
		}
		return nil
	}

	m, err := store.Match(ctx, o.match)
	if err != nil {
		return err
	}
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	p, err := replay.NewPlayer(store, replay.WithSpeed(o.speed))
	if err != nil {
		return err
	}
	return p.Play(ctx, o.match, o.from, func(r journal.Recording) error {
		return enc.Encode(r)
	})
}
