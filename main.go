package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/litetable/litetable-kit/internal/app"
	"github.com/litetable/litetable-kit/internal/config"
	"github.com/litetable/litetable-kit/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: litetable [global flags] <command> [command flags]

commands:
  provision  create a table and its column families
  put        write one cell
  scan       print the rows of a table

global flags:
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("litetable failed")
		os.Exit(1)
	}
}

// properties collects repeated key=value flags.
type properties map[string]string

func (p properties) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (p properties) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	p[strings.TrimSpace(key)] = strings.TrimSpace(val)
	return nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("litetable", flag.ContinueOnError)
	global.Usage = func() {
		fmt.Fprint(global.Output(), usage)
		global.PrintDefaults()
	}
	dir := global.String("config", "", "LiteTable directory holding litetable.conf (default ~/.litetable)")
	props := properties{}
	global.Var(props, "set", "override a config property, key=value (repeatable)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Load(*dir, props)
	if err != nil {
		return err
	}
	setupLogging(cfg.Debug)

	cmd, ok := commands[global.Arg(0)]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", global.Arg(0))
	}
	job, err := cmd(global.Args()[1:], out)
	if err != nil {
		return err
	}

	backend, err := store.Open(cfg)
	if err != nil {
		return err
	}

	application, err := app.CreateApp(&app.Config{
		ServiceName: "LiteTable",
		StopTimeout: cfg.StopTimeout,
	}, backend)
	if err != nil {
		return err
	}

	return application.Run(ctx, func(ctx context.Context) error {
		return job(ctx, backend)
	})
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
