// Command bos-reportapi runs the thin HTTP server nodes' reporter
// agents call to publish their actual boot state, per SPEC_FULL.md §1
// ("no reporter agent binary, only the one HTTP endpoint it calls
// against").
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hpc-bos/bos/internal/config"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store/redisstore"
	"github.com/hpc-bos/bos/internal/engine/tokens"
	"github.com/hpc-bos/bos/internal/reportapi"
	"github.com/hpc-bos/bos/internal/telemetry"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/redis/go-redis/v9"
)

func main() {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	var rc config.ReportAPIConfig
	fs := config.NewSet("bos-reportapi")
	config.RegisterReportAPI(fs, &rc)

	cli := &ff.Command{Name: "bos-reportapi", Usage: "bos-reportapi [flags]", Flags: fs.FlagSet}
	if err := cli.Parse(os.Args[1:], ff.WithEnvVarPrefix(config.EnvPrefix)); err != nil {
		fmt.Fprintln(os.Stderr, ffhelp.Command(cli))
		if !errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		exitCode = 1
		return
	}

	zlog, err := telemetry.NewLogger(options.LogLevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		exitCode = 1
		return
	}
	if rc.LogLevelFlag != "" {
		zlog.SetLevel(options.LogLevel(rc.LogLevelFlag))
	}
	log := zlog.Logger
	log.Info("starting bos-reportapi")

	rdb := redis.NewClient(&redis.Options{Addr: rc.StoreAddr})
	st := redisstore.New(rdb)

	srv := &reportapi.Server{
		Store:     st,
		Tokens:    tokens.NewRedisTable(rdb),
		Log:       log,
		StartTime: time.Now(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- reportapi.ListenAndServe(rc.BindAddr, srv) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error(err, "bos-reportapi exiting")
			exitCode = 1
		}
	}
}
