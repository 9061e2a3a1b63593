// Command bos-operators runs every reconciliation operator (action and
// housekeeping) against one component/session/option store, following
// the teacher's main.go shape: ff/v4 flag parsing, a
// signal.NotifyContext root context, and an errgroup fanning goroutines
// out under one cancellation scope.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/config"
	"github.com/hpc-bos/bos/internal/engine/actions"
	"github.com/hpc-bos/bos/internal/engine/clients/adapt"
	"github.com/hpc-bos/bos/internal/engine/clients/bss"
	"github.com/hpc-bos/bos/internal/engine/clients/cfs"
	"github.com/hpc-bos/bos/internal/engine/clients/hsm"
	"github.com/hpc-bos/bos/internal/engine/clients/pcs"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/filters"
	"github.com/hpc-bos/bos/internal/engine/housekeeping"
	"github.com/hpc-bos/bos/internal/engine/operator"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
	"github.com/hpc-bos/bos/internal/engine/store/redisstore"
	"github.com/hpc-bos/bos/internal/engine/tokens"
	"github.com/hpc-bos/bos/internal/telemetry"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	var oc config.OperatorsConfig
	fs := config.NewSet("bos-operators")
	config.RegisterOperators(fs, &oc)

	cli := &ff.Command{Name: "bos-operators", Usage: "bos-operators [flags]", Flags: fs.FlagSet}
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
	if oc.LogLevelFlag != "" {
		zlog.SetLevel(options.LogLevel(oc.LogLevelFlag))
	}
	log := zlog.Logger
	log.Info("starting bos-operators")

	rdb := redis.NewClient(&redis.Options{Addr: oc.StoreAddr})
	st := redisstore.New(rdb)

	cache := options.NewCache(st, log)
	if err := cache.WaitForFirstFetch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err, "waiting for option store")
		exitCode = 1
		return
	}
	clock := cache.Snapshot

	hsmClient := hsm.New(oc.HSMURL)
	bssClient := bss.New(oc.BSSURL)
	pcsClient := pcs.New(oc.PCSURL)
	cfsClient := cfs.New(oc.CFSURL)
	tokenTable := tokens.NewRedisTable(rdb)
	metrics := telemetry.NewMetrics()

	deps := operatorDeps{
		store:             st,
		clock:             clock,
		log:               log,
		metrics:           metrics,
		bss:               bssClient,
		pcs:               pcsClient,
		cfs:               cfsClient,
		tokens:            tokenTable,
		powerStateFetcher: adapt.PCS{Client: pcsClient, Cache: cache},
		hsmStateFetcher:   adapt.HSM{Client: hsmClient, Cache: cache},
		cfsConfigFetcher:  adapt.CFS{Client: cfsClient, Cache: cache},
	}

	runners := buildOperators(deps)

	discovery := &housekeeping.Discovery{HSM: hsmClient, Store: st, Clock: clock, Log: log}
	actualStateCleanup := housekeeping.NewActualStateCleanup(st, clock, log, nil)
	sessionCompletion := &housekeeping.SessionCompletion{Sessions: st, Store: st, Clock: clock, Log: log}
	sessionCleanup := &housekeeping.SessionCleanup{Sessions: st, Clock: clock, Log: log}
	runners = append(runners, discovery, actualStateCleanup, sessionCompletion, sessionCleanup)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cache.Run(ctx) })
	for _, r := range runners {
		r := r
		g.Go(func() error { return r.Run(ctx) })
	}
	g.Go(func() error { return serveMetrics(ctx, oc.MetricsAddr) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err, "bos-operators exiting")
		exitCode = 1
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type operatorDeps struct {
	store             store.Components
	clock             func() options.Options
	log               logr.Logger
	metrics           *telemetry.Metrics
	bss               *bss.Client
	pcs               *pcs.Client
	cfs               *cfs.Client
	tokens            tokens.Table
	powerStateFetcher filters.PowerStateFetcher
	hsmStateFetcher   filters.HSMStateFetcher
	cfsConfigFetcher  filters.CFSConfigFetcher
}

func pollInterval(o options.Options) time.Duration { return o.PollingFrequency }

// buildOperators wires every action operator from spec.md §4.3-§4.5's
// filter chains onto operator.FilterDriven, matching the selection
// logic each operator's doc comment in internal/engine/actions
// describes.
func buildOperators(d operatorDeps) []operator.Runner {
	snap := d.clock()

	powerOn := &operator.FilterDriven{
		OperatorName: "PowerOn",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
			filters.Not(filters.DesiredBootStateIsNone{}),
			filters.Or(
				[]filters.Filter{filters.Not(filters.LastActionIs{Actions: []component.Action{component.ActionPowerOn}})},
				[]filters.Filter{filters.TimeSinceLastAction{Duration: snap.MaxComponentWaitTime}},
			),
			filters.Or(
				[]filters.Filter{filters.DesiredConfigurationSetInCFS{Client: d.cfsConfigFetcher}},
				[]filters.Filter{filters.DesiredConfigurationIsNone{}},
			),
			filters.HSMState{Client: d.hsmStateFetcher, Enabled: boolPtr(true)},
			filters.PowerState{Client: d.powerStateFetcher, State: component.PowerOff},
		},
		Act:       &actions.PowerOn{BSS: d.bss, PCS: d.pcs, Tokens: d.tokens, Log: d.log},
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	gracefulOff := &operator.FilterDriven{
		OperatorName: "GracefulPowerOff",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
			filters.Not(filters.BootArtifactStatesMatch{}),
			filters.LastActionIs{Actions: []component.Action{component.ActionNone, component.ActionRecovery}},
			filters.HSMState{Client: d.hsmStateFetcher, Enabled: boolPtr(true)},
			filters.PowerState{Client: d.powerStateFetcher, State: component.PowerOn},
		},
		Act:       actions.NewGracefulPowerOff(d.pcs, d.log),
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	forcefulOff := &operator.FilterDriven{
		OperatorName: "ForcefulPowerOff",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
			filters.Not(filters.BootArtifactStatesMatch{}),
			filters.PowerState{Client: d.powerStateFetcher, State: component.PowerOn},
			filters.LastActionIs{Actions: []component.Action{component.ActionPowerOffGracefully}},
			filters.TimeSinceLastAction{Duration: snap.MaxPowerOffWaitTime},
		},
		Act:       actions.NewForcefulPowerOff(d.pcs, d.log),
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	configuration := &operator.FilterDriven{
		OperatorName: "Configuration",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
			filters.Not(filters.DesiredConfigurationIsNone{}),
			filters.BootArtifactStatesMatch{},
			filters.Not(filters.DesiredConfigurationSetInCFS{Client: d.cfsConfigFetcher}),
		},
		Act:       &actions.Configuration{CFS: d.cfs, Log: d.log},
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	readyRecovery := &operator.FilterDriven{
		OperatorName: "ReadyRecovery",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
			filters.Not(filters.DesiredBootStateIsNone{}),
			filters.BootArtifactStatesMatch{},
			filters.HSMState{Client: d.hsmStateFetcher, Ready: boolPtr(false)},
			filters.TimeSinceLastAction{Duration: snap.MaxBootWaitTime},
		},
		Act:       &actions.ReadyRecovery{PCS: d.pcs, Log: d.log},
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	disable := &operator.FilterDriven{
		OperatorName: "Disable",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
			filters.Or(
				[]filters.Filter{filters.StatesMatch{}, filters.PowerState{Client: d.powerStateFetcher, State: component.PowerOn}},
				[]filters.Filter{filters.DesiredStateIsNone{}, filters.PowerState{Client: d.powerStateFetcher, State: component.PowerOff}},
			),
		},
		Act:       &actions.Disable{Log: d.log},
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	status := &operator.FilterDriven{
		OperatorName: "Status",
		Filters: []filters.Filter{
			filters.EnabledTrue(),
		},
		Act:       &actions.Status{Log: d.log},
		Store:     d.store,
		Clock:     d.clock,
		Interval:  pollInterval,
		Log:       d.log,
		Heartbeat: d.metrics,
	}

	return []operator.Runner{powerOn, gracefulOff, forcefulOff, configuration, readyRecovery, disable, status}
}

func boolPtr(b bool) *bool { return &b }
