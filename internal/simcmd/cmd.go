// Package simcmd is the simfabric entry point.  It parses command-line
// options, assembles the simulator and terminal facade, loads the initial
// topology, and runs the signal-driven lifecycle loop until shutdown.
package simcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/netfabric/simfabric/internal/simbuild"
	"github.com/netfabric/simfabric/internal/simlifecycle"
	"github.com/netfabric/simfabric/internal/simnet"
	"github.com/netfabric/simfabric/internal/termsvc"
	"github.com/netfabric/simfabric/internal/version"
)

// snapshotName is the key under which the running topology is stored in the
// snapshot database.
const snapshotName = "current"

// Main is the entry point of the simfabric simulator process.
func Main() {
	ctx := context.Background()

	cmdName := os.Args[0]
	opts, err := parseOptions(cmdName, os.Args[1:])
	exitCode, needExit := processOptions(opts, cmdName, err)
	if needExit {
		os.Exit(exitCode)
	}

	w, closeLog, err := logWriter(opts)
	errors.Check(err)
	defer func() { _ = closeLog() }()

	logger := newLogger(w, opts.verbose)

	logger.InfoContext(ctx, "starting simfabric", "version", version.Version(), "pid", os.Getpid())

	sim := simnet.New(logger)
	svc := termsvc.New(logger, sim)

	var snapshots *simnet.SnapshotStore
	if opts.snapshotFile != "" {
		snapshots, err = simnet.OpenSnapshotStore(opts.snapshotFile)
		errors.Check(err)
	}

	current := &currentTopology{}

	load := func(ctx context.Context) (err error) {
		topo, loadErr := loadInitialTopology(opts, snapshots)
		if loadErr != nil {
			return loadErr
		}

		sim.Reset()

		applyErr := simbuild.Apply(logger, sim, svc, topo)
		if applyErr != nil {
			return fmt.Errorf("applying topology: %w", applyErr)
		}

		current.set(topo)

		return nil
	}

	startCtx, startCancel := context.WithTimeout(ctx, defaultTimeoutStart)
	defer startCancel()

	err = load(startCtx)
	errors.Check(err)

	lifecycle := []simlifecycle.Service{simlifecycle.EmptyService{}}
	if snapshots != nil {
		lifecycle = []simlifecycle.Service{&snapshotSaver{store: snapshots, current: current}}
	}

	sigHdlr := newSignalHandler(
		logger.With(slogutil.KeyPrefix, service.SignalHandlerPrefix),
		opts.pidFile,
		load,
		lifecycle...,
	)

	os.Exit(int(sigHdlr.handle(ctx)))
}

// loadInitialTopology loads the topology to apply at startup: the snapshot
// store's saved copy takes precedence over opts.topologyFile, since it
// reflects the last known-good running state.
func loadInitialTopology(opts *options, snapshots *simnet.SnapshotStore) (t *simnet.TopologyFile, err error) {
	if snapshots != nil {
		t, ok, loadErr := snapshots.Load(snapshotName)
		if loadErr != nil {
			return nil, fmt.Errorf("loading snapshot: %w", loadErr)
		}

		if ok {
			return t, nil
		}
	}

	if opts.topologyFile == "" {
		return &simnet.TopologyFile{}, nil
	}

	data, err := os.ReadFile(opts.topologyFile)
	if err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}

	return simnet.ParseTopology(data)
}

// currentTopology holds the most recently applied topology, so that the
// snapshot saver has something to persist at shutdown without needing to
// serialize live device state.
type currentTopology struct {
	t *simnet.TopologyFile
}

func (c *currentTopology) set(t *simnet.TopologyFile) { c.t = t }

// snapshotSaver persists the current topology to the snapshot store on
// shutdown.
type snapshotSaver struct {
	store   *simnet.SnapshotStore
	current *currentTopology
}

// type check
var _ simlifecycle.Service = (*snapshotSaver)(nil)

// Start implements the [simlifecycle.Service] interface for *snapshotSaver.
func (s *snapshotSaver) Start(context.Context) (err error) { return nil }

// Shutdown implements the [simlifecycle.Service] interface for
// *snapshotSaver.  It saves the last-applied topology and closes the store.
func (s *snapshotSaver) Shutdown(context.Context) (err error) {
	if s.current.t != nil {
		err = s.store.Save(snapshotName, s.current.t)
		if err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
	}

	return s.store.Close()
}
