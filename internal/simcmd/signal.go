package simcmd

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/google/renameio/v2/maybe"
	"github.com/netfabric/simfabric/internal/simlifecycle"
)

// Default timeouts for starting and shutting down services.
const (
	defaultTimeoutStart    = 10 * time.Second
	defaultTimeoutShutdown = 5 * time.Second
)

// reloadFunc reloads the running topology from its source.  It is called on
// a reconfigure signal (SIGHUP); a nil reloadFunc makes reconfigure signals a
// no-op beyond logging.
type reloadFunc func(ctx context.Context) (err error)

// signalHandler processes incoming OS signals: a shutdown signal stops every
// registered service, a reconfigure signal reloads the topology in place.
type signalHandler struct {
	logger *slog.Logger

	signal chan os.Signal

	pidFile string

	services []simlifecycle.Service

	reload reloadFunc

	shutdownTimeout time.Duration
}

// newSignalHandler returns a new signalHandler that shuts down svcs on a
// termination signal and invokes reload on a reconfiguration signal.  reload
// may be nil.
func newSignalHandler(
	logger *slog.Logger,
	pidFile string,
	reload reloadFunc,
	svcs ...simlifecycle.Service,
) (h *signalHandler) {
	h = &signalHandler{
		logger:          logger,
		signal:          make(chan os.Signal, 1),
		pidFile:         pidFile,
		services:        svcs,
		reload:          reload,
		shutdownTimeout: defaultTimeoutShutdown,
	}

	notifier := osutil.DefaultSignalNotifier{}
	osutil.NotifyShutdownSignal(notifier, h.signal)
	osutil.NotifyReconfigureSignal(notifier, h.signal)

	return h
}

// handle blocks until a termination or reconfiguration signal arrives.  A
// reconfiguration signal reloads the topology and keeps waiting; a
// termination signal shuts every service down and returns.
func (h *signalHandler) handle(ctx context.Context) (status osutil.ExitCode) {
	defer slogutil.RecoverAndLog(ctx, h.logger)

	h.writePID(ctx)

	for sig := range h.signal {
		h.logger.InfoContext(ctx, "received", "signal", sig)

		if osutil.IsReconfigureSignal(sig) {
			if h.reload == nil {
				continue
			}

			err := h.reload(ctx)
			if err != nil {
				h.logger.ErrorContext(ctx, "reloading topology", slogutil.KeyError, err)
			}

			continue
		}

		if osutil.IsShutdownSignal(sig) {
			status = h.shutdown(ctx)

			h.removePID(ctx)

			return status
		}
	}

	panic("unexpected close of h.signal")
}

// shutdown gracefully shuts down every registered service.
func (h *signalHandler) shutdown(ctx context.Context) (status osutil.ExitCode) {
	ctx, cancel := context.WithTimeout(ctx, h.shutdownTimeout)
	defer cancel()

	status = osutil.ExitCodeSuccess

	h.logger.InfoContext(ctx, "shutting down")

	var errs []error
	for i, svc := range h.services {
		err := svc.Shutdown(ctx)
		if err != nil {
			errs = append(errs, err)
			h.logger.ErrorContext(ctx, "shutting down service", "idx", i, slogutil.KeyError, err)
		}
	}

	if len(errs) > 0 {
		status = osutil.ExitCodeFailure
	}

	return status
}

// writePID writes the process PID to h.pidFile, if set.  Errors are logged,
// not returned, matching the best-effort nature of this housekeeping step.
func (h *signalHandler) writePID(ctx context.Context) {
	if h.pidFile == "" {
		return
	}

	pid := os.Getpid()
	data := strconv.AppendInt(nil, int64(pid), 10)
	data = append(data, '\n')

	err := maybe.WriteFile(h.pidFile, data, 0o644)
	if err != nil {
		h.logger.ErrorContext(ctx, "writing pidfile", slogutil.KeyError, err)

		return
	}

	h.logger.DebugContext(ctx, "wrote pid", "file", h.pidFile, "pid", pid)
}

// removePID removes h.pidFile, if set.
func (h *signalHandler) removePID(ctx context.Context) {
	if h.pidFile == "" {
		return
	}

	err := os.Remove(h.pidFile)
	if err != nil {
		h.logger.ErrorContext(ctx, "removing pidfile", slogutil.KeyError, err)

		return
	}

	h.logger.DebugContext(ctx, "removed pidfile", "file", h.pidFile)
}

