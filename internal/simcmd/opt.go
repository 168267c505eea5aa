package simcmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/netfabric/simfabric/internal/version"
)

// options contains all command-line options for the simfabric binary.
type options struct {
	// topologyFile is the path to the YAML topology description to load at
	// startup.
	topologyFile string

	// snapshotFile is the path to the bbolt snapshot database used to
	// persist topology state across restarts.  Empty disables persistence.
	snapshotFile string

	// logFile is the path to the log file.  Special values "stdout" and
	// "stderr" write to the corresponding stream; anything else is treated
	// as a file path.
	logFile string

	// pidFile is the path to the file where to store the PID.
	pidFile string

	// verbose enables debug-level logging.
	verbose bool

	// help, if true, instructs simfabric to print the usage message and
	// exit successfully.
	help bool

	// showVersion, if true, instructs simfabric to print its version and
	// exit successfully.
	showVersion bool
}

// parseOptions parses command-line arguments into an *options.
func parseOptions(cmdName string, args []string) (opts *options, err error) {
	set := flag.NewFlagSet(cmdName, flag.ContinueOnError)

	opts = &options{}

	set.StringVar(&opts.topologyFile, "topology", "", "path to the YAML topology file to load at startup")
	set.StringVar(&opts.snapshotFile, "snapshot", "", "path to the bbolt snapshot database (disabled if empty)")
	set.StringVar(&opts.logFile, "logfile", "stdout", `path to the log file, or "stdout"/"stderr"`)
	set.StringVar(&opts.pidFile, "pidfile", "", "path to the file to store the process PID in")
	set.BoolVar(&opts.verbose, "verbose", false, "enable verbose logging")
	set.BoolVar(&opts.help, "help", false, "print this help message and exit")
	set.BoolVar(&opts.showVersion, "version", false, "print the version and exit")

	err = set.Parse(args)
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// processOptions handles the options that cause an early exit (help,
// version, or a parse error).  needExit reports whether the caller should
// exit immediately with exitCode.
func processOptions(opts *options, cmdName string, parseErr error) (exitCode int, needExit bool) {
	if parseErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", cmdName, parseErr)

		return 2, true
	}

	if opts.help {
		fmt.Fprintf(os.Stdout, "%s is a packet-switched network simulator.\n", cmdName)

		return 0, true
	}

	if opts.showVersion {
		fmt.Fprintln(os.Stdout, version.Version())

		return 0, true
	}

	return 0, false
}

// logWriter returns the writer opts.logFile names, opening a new file if
// needed.
func logWriter(opts *options) (w io.Writer, closer func() error, err error) {
	switch opts.logFile {
	case "", "stdout":
		return os.Stdout, func() error { return nil }, nil
	case "stderr":
		return os.Stderr, func() error { return nil }, nil
	default:
		f, openErr := os.OpenFile(opts.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if openErr != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", openErr)
		}

		return f, f.Close, nil
	}
}
