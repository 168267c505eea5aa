// Package version contains simfabric version information.
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/stringutil"
)

// Channel constants.
const (
	ChannelDevelopment = "development"
	ChannelRelease     = "release"
)

// These are set by the linker.
var (
	channel    string = ChannelDevelopment
	version    string
	committime string
)

// Channel returns the current release channel.
func Channel() (v string) { return channel }

// vFmtFull defines the format of full version output.
const vFmtFull = "simfabric, version %s"

// Full returns the full current version string.
func Full() (v string) { return fmt.Sprintf(vFmtFull, version) }

// Version returns the build version.
func Version() (v string) { return version }

// Constants defining the headers of the verbose build information message.
const (
	vFmtHdr     = "simfabric"
	vFmtVerHdr  = "Version: "
	vFmtChanHdr = "Channel: "
	vFmtGoHdr   = "Go version: "
	vFmtTimeHdr = "Build time: "
	vFmtOSHdr   = "GOOS: " + runtime.GOOS
	vFmtArchHdr = "GOARCH: " + runtime.GOARCH
)

// Verbose returns formatted build information.
func Verbose() (v string) {
	b := &strings.Builder{}

	const nl = "\n"
	stringutil.WriteToBuilder(b, vFmtHdr, nl)
	stringutil.WriteToBuilder(b, vFmtVerHdr, version, nl)
	stringutil.WriteToBuilder(b, vFmtChanHdr, channel, nl)
	stringutil.WriteToBuilder(b, vFmtGoHdr, runtime.Version(), nl)

	writeCommitTime(b)

	stringutil.WriteToBuilder(b, vFmtOSHdr, nl)
	stringutil.WriteToBuilder(b, vFmtArchHdr, nl)

	return b.String()
}

func writeCommitTime(b *strings.Builder) {
	if committime == "" {
		return
	}

	commitTimeUnix, err := strconv.ParseInt(committime, 10, 64)
	if err != nil {
		stringutil.WriteToBuilder(b, vFmtTimeHdr, fmt.Sprintf("parse error: %s", err), "\n")

		return
	}

	stringutil.WriteToBuilder(b, vFmtTimeHdr, time.Unix(commitTimeUnix, 0).String(), "\n")
}
