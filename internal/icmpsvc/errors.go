package icmpsvc

import "github.com/AdguardTeam/golibs/errors"

// errTimeout is wrapped into an EchoResult's Err field when a pending echo
// is not answered before its caller-supplied timeout elapses.
const errTimeout errors.Error = "icmp echo: timed out waiting for reply"
