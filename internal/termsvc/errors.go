package termsvc

import "github.com/AdguardTeam/golibs/errors"

// Sentinel errors returned by the facade's operations.
const (
	ErrUnknownDevice    errors.Error = "unknown device"
	ErrUnknownInterface errors.Error = "unknown interface"
	ErrMalformedIP      errors.Error = "malformed ip address"
	ErrUnreachable      errors.Error = "destination unreachable"
	ErrDHCPNotEnabled   errors.Error = "dhcp not enabled on interface"
	ErrWrongDeviceKind  errors.Error = "operation not supported by this device kind"
)
