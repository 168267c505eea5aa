// Package simlifecycle defines the start/shutdown contract the command
// entry point uses to bring the simulator up and tear it down cleanly.
package simlifecycle

import "context"

// Service is the interface for long-running simulator components the
// command entry point starts and stops.
type Service interface {
	// Start starts the service.  It does not block.
	Start(ctx context.Context) (err error)

	// Shutdown gracefully stops the service.  ctx determines a timeout
	// before trying to stop the service less gracefully.
	Shutdown(ctx context.Context) (err error)
}

// type check
var _ Service = EmptyService{}

// EmptyService is a Service that does nothing, for components with no
// lifecycle of their own.
type EmptyService struct{}

// Start implements the [Service] interface for EmptyService.
func (EmptyService) Start(context.Context) (err error) { return nil }

// Shutdown implements the [Service] interface for EmptyService.
func (EmptyService) Shutdown(context.Context) (err error) { return nil }
