// Package remote defines the contract for the host's remote-control channel.
// The wire protocol itself lives outside this repository; the session runner
// only depends on this interface and on a Dialer to obtain a connection.
package remote

import "context"

// Client is a live connection to the host's remote-control server.
//
// Implementations are not assumed safe for concurrent use. Callers must
// serialize install and reload calls.
type Client interface {
	// InstallTemporaryAddon loads the addon at the given absolute source
	// directory into the running host and returns the id the host assigned.
	InstallTemporaryAddon(ctx context.Context, sourceDir string) (string, error)

	// ReloadAddon re-reads an installed addon's code from disk.
	ReloadAddon(ctx context.Context, id string) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Dialer connects to the remote-control server listening on the given TCP
// port. A failed dial is fatal to the session; the runner never retries.
type Dialer func(ctx context.Context, port int) (Client, error)

// defaultDialer is the wire-protocol implementation registered by the
// embedding build. This module ships none.
var defaultDialer Dialer

// RegisterDialer installs the protocol implementation used by the CLI.
// Typically called from an init function in the linking package.
func RegisterDialer(d Dialer) {
	defaultDialer = d
}

// DefaultDialer returns the registered protocol implementation, or nil if
// none was linked in.
func DefaultDialer() Dialer {
	return defaultDialer
}
