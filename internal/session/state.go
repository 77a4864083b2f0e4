package session

// State represents the current state of a development session.
type State string

// Session states. Transitions run strictly forward; Stopped is reachable
// from any state via teardown and is terminal.
const (
	StateNotStarted       State = "not_started"
	StateProfilePrepared  State = "profile_prepared"
	StateProcessStarted   State = "process_started"
	StatePluginsInstalled State = "plugins_installed"
	StateReady            State = "ready"
	StateStopped          State = "stopped"
)
