package events

// Event type constants for kelindar/event.
const (
	TypeSessionStarted uint32 = iota + 1
	TypeSessionReady
	TypeSessionStopped
	TypePluginInstalled
	TypeReloadCompleted
	TypeProcessExited
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStartedEvent is published once the host process has been spawned.
type SessionStartedEvent struct {
	SessionID string `json:"session_id"`
	PID       int    `json:"pid"`
	Port      int    `json:"port"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for SessionStartedEvent.
func (e SessionStartedEvent) Type() uint32 { return TypeSessionStarted }

// SessionReadyEvent is published when all plugins are installed and the
// session accepts reloads.
type SessionReadyEvent struct {
	SessionID   string `json:"session_id"`
	PluginCount int    `json:"plugin_count"`
	ProxyMode   bool   `json:"proxy_mode"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for SessionReadyEvent.
func (e SessionReadyEvent) Type() uint32 { return TypeSessionReady }

// SessionStoppedEvent is published after teardown completes.
type SessionStoppedEvent struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for SessionStoppedEvent.
func (e SessionStoppedEvent) Type() uint32 { return TypeSessionStopped }

// PluginInstalledEvent is published per plugin after a successful install.
type PluginInstalledEvent struct {
	SessionID string `json:"session_id"`
	PluginID  string `json:"plugin_id"`
	AddonID   string `json:"addon_id,omitempty"`
	SourceDir string `json:"source_dir"`
	Proxy     bool   `json:"proxy"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for PluginInstalledEvent.
func (e PluginInstalledEvent) Type() uint32 { return TypePluginInstalled }

// ReloadCompletedEvent is published after each reload batch.
type ReloadCompletedEvent struct {
	SessionID string `json:"session_id"`
	Total     int    `json:"total"`
	Failed    int    `json:"failed"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ReloadCompletedEvent.
func (e ReloadCompletedEvent) Type() uint32 { return TypeReloadCompleted }

// ProcessExitedEvent is published when the host process exits on its own.
type ProcessExitedEvent struct {
	SessionID string `json:"session_id"`
	ExitCode  int    `json:"exit_code"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ProcessExitedEvent.
func (e ProcessExitedEvent) Type() uint32 { return TypeProcessExited }
