package reload

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// SideChannel delivers reload payloads to a running host by invoking the
// host binary against the existing profile with an encoded script URL.
// Documented as lower-reliability: prefer the temporary strategy when the
// remote-control channel is available.
type SideChannel struct {
	binary     string
	profileDir string
	logger     *slog.Logger

	// invoke is swappable in tests.
	invoke func(ctx context.Context, binary string, args []string) error
}

// NewSideChannel creates a side channel targeting the given binary and
// profile directory.
func NewSideChannel(binary, profileDir string, logger *slog.Logger) *SideChannel {
	return &SideChannel{
		binary:     binary,
		profileDir: profileDir,
		logger:     logger,
		invoke:     runBinary,
	}
}

// Send transmits one payload. The invocation targets the already-running
// instance, which picks up the URL and executes the embedded script.
func (s *SideChannel) Send(ctx context.Context, payload Payload) error {
	handle := EncodeURL(payload.Script())
	args := []string{"-profile", s.profileDir, handle}

	s.logger.Debug("Sending proxy reload", "addon_id", payload.ID)
	if err := s.invoke(ctx, s.binary, args); err != nil {
		return fmt.Errorf("proxy reload of %q failed: %w", payload.ID, err)
	}
	return nil
}

func runBinary(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) // #nosec G204 -- binary path comes from operator configuration
	return cmd.Run()
}
