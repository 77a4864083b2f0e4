package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/extrun/extrun/internal/remote"
)

// Debug-assist variables added to the ambient environment on every spawn.
var debugEnv = []string{
	"XPCOM_DEBUG_BREAK=stack",
	"NS_TRACE_MALLOC_DISABLE_STACKS=1",
}

// StartOptions describe how to launch the host binary.
type StartOptions struct {
	ProfileDir string
	DataDir    string
	DevTools   bool
	ExtraArgs  []string
}

// StartResult reports the spawned process and the live control channel.
type StartResult struct {
	Client remote.Client
	Port   int
	PID    int
}

// Supervisor owns the host process handle for the lifetime of a session.
type Supervisor struct {
	binary       string
	dialer       remote.Dialer
	killOverride string
	logger       *slog.Logger
	hostLogger   *slog.Logger

	mu          sync.Mutex
	cmd         *exec.Cmd
	processDone chan struct{}
	waitErr     error
	outputDone  chan struct{}

	reapTimeout time.Duration
}

// NewSupervisor creates a supervisor for the given host binary. The dialer
// establishes the remote-control connection after spawn; killOverride,
// when non-empty, replaces the platform forced-kill command on teardown.
func NewSupervisor(binary string, dialer remote.Dialer, killOverride string, logger, hostLogger *slog.Logger) *Supervisor {
	return &Supervisor{
		binary:       binary,
		dialer:       dialer,
		killOverride: killOverride,
		logger:       logger,
		hostLogger:   hostLogger,
		reapTimeout:  5 * time.Second,
	}
}

// BuildArgs builds the host argument list deterministically: remote
// invocation disabled, profile and data-directory paths attached as
// absolute paths, optional script debugger, caller extras, then the
// debugger server port.
func BuildArgs(opts StartOptions, port int) ([]string, error) {
	profileDir, err := filepath.Abs(opts.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("profile path %q is not resolvable: %w", opts.ProfileDir, err)
	}
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory %q is not resolvable: %w", opts.DataDir, err)
	}

	args := []string{"-no-remote", "-profile", profileDir, "--dataDir", dataDir}
	if opts.DevTools {
		args = append(args, "-jsdebugger")
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, "-start-debugger-server", strconv.Itoa(port))
	return args, nil
}

// Start spawns the host binary and blocks until the remote-control channel
// is live. Spawn or connect failure is fatal to the session.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) (*StartResult, error) {
	port, err := allocatePort()
	if err != nil {
		return nil, err
	}

	args, err := BuildArgs(opts, port)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(s.binary, args...) // #nosec G204 -- binary path comes from operator configuration
	cmd.Env = append(os.Environ(), debugEnv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if startErr := cmd.Start(); startErr != nil {
		return nil, fmt.Errorf("failed to start host process: %w", startErr)
	}

	s.logger.Info("Host process started", "binary", s.binary, "pid", cmd.Process.Pid, "port", port)

	// Stream output in separate goroutines; the host may produce unbounded
	// log volume, so output is forwarded line by line and never accumulated.
	outputDone := make(chan struct{}, 2)
	go func() {
		s.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		s.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	processDone := make(chan struct{})
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.waitErr = err
		s.mu.Unlock()
		close(processDone)
	}()

	s.mu.Lock()
	s.cmd = cmd
	s.processDone = processDone
	s.outputDone = outputDone
	s.mu.Unlock()

	client, err := s.dialer(ctx, port)
	if err != nil {
		return nil, remote.NewError(remote.ErrCodeConnectFailed,
			fmt.Sprintf("remote-control connect on port %d failed", port), err)
	}

	s.logger.Info("Remote-control channel connected", "port", port)
	return &StartResult{Client: client, Port: port, PID: cmd.Process.Pid}, nil
}

// Done is closed when the host process exits. Blocks forever if the
// process was never started.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processDone
}

// ExitErr returns the wait result. Valid once Done is closed.
func (s *Supervisor) ExitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// ExitCode extracts the exit code from a wait result.
// Returns 0 for nil, the code for ExitError, or 1 for other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// Stop terminates the host. It signals the owned handle when present, then
// unconditionally runs the forced-kill strategy; both steps tolerate an
// already-gone process. Safe to call in any state, including before Start,
// and never returns an error.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	processDone := s.processDone
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		s.logger.Info("Sending terminate signal", "pid", cmd.Process.Pid)
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("Failed to signal host process", "error", err)
		}
	} else {
		s.logger.Debug("No owned process handle, skipping signal")
	}

	// Signal delivery is not reliable across the host's embedding platform,
	// so forced cleanup is mandatory, not conditional.
	strategy, err := defaultStrategy(s.binary, s.killOverride)
	if err != nil {
		s.logger.Warn("Skipping forced kill", "error", err)
	} else {
		runKill(strategy, s.logger)
	}

	if processDone != nil {
		select {
		case <-processDone:
			s.logger.Info("Host process exited", "exit_code", ExitCode(s.ExitErr()))
			s.drainOutput()
		case <-time.After(s.reapTimeout):
			s.logger.Warn("Host process did not exit after forced kill", "timeout", s.reapTimeout)
		}
	}
}

// drainOutput waits for both output streams to finish after process exit.
func (s *Supervisor) drainOutput() {
	s.mu.Lock()
	outputDone := s.outputDone
	s.outputDone = nil
	s.mu.Unlock()
	if outputDone == nil {
		return
	}
	for i := 0; i < 2; i++ {
		select {
		case <-outputDone:
		case <-time.After(time.Second):
			return
		}
	}
}

// streamOutput forwards host output through the host module logger.
func (s *Supervisor) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		s.hostLogger.Info(scanner.Text(), "source", source)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("Error reading host output", "source", source, "error", err)
	}
}
