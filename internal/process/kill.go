package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// KillStrategy is a named forced-kill command for the host process. The
// session always runs one on teardown; a configuration override replaces
// the platform default entirely.
type KillStrategy struct {
	Name string
	Args []string
}

// strategyFor selects the forced-kill strategy: the override command when
// configured, otherwise a fixed per-platform default matching the host
// binary's image name.
//
// The default match uses the fixed lowercase image name. Platforms with
// case-sensitive process tables and a differently-cased binary name are
// not normalized here; the observed host behavior leaves that undefined.
func strategyFor(goos, binary, override string) (KillStrategy, error) {
	if override != "" {
		args, err := parseCommand(override)
		if err != nil {
			return KillStrategy{}, fmt.Errorf("invalid kill command override: %w", err)
		}
		if len(args) == 0 {
			return KillStrategy{}, fmt.Errorf("empty kill command override")
		}
		return KillStrategy{Name: "override", Args: args}, nil
	}

	image := strings.ToLower(filepath.Base(binary))
	if image == "." || image == string(filepath.Separator) {
		return KillStrategy{}, fmt.Errorf("no host binary configured for forced kill")
	}
	if goos == "windows" {
		if !strings.HasSuffix(image, ".exe") {
			image += ".exe"
		}
		return KillStrategy{Name: "taskkill", Args: []string{"taskkill", "/F", "/IM", image}}, nil
	}

	image = strings.TrimSuffix(image, ".exe")
	// Match the process name only. Matching full command lines would also
	// hit this process, whose argv carries the host binary path.
	return KillStrategy{Name: "pkill", Args: []string{"pkill", image}}, nil
}

// runKill executes the strategy. A non-zero exit is the no-matching-process
// case and is logged, never returned: teardown must complete regardless.
func runKill(strategy KillStrategy, logger *slog.Logger) {
	cmd := exec.Command(strategy.Args[0], strategy.Args[1:]...) // #nosec G204 -- strategy args are fixed or operator-supplied
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Info("Forced kill found no process to terminate",
			"strategy", strategy.Name, "error", err, "output", strings.TrimSpace(string(out)))
		return
	}
	logger.Info("Forced kill completed", "strategy", strategy.Name)
}

// defaultStrategy returns the strategy for the current platform.
func defaultStrategy(binary, override string) (KillStrategy, error) {
	return strategyFor(runtime.GOOS, binary, override)
}

// parseCommand parses a command string into arguments.
// Handles quoted strings and basic escaping.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
