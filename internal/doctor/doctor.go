// Package doctor runs environment readiness checks: speech synthesis,
// audio output, hotkey device access, and config health.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/awrona/veil/internal/config"
	"github.com/awrona/veil/internal/platform"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment and config checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{
		{
			Name:    "config",
			Pass:    true,
			Message: fmt.Sprintf("loaded %q", cfg.Path),
		},
		checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "runtime directory set", "XDG_RUNTIME_DIR is empty; the control socket has no home"),
		checkBinary("espeak-ng", "speech synthesis available"),
		checkPulse(),
		checkInputAccess(),
	}

	if len(cfg.Config.Playback.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Playback.Argv, "playback_cmd"))
	}
	if cfg.Config.Sound.Theme != "" {
		checks = append(checks, checkThemeDir(cfg.Config.Sound.Theme))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkPulse connects to the sound server and reads the default sink.
func checkPulse() Check {
	volume, err := platform.NewPulseVolume()
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	defer func() { _ = volume.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	percent, muted, err := volume.State(ctx)
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("default sink at %d percent", percent)
	if muted {
		message += " (muted)"
	}
	return Check{Name: "audio.output", Pass: true, Message: message}
}

// checkInputAccess verifies at least one keyboard event device can be
// opened for reading. Global hotkeys need membership in the input group.
func checkInputAccess() Check {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		return Check{Name: "input.devices", Pass: false, Message: "no event devices under /dev/input"}
	}

	denied := 0
	for _, path := range paths {
		fd, openErr := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if openErr != nil {
			denied++
			continue
		}
		_ = unix.Close(fd)
		return Check{Name: "input.devices", Pass: true, Message: fmt.Sprintf("readable (%s)", path)}
	}
	return Check{
		Name:    "input.devices",
		Pass:    false,
		Message: fmt.Sprintf("no readable device out of %d; add the user to the input group", denied),
	}
}

// checkThemeDir reports whether the configured sound theme exists.
func checkThemeDir(dir string) Check {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Check{Name: "sound.theme", Pass: false, Message: fmt.Sprintf("theme directory %q is missing", dir)}
	}
	return Check{Name: "sound.theme", Pass: true, Message: fmt.Sprintf("using %q", dir)}
}
