// Package app is the process-level runner: it parses the CLI, sets up
// logging and config, and either forwards a command to the running service
// over the control socket or becomes the service itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/awrona/veil/internal/cli"
	"github.com/awrona/veil/internal/config"
	"github.com/awrona/veil/internal/cue"
	"github.com/awrona/veil/internal/directory"
	"github.com/awrona/veil/internal/doctor"
	"github.com/awrona/veil/internal/engine"
	"github.com/awrona/veil/internal/feedback"
	"github.com/awrona/veil/internal/hotkey"
	"github.com/awrona/veil/internal/ipc"
	"github.com/awrona/veil/internal/logging"
	"github.com/awrona/veil/internal/nav"
	"github.com/awrona/veil/internal/platform"
	"github.com/awrona/veil/internal/speech"
	"github.com/awrona/veil/internal/status"
	"github.com/awrona/veil/internal/version"
	"github.com/awrona/veil/internal/widget"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("veil"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("veil"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandToggle:
		return r.forwardOrFail(ctx, "toggle")
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if !handled {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !resp.Active {
		fmt.Fprintln(r.Stdout, "inactive")
		return 0
	}
	fmt.Fprintf(r.Stdout, "active | %s | %s > %s\n", resp.Mode, resp.Category, resp.Element)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: veil is not running (start it with `veil run`)\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun acquires the control socket, assembles the engine, and serves
// until a signal or a stop request arrives.
func (r Runner) commandRun(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: veil is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	cfg := loaded.Config
	chords, err := config.ParseChords(cfg.Hotkeys)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	dataDir, err := config.DataDir()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	store := config.NewStore(loaded)
	registry := buildRegistry(dataDir, cfg, logger)
	sources, closers := buildStatusSources(dataDir, logger)
	poller := status.NewPoller(sources, time.Duration(cfg.Status.IntervalMS)*time.Millisecond, logger)
	defer func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}()

	speaker := speech.NewSpeaker(speech.Config{
		Voice:     cfg.Speech.Voice,
		RateWPM:   cfg.Speech.RateWPM,
		Amplitude: cfg.Speech.Amplitude,
	}, logger)
	audio := feedback.New(speaker, cue.NewPlayer(cfg.Sound.Theme), engine.FeedbackOptions(cfg), logger)
	dispatcher := hotkey.NewDispatcher(hotkey.NewEvdevHook(logger), logger)

	eng := engine.New(engine.Deps{
		Store:     store,
		Chords:    chords,
		Audio:     audio,
		Bindings:  dispatcher,
		Poller:    poller,
		Widgets:   registry,
		Launchers: directory.New(dataDir, logger),
		Logger:    logger,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controlHandler(eng, cancelRun))
	}()

	if err := eng.Start(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("engine start failed", "error", err.Error())
		eng.Stop()
		serverCancel()
		<-serverErrCh
		return 1
	}

	fmt.Fprintln(r.Stdout, "veil running")
	logger.Info("service started", "socket", socketPath)

	<-runCtx.Done()
	eng.Stop()
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("service stopped")
	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

// controlHandler answers the socket protocol against a live engine.
func controlHandler(eng *engine.Engine, shutdown func()) ipc.HandlerFunc {
	return func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case "toggle":
			eng.Toggle()
			active, state := eng.Status()
			message := "navigation off"
			if active {
				message = "navigation on"
			}
			return statusResponse(active, state, message)
		case "status":
			active, state := eng.Status()
			return statusResponse(active, state, "")
		case "stop":
			shutdown()
			return ipc.Response{OK: true, Message: "stopping"}
		default:
			return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
		}
	}
}

func statusResponse(active bool, state nav.State, message string) ipc.Response {
	return ipc.Response{
		OK:       true,
		Active:   active,
		Mode:     state.Mode.String(),
		Category: state.Category,
		Element:  state.Element,
		Message:  message,
	}
}

// buildRegistry assembles the widget registry: applets from the data
// directory plus the built-in system widgets. Built-in factories dial their
// backend per session so a dead daemon only fails that one open.
func buildRegistry(dataDir string, cfg config.Config, logger *slog.Logger) *widget.Registry {
	registry := widget.NewRegistry(filepath.Join(dataDir, "applets"), cfg.Navigation.VerboseWidgets, logger)

	registry.RegisterBuiltin("Volume", "system", func() (nav.Widget, error) {
		svc, err := platform.NewPulseVolume()
		if err != nil {
			return nil, fmt.Errorf("connect to sound server: %w", err)
		}
		return widget.NewVolumeWidget(svc, registry.Verbose())
	})
	registry.RegisterBuiltin("Network", "system", func() (nav.Widget, error) {
		svc, err := platform.NewNetworkManager()
		if err != nil {
			return nil, fmt.Errorf("connect to NetworkManager: %w", err)
		}
		return widget.NewNetworkWidget(svc, registry.Verbose())
	})
	return registry
}

// buildStatusSources wires the built-in status readouts plus any applet
// sources under <dataDir>/status. A backend that is not reachable at
// startup is skipped with a warning rather than failing the service.
func buildStatusSources(dataDir string, logger *slog.Logger) ([]status.Source, []io.Closer) {
	sources := []status.Source{&status.ClockSource{}}
	var closers []io.Closer

	if battery, err := platform.NewBattery(); err != nil {
		logger.Warn("battery status unavailable", "error", err.Error())
	} else {
		sources = append(sources, status.NewFuncSource("Battery", battery.Status))
		closers = append(closers, closerFunc(battery.Close))
	}

	if volume, err := platform.NewPulseVolume(); err != nil {
		logger.Warn("volume status unavailable", "error", err.Error())
	} else {
		sources = append(sources, status.NewFuncSource("Volume", func(ctx context.Context) (string, error) {
			percent, muted, err := volume.State(ctx)
			if err != nil {
				return "", err
			}
			if muted {
				return "Muted", nil
			}
			return fmt.Sprintf("Volume %d percent", percent), nil
		}))
		closers = append(closers, closerFunc(volume.Close))
	}

	if network, err := platform.NewNetworkManager(); err != nil {
		logger.Warn("network status unavailable", "error", err.Error())
	} else {
		sources = append(sources, status.NewFuncSource("Network", network.Status))
		closers = append(closers, closerFunc(network.Close))
	}

	applets, errs := status.LoadExecSources(filepath.Join(dataDir, "status"))
	for _, loadErr := range errs {
		logger.Warn("status applet skipped", "error", loadErr.Error())
	}
	sources = append(sources, applets...)

	return sources, closers
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
