// Package app parses the command line and runs either the widget or a one-shot command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/cli"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/doctor"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/logging"
	"github.com/rbright/parley/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Getenv resolves API keys; nil uses os.Getenv.
	Getenv func(string) string
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("parley"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("parley"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New(parsed.Verbose)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	if parsed.Command.Remote() {
		return r.forward(ctx, parsed, logger)
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		r.warn(logger, w)
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
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) warn(logger *slog.Logger, w config.Warning) {
	msg := w.Message
	if w.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
	logger.Warn("config warning", "line", w.Line, "message", w.Message)
}

func (r Runner) getenv(name string) string {
	if r.Getenv != nil {
		return r.Getenv(name)
	}
	return os.Getenv(name)
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// forward sends a remote command to the running widget.
func (r Runner) forward(ctx context.Context, parsed cli.Parsed, logger *slog.Logger) int {
	req := ipc.Request{Command: string(parsed.Command), Text: parsed.Text}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		if parsed.Command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "not running")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		if parsed.Command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "not running")
			return 0
		}
		fmt.Fprintln(r.Stderr, "error: no running parley widget")
		return 1
	}
	if err != nil {
		logger.Warn("remote command failed", "command", req.Command, "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if parsed.Command == cli.CommandStatus {
		fmt.Fprintln(r.Stdout, formatStatus(resp))
		return 0
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = stateIdle
	}
	if resp.Status == nil {
		return state
	}
	panel := "closed"
	if resp.Status.PanelOpen {
		panel = "open"
	}
	return fmt.Sprintf("%s (panel=%s, messages=%d)", state, panel, resp.Status.Messages)
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
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
