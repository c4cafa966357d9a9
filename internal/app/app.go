package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/audio"
	"github.com/daxxac/talk-tile-buddy/internal/cli"
	"github.com/daxxac/talk-tile-buddy/internal/config"
	"github.com/daxxac/talk-tile-buddy/internal/doctor"
	"github.com/daxxac/talk-tile-buddy/internal/feedback"
	"github.com/daxxac/talk-tile-buddy/internal/logging"
	"github.com/daxxac/talk-tile-buddy/internal/rpc"
	"github.com/daxxac/talk-tile-buddy/internal/store"
	"github.com/daxxac/talk-tile-buddy/internal/version"
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Prompter asks for PINs and confirmations; nil uses terminal prompts.
	Prompter Prompter
	// Interactive reports whether prompts may be shown; nil checks whether stdin is a terminal.
	Interactive func() bool
	// Feedback overrides the cue player and notifier of opened boards.
	Feedback feedback.Options
	// Ready, when set, receives the daemon's socket path once serve is accepting commands.
	Ready func(socketPath string)
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText())
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, parsed.Help)
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.SlogLevel())
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		if !cfgLoaded.Exists && parsed.Command != cli.CommandDoctor {
			// A missing file is the normal first-run case; doctor still reports it.
			logger.Info("config warning", "line", w.Line, "message", w.Message)
			continue
		}
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
		"storage", cfgLoaded.StoragePath,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		if parsed.JSON {
			r.printJSON(report)
		} else {
			fmt.Fprintln(r.Stdout, report.String())
		}
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, parsed)
	case cli.CommandWatch:
		return r.commandWatch(ctx, cfgLoaded.Config, parsed)
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded, logger)
	default:
		return r.commandBoard(ctx, cfgLoaded, parsed, logger)
	}
}

func (r Runner) commandDevices(ctx context.Context, parsed cli.Parsed) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if parsed.JSON {
		r.printJSON(devices)
		if len(devices) == 0 {
			return 1
		}
		return 0
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output devices found")
		return 1
	}

	newView(r.Stdout).devices(devices)
	return 0
}

// commandWatch prints one line per board change until interrupted.
func (r Runner) commandWatch(ctx context.Context, cfg config.Config, parsed cli.Parsed) int {
	if !cfg.GRPC.Enable {
		fmt.Fprintln(r.Stderr, "error: watch needs grpc.enable in config")
		return 1
	}

	client, err := rpc.Dial(ctx, cfg.GRPC.Listen, 2*time.Second)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: no tilebuddy daemon on %s: %v\n", cfg.GRPC.Listen, err)
		return 1
	}
	defer func() { _ = client.Close() }()

	err = client.Watch(ctx, func(change store.Change) {
		if parsed.JSON {
			line, _ := json.Marshal(change)
			fmt.Fprintln(r.Stdout, string(line))
			return
		}
		kind := "transient"
		if change.Durable {
			kind = "durable"
		}
		fmt.Fprintf(r.Stdout, "%d %s %s\n", change.Seq, change.Op, kind)
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) printJSON(v any) {
	enc := json.NewEncoder(r.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (r Runner) stdin() io.Reader {
	if r.Stdin == nil {
		return os.Stdin
	}
	return r.Stdin
}
