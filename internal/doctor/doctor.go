// Package doctor runs runtime readiness diagnostics for config, storage, tools, audio, and the daemon.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/audio"
	"github.com/daxxac/talk-tile-buddy/internal/config"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/rpc"
	"github.com/daxxac/talk-tile-buddy/internal/storage"
)

const probeTimeout = 300 * time.Millisecond

// Check is one doctor assertion result.
type Check struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Message string `json:"message"`
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check `json:"checks"`
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

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkStorage(ctx, cfg))

	if cfg.Config.Speech.Enabled() {
		checks = append(checks, checkCommand(cfg.Config.Speech.Argv, "speech_cmd"))
	} else {
		checks = append(checks, Check{Name: "speech_cmd", Pass: true, Message: "not configured; speak copies text only"})
	}
	if cfg.Config.Clipboard.Enabled() {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}

	feedbackCfg := cfg.Config.Feedback
	if feedbackCfg.SoundEnable {
		if feedbackCfg.SelectFile != "" || feedbackCfg.SpeakFile != "" || feedbackCfg.ClearFile != "" {
			checks = append(checks, checkBinary("pw-play", "cue files play through pw-play"))
		}
		checks = append(checks, checkAudioSelection(ctx))
	}

	socketPath, daemon := checkDaemon(ctx)
	checks = append(checks, daemon)
	if cfg.Config.GRPC.Enable && socketPath != "" {
		checks = append(checks, checkGRPC(ctx, cfg.Config.GRPC.Listen))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if n := len(cfg.Warnings); n > 0 {
		message = fmt.Sprintf("%s with %d warning(s)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkStorage inspects the board database without creating one.
func checkStorage(ctx context.Context, cfg config.Loaded) Check {
	path := cfg.StoragePath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Check{Name: "storage", Pass: true, Message: fmt.Sprintf("%s not created yet; first run seeds the board", path)}
	} else if err != nil {
		return Check{Name: "storage", Pass: false, Message: err.Error()}
	}

	db, err := storage.Open(path, cfg.Config.Storage.Key)
	if err != nil {
		return Check{Name: "storage", Pass: false, Message: err.Error()}
	}
	defer db.Close()

	info, err := db.Stat(ctx)
	if err != nil {
		return Check{Name: "storage", Pass: false, Message: err.Error()}
	}
	if !info.Exists {
		return Check{Name: "storage", Pass: true, Message: fmt.Sprintf("%s has no %q record yet", path, info.Key)}
	}
	return Check{Name: "storage", Pass: true, Message: fmt.Sprintf(
		"%s: %q schema v%d, %d bytes, updated %s",
		path, info.Key, info.SchemaVersion, info.Bytes, info.UpdatedAt.Format(time.RFC3339),
	)}
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

// checkAudioSelection resolves the sink cues will play on.
func checkAudioSelection(ctx context.Context) Check {
	selection, err := audio.SelectDevice(ctx, "default")
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkDaemon reports whether a daemon answers on the runtime socket. The returned path is
// empty when none does.
func checkDaemon(ctx context.Context) (string, Check) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return "", Check{Name: "daemon", Pass: false, Message: err.Error()}
	}
	alive, err := ipc.Probe(ctx, socketPath, probeTimeout)
	if err != nil {
		return "", Check{Name: "daemon", Pass: false, Message: err.Error()}
	}
	if !alive {
		return "", Check{Name: "daemon", Pass: true, Message: "not running; commands open the board directly"}
	}
	return socketPath, Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("running on %s", socketPath)}
}

// checkGRPC asks the daemon's health service whether the board is serving.
func checkGRPC(ctx context.Context, addr string) Check {
	client, err := rpc.Dial(ctx, addr, time.Second)
	if err != nil {
		return Check{Name: "grpc", Pass: false, Message: fmt.Sprintf("dial %s: %v", addr, err)}
	}
	defer client.Close()

	serving, err := client.Serving(ctx)
	if err != nil {
		return Check{Name: "grpc", Pass: false, Message: err.Error()}
	}
	if !serving {
		return Check{Name: "grpc", Pass: false, Message: fmt.Sprintf("%s reachable but board is not serving", addr)}
	}
	return Check{Name: "grpc", Pass: true, Message: fmt.Sprintf("board serving on %s", addr)}
}
