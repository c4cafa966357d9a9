package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/backup"
	"github.com/daxxac/talk-tile-buddy/internal/doctor"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/pin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	pin.Cost = bcrypt.MinCost
}

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "tilebuddy")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteInvalidConfigFails(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(`{"board": {"language": "fr"}}`), 0o600))

	res := paths.run(t, Runner{}, "status")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "board.language")
}

func TestRunnerLocalStatusSeedsBoard(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "status")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "ready")
	require.Contains(t, res.stdout, "seeded")
	require.Empty(t, res.stderr)

	res = paths.run(t, Runner{}, "status")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "loaded")
}

func TestRunnerJSONStatus(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "--json", "status")
	require.Equal(t, 0, res.code, res.stderr)

	var resp ipc.Response
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.True(t, resp.OK)
	require.Equal(t, "ready", resp.State)

	var status struct {
		Categories int    `json:"categories"`
		Language   string `json:"language"`
	}
	require.NoError(t, resp.Decode(&status))
	require.Positive(t, status.Categories)
	require.Equal(t, "en", status.Language)
}

func TestRunnerCategoriesTable(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "categories")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "core-words")
	require.Contains(t, res.stdout, "Core Words")
	require.Contains(t, res.stdout, "NAME")
}

func TestRunnerTileEditsPersistAcrossInvocations(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "--caregiver-pin", "", "tile", "add", "Pizza", "--category", "food", "--image", "🍕", "--translation", "ru=пицца")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "tile added: ")

	res = paths.run(t, Runner{}, "tiles", "food")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Pizza")

	res = paths.run(t, Runner{}, "prefs", "set", "--language", "ru")
	require.Equal(t, 0, res.code, res.stderr)

	res = paths.run(t, Runner{}, "search", "пицца")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "пицца")
}

func TestRunnerLocalSentenceWarnsItIsNotKept(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "sentence", "add", "tile-i")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "0. I")
	require.Contains(t, res.stderr, "not kept between commands")
}

func TestRunnerUnknownTileFails(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "sentence", "add", "no-such-tile")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, `unknown tile "no-such-tile"`)
}

func TestRunnerExportResetImport(t *testing.T) {
	paths := setupRunnerEnv(t)
	backupPath := filepath.Join(t.TempDir(), "board.json.xz")

	res := paths.run(t, Runner{}, "caregiver")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Caregiver mode on")

	res = paths.run(t, Runner{}, "tile", "add", "Pizza", "--category", "food")
	require.Equal(t, 0, res.code, res.stderr)

	res = paths.run(t, Runner{}, "export", backupPath)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "exported board to")

	raw, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	require.True(t, backup.IsCompressed(raw))

	res = paths.run(t, Runner{}, "reset", "--yes")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Board restored")

	res = paths.run(t, Runner{}, "search", "pizza")
	require.Equal(t, 0, res.code, res.stderr)
	require.NotContains(t, res.stdout, "Pizza")

	res = paths.run(t, Runner{}, "import", backupPath)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Board imported")

	res = paths.run(t, Runner{}, "search", "pizza")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Pizza")
}

func TestRunnerExportToStdoutAndImportFromStdin(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "export")
	require.Equal(t, 0, res.code, res.stderr)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	require.Contains(t, doc, "categories")

	res = paths.run(t, Runner{Stdin: strings.NewReader(res.stdout)}, "import", "-", "--caregiver-pin=")
	require.Equal(t, 0, res.code, res.stderr)

	res = paths.run(t, Runner{Stdin: strings.NewReader("not json")}, "import", "-", "--caregiver-pin=")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "invalid import payload")
}

func TestRunnerResetConfirmation(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{Interactive: func() bool { return false }}, "reset")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "pass --yes")

	prompter := &fakePrompter{confirm: false}
	res = paths.run(t, Runner{Prompter: prompter, Interactive: func() bool { return true }}, "reset")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "cancelled\n", res.stdout)
	require.Len(t, prompter.asked, 1)

	prompter = &fakePrompter{confirm: true, passwords: []string{""}}
	res = paths.run(t, Runner{Prompter: prompter, Interactive: func() bool { return true }}, "reset")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Board restored")
	require.Equal(t, "Caregiver PIN:", prompter.asked[len(prompter.asked)-1])
}

func TestRunnerBoardEditsNeedCaregiver(t *testing.T) {
	paths := setupRunnerEnv(t)
	interactive := func() bool { return true }

	res := paths.run(t, Runner{}, "pin", "set", "--pin", "1234")
	require.Equal(t, 0, res.code, res.stderr)

	res = paths.run(t, Runner{}, "category", "delete", "food")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "caregiver mode required")

	wrong := &fakePrompter{passwords: []string{"0000"}}
	res = paths.run(t, Runner{Prompter: wrong, Interactive: interactive}, "category", "delete", "food")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "incorrect PIN")
	require.Equal(t, []string{"Caregiver PIN:"}, wrong.asked)

	given := &fakePrompter{}
	res = paths.run(t, Runner{Prompter: given, Interactive: interactive}, "category", "delete", "food", "--caregiver-pin", "0000")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "incorrect PIN")
	require.Empty(t, given.asked)

	right := &fakePrompter{passwords: []string{"1234"}}
	res = paths.run(t, Runner{Prompter: right, Interactive: interactive}, "category", "delete", "food")
	require.Equal(t, 0, res.code, res.stderr)

	res = paths.run(t, Runner{}, "--caregiver-pin", "1234", "category", "delete", "people")
	require.Equal(t, 0, res.code, res.stderr)

	res = paths.run(t, Runner{}, "categories")
	require.Equal(t, 0, res.code, res.stderr)
	require.NotContains(t, res.stdout, "food")
	require.NotContains(t, res.stdout, "people")

	// the child can still mark favorites
	res = paths.run(t, Runner{}, "tile", "favorite", "tile-i")
	require.Equal(t, 0, res.code, res.stderr)
}

func TestRunnerCaregiverPromptsForPIN(t *testing.T) {
	paths := setupRunnerEnv(t)
	notInteractive := func() bool { return false }
	interactive := func() bool { return true }

	res := paths.run(t, Runner{Interactive: notInteractive}, "pin", "set", "--pin", "1234")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "PIN set")

	res = paths.run(t, Runner{Interactive: notInteractive}, "caregiver")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "PIN required")

	prompter := &fakePrompter{passwords: []string{"1234"}}
	res = paths.run(t, Runner{Prompter: prompter, Interactive: interactive}, "caregiver")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Caregiver mode on")
	require.Equal(t, []string{"Caregiver PIN:"}, prompter.asked)

	// leaving caregiver mode never asks for the PIN
	res = paths.run(t, Runner{Interactive: notInteractive}, "caregiver")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Caregiver mode off")
}

func TestRunnerPINSetPromptsForNewAndCurrent(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "pin", "set", "--pin", "1234")
	require.Equal(t, 0, res.code, res.stderr)

	prompter := &fakePrompter{passwords: []string{"4321", "4321", "1234"}}
	res = paths.run(t, Runner{Prompter: prompter, Interactive: func() bool { return true }}, "pin", "set")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "PIN set")
	require.Len(t, prompter.asked, 3)
	require.Equal(t, "Current PIN:", prompter.asked[2])

	res = paths.run(t, Runner{}, "caregiver", "--pin", "4321")
	require.Equal(t, 0, res.code, res.stderr)

	mismatched := &fakePrompter{passwords: []string{"1111", "2222"}}
	res = paths.run(t, Runner{Prompter: mismatched, Interactive: func() bool { return true }}, "pin", "set")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "PINs do not match")
}

func TestRunnerForwardsCommandsToDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 4)

	shutdown := startIPCServerForRunnerTest(t, paths.socketPath(t), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		switch req.Command {
		case "tile.update":
			return ipc.Success("ready", "tile updated", nil)
		case "contrast":
			return ipc.Success("ready", "", map[string]bool{"highContrast": true})
		default:
			return ipc.Failure("ready", errors.New("unsupported"))
		}
	})
	defer shutdown()

	res := paths.run(t, Runner{}, "tile", "update", "t1", "--label", "Hi")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "tile updated\n", res.stdout)

	req := <-requests
	require.Equal(t, "tile.update", req.Command)
	require.Equal(t, []string{"t1"}, req.Args)
	require.JSONEq(t, `{"label":"Hi"}`, string(req.Payload))

	res = paths.run(t, Runner{}, "contrast", "on")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, `"highContrast": true`)
	require.Equal(t, "contrast", (<-requests).Command)

	res = paths.run(t, Runner{}, "speak")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "unsupported")
	require.NotContains(t, res.stderr, "not kept")
}

func TestRunnerServeHandlesForwardedCommands(t *testing.T) {
	paths := setupRunnerEnv(t)
	paths.writeConfig(t, `"grpc": {"enable": true, "listen": "127.0.0.1:0"},`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	var serveOut, serveErr bytes.Buffer
	server := Runner{Stdout: &serveOut, Stderr: &serveErr, Ready: func(socketPath string) { ready <- socketPath }}
	done := make(chan int, 1)
	go func() {
		done <- server.Execute(ctx, []string{"--config", paths.configPath, "serve"})
	}()

	var socketPath string
	select {
	case socketPath = <-ready:
	case code := <-done:
		t.Fatalf("serve exited early with %d: %s", code, serveErr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not become ready")
	}
	require.Equal(t, paths.socketPath(t), socketPath)

	res := paths.run(t, Runner{}, "sentence", "add", "tile-i", "tile-want")
	require.Equal(t, 0, res.code, res.stderr)
	require.NotContains(t, res.stderr, "not kept")

	res = paths.run(t, Runner{}, "sentence")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "0. I")

	res = paths.run(t, Runner{}, "speak")
	require.Equal(t, 0, res.code, res.stderr)
	spoken, err := os.ReadFile(paths.speechLog)
	require.NoError(t, err)
	require.Contains(t, string(spoken), "lang=en")
	require.Contains(t, string(spoken), "I ")

	res = paths.run(t, Runner{}, "serve")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "already running")

	cancel()
	select {
	case code := <-done:
		require.Equal(t, 0, code, serveErr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "tilebuddy.sock")

	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		if req.Command == "status" {
			return ipc.Response{OK: true, State: "ready"}
		}
		return ipc.Response{OK: false, Error: "unsupported"}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "ready", resp.State)

	resp, handled, err = tryForward(context.Background(), socketPath, ipc.Request{Command: "reset"})
	require.True(t, handled)
	require.NoError(t, err)
	require.False(t, resp.OK)
	require.ErrorContains(t, resp.Err(), "unsupported")
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "tilebuddy.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "tilebuddy.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestRunnerDoctorJSON(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "--json", "doctor")
	require.Equal(t, 0, res.code, res.stdout)

	var report doctor.Report
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	require.True(t, report.OK())
	require.Equal(t, "config", report.Checks[0].Name)
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	res := paths.run(t, Runner{}, "devices")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "error:")
}

func TestRunnerWatchNeedsGRPC(t *testing.T) {
	paths := setupRunnerEnv(t)

	res := paths.run(t, Runner{}, "watch")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "grpc.enable")
}

type fakePrompter struct {
	passwords []string
	confirm   bool
	asked     []string
}

func (p *fakePrompter) Password(message string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.passwords) == 0 {
		return "", fmt.Errorf("unexpected prompt %q", message)
	}
	answer := p.passwords[0]
	p.passwords = p.passwords[1:]
	return answer, nil
}

func (p *fakePrompter) Confirm(message string, _ bool) (bool, error) {
	p.asked = append(p.asked, message)
	return p.confirm, nil
}

type runnerPaths struct {
	configPath  string
	storagePath string
	speechCmd   string
	speechLog   string
}

type runResult struct {
	code   int
	stdout string
	stderr string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	dir := t.TempDir()
	paths := runnerPaths{
		configPath:  filepath.Join(dir, "config.jsonc"),
		storagePath: filepath.Join(dir, "board.db"),
		speechCmd:   filepath.Join(dir, "speak-stub"),
		speechLog:   filepath.Join(dir, "spoken.txt"),
	}
	script := fmt.Sprintf("#!/usr/bin/env bash\nprintf 'lang=%%s ' \"$2\" >> %q\ncat >> %q\necho >> %q\n",
		paths.speechLog, paths.speechLog, paths.speechLog)
	require.NoError(t, os.WriteFile(paths.speechCmd, []byte(script), 0o755))

	paths.writeConfig(t, `"grpc": {"enable": false},`)
	return paths
}

func (p runnerPaths) writeConfig(t *testing.T, extra string) {
	t.Helper()
	content := fmt.Sprintf(`{
  // test board
  "storage": {"path": %q},
  "feedback": {"sound_enable": false, "notify": false},
  "speech_cmd": %q,
  %s
}
`, p.storagePath, p.speechCmd+" --lang {lang}", extra)
	require.NoError(t, os.WriteFile(p.configPath, []byte(content), 0o600))
}

func (p runnerPaths) socketPath(t *testing.T) string {
	t.Helper()
	path, err := ipc.RuntimeSocketPath()
	require.NoError(t, err)
	return path
}

func (p runnerPaths) run(t *testing.T, runner Runner, args ...string) runResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	runner.Stdout = &stdout
	runner.Stderr = &stderr
	if runner.Stdin == nil {
		runner.Stdin = strings.NewReader("")
	}
	if runner.Interactive == nil {
		runner.Interactive = func() bool { return false }
	}

	code := runner.Execute(context.Background(), append([]string{"--config", p.configPath}, args...))
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler), nil)
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
