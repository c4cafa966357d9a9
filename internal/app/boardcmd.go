package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/backup"
	"github.com/daxxac/talk-tile-buddy/internal/cli"
	"github.com/daxxac/talk-tile-buddy/internal/config"
	"github.com/daxxac/talk-tile-buddy/internal/feedback"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/pin"
	"github.com/daxxac/talk-tile-buddy/internal/session"
)

const (
	forwardTimeout      = 2 * time.Second
	forwardSpeakTimeout = 35 * time.Second
)

var errCancelled = errors.New("cancelled")

// commandBoard runs one board command against the daemon, or against a board opened in
// this process when no daemon is running.
func (r Runner) commandBoard(ctx context.Context, loaded config.Loaded, parsed cli.Parsed, logger *slog.Logger) int {
	req, err := r.buildRequest(parsed)
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if parsed.CaregiverPINGiven {
		req.CaregiverPIN = &parsed.CaregiverPIN
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		logger.Debug("runtime socket unavailable; using local board", "error", err.Error())
	}
	link := &boardLink{socketPath: socketPath, loaded: loaded, logger: logger, fbOpts: r.Feedback}
	defer func() {
		if err := link.Close(); err != nil {
			logger.Error("close local board failed", "error", err.Error())
		}
	}()

	resp, err := link.send(ctx, req)
	if err == nil {
		resp, err = r.retryWithPIN(ctx, link, parsed, req, resp)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("board command failed", "command", parsed.Command, "error", err.Error())
		return 1
	}

	logger.Info("board command",
		"command", parsed.Command,
		"ok", resp.OK,
		"state", resp.State,
		"local", link.isLocal(),
	)
	if link.isLocal() && sessionOnly(parsed.Command) {
		fmt.Fprintln(r.Stderr, "warning: no tilebuddy daemon is running; the sentence is not kept between commands")
	}

	if !resp.OK {
		if parsed.JSON {
			r.printJSON(resp)
		}
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Err())
		return 1
	}

	if parsed.Command == "export" {
		return r.writeExport(parsed, resp)
	}
	if parsed.JSON {
		r.printJSON(resp)
		return 0
	}
	r.render(parsed.Command, resp)
	return 0
}

// buildRequest turns parsed arguments into a request, reading files and prompting
// where the command needs it.
func (r Runner) buildRequest(parsed cli.Parsed) (ipc.Request, error) {
	command := string(parsed.Command)

	switch command {
	case "import":
		doc, err := r.readImport(parsed.File)
		if err != nil {
			return ipc.Request{}, err
		}
		return ipc.NewRequest(command, session.Document{Body: string(doc)})
	case "reset":
		if !parsed.Yes {
			if !r.interactive() {
				return ipc.Request{}, errors.New("reset replaces the whole board; pass --yes to confirm")
			}
			ok, err := r.prompter().Confirm("Replace the whole board with the built-in vocabulary?", false)
			if err != nil {
				return ipc.Request{}, err
			}
			if !ok {
				return ipc.Request{}, errCancelled
			}
		}
	case "pin.set":
		newPIN := parsed.PIN
		if !parsed.PINGiven {
			if !r.interactive() {
				return ipc.Request{}, errors.New("pin set: pass --pin when stdin is not a terminal")
			}
			var err error
			if newPIN, err = r.askNewPIN(); err != nil {
				return ipc.Request{}, err
			}
		}
		return ipc.NewRequest(command, session.PINPayload{PIN: newPIN, Current: parsed.CurrentPIN})
	case "caregiver.toggle":
		if parsed.PINGiven {
			return ipc.NewRequest(command, session.PINPayload{PIN: parsed.PIN})
		}
	}

	return ipc.NewRequest(command, parsed.RequestPayload(), parsed.Args...)
}

func (r Runner) askNewPIN() (string, error) {
	first, err := r.prompter().Password(fmt.Sprintf("New caregiver PIN (%d-%d digits):", pin.MinLength, pin.MaxLength))
	if err != nil {
		return "", err
	}
	if err := pin.Validate(first); err != nil {
		return "", err
	}
	second, err := r.prompter().Password("Repeat PIN:")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("PINs do not match")
	}
	return first, nil
}

// retryWithPIN asks for the PIN once when the board refused a command for lack of one.
func (r Runner) retryWithPIN(ctx context.Context, link *boardLink, parsed cli.Parsed, req ipc.Request, resp ipc.Response) (ipc.Response, error) {
	if resp.OK || !r.interactive() {
		return resp, nil
	}
	if strings.Contains(resp.Error, session.ErrCaregiverRequired.Error()) {
		if req.CaregiverPIN != nil {
			return resp, nil
		}
		entered, err := r.prompter().Password("Caregiver PIN:")
		if err != nil {
			return ipc.Response{}, err
		}
		retry := req
		retry.CaregiverPIN = &entered
		return link.send(ctx, retry)
	}
	if !strings.Contains(resp.Error, pin.ErrRequired.Error()) {
		return resp, nil
	}

	var payload session.PINPayload
	switch parsed.Command {
	case "caregiver.toggle":
		if parsed.PINGiven {
			return resp, nil
		}
		entered, err := r.prompter().Password("Caregiver PIN:")
		if err != nil {
			return ipc.Response{}, err
		}
		payload.PIN = entered
	case "pin.set":
		if parsed.CurrentPIN != "" {
			return resp, nil
		}
		if err := req.Decode(&payload); err != nil {
			return ipc.Response{}, err
		}
		current, err := r.prompter().Password("Current PIN:")
		if err != nil {
			return ipc.Response{}, err
		}
		payload.Current = current
	default:
		return resp, nil
	}

	retry, err := ipc.NewRequest(req.Command, payload)
	if err != nil {
		return ipc.Response{}, err
	}
	return link.send(ctx, retry)
}

func (r Runner) readImport(path string) ([]byte, error) {
	if path != "-" {
		return backup.Read(path)
	}
	data, err := io.ReadAll(io.LimitReader(r.stdin(), backup.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	doc, err := backup.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode stdin: %w", err)
	}
	return doc, nil
}

func (r Runner) writeExport(parsed cli.Parsed, resp ipc.Response) int {
	var doc session.Document
	if err := resp.Decode(&doc); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if parsed.File == "" || parsed.File == "-" {
		fmt.Fprintln(r.Stdout, doc.Body)
		return 0
	}
	if err := backup.Write(parsed.File, []byte(doc.Body)); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if parsed.JSON {
		r.printJSON(map[string]any{"ok": true, "path": parsed.File, "compressed": strings.HasSuffix(parsed.File, backup.CompressedExt)})
		return 0
	}
	fmt.Fprintf(r.Stdout, "exported board to %s\n", parsed.File)
	return 0
}

// sessionOnly lists commands whose effect lives only as long as the serving process.
func sessionOnly(command cli.Command) bool {
	name := string(command)
	return name == "speak" || name == "sentence" || strings.HasPrefix(name, "sentence.")
}

// boardLink sends board commands to the daemon, or to a board opened in this process
// when no daemon answers.
type boardLink struct {
	socketPath string
	loaded     config.Loaded
	logger     *slog.Logger
	fbOpts     feedback.Options
	local      *boardStack
}

func (b *boardLink) send(ctx context.Context, req ipc.Request) (ipc.Response, error) {
	if b.local == nil && b.socketPath != "" {
		resp, handled, err := tryForward(ctx, b.socketPath, req)
		if handled {
			return resp, err
		}
	}

	if b.local == nil {
		board, err := openBoard(b.loaded, b.logger, b.fbOpts)
		if err != nil {
			return ipc.Response{}, err
		}
		logBootstrapResult(b.logger, board.boot.Run(ctx))
		b.local = board
	}
	return b.local.controller.Handle(ctx, req), nil
}

func (b *boardLink) isLocal() bool {
	return b.local != nil
}

func (b *boardLink) Close() error {
	if b.local == nil {
		return nil
	}
	return b.local.Close()
}

// tryForward sends req to the daemon. handled is false when no daemon owns the socket.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	timeout := forwardTimeout
	if req.Command == "speak" {
		timeout = forwardSpeakTimeout
	}

	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		return resp, true, nil
	}
	if ipc.Unreachable(err) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
