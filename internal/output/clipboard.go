// Package output voices transcripts and mirrors them to the clipboard through configured commands.
package output

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const clipboardTimeout = 2 * time.Second

// Clipboard copies text through a configured command reading stdin.
type Clipboard struct {
	argv []string
}

// NewClipboard returns a clipboard writer; empty argv disables it.
func NewClipboard(argv []string) *Clipboard {
	return &Clipboard{argv: append([]string(nil), argv...)}
}

// Enabled reports whether a clipboard command is configured.
func (c *Clipboard) Enabled() bool {
	return c != nil && len(c.argv) > 0
}

// Copy writes text to the clipboard. Disabled clipboards and empty text are no-ops.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if !c.Enabled() || text == "" {
		return nil
	}

	copyCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(copyCtx, c.argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv, writes input to stdin, and folds stderr into errors.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("wait for %s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
