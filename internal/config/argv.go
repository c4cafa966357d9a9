package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// parseArgv splits a command line with POSIX shell quoting. A leading # disables the
// command, so "# wl-copy" keeps an example in the file without running it.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	argv, err := shellquote.Split(input)
	switch {
	case errors.Is(err, shellquote.UnterminatedEscapeError):
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case err != nil:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	if len(argv) == 0 {
		return nil, nil
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}

func expandArg(arg string, vars map[string]string) string {
	if !strings.Contains(arg, "{") {
		return arg
	}
	for name, value := range vars {
		arg = strings.ReplaceAll(arg, "{"+name+"}", value)
	}
	return arg
}
