package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// normalizeJSONC blanks comments and trailing commas in place. Every byte keeps its
// offset so decoder errors still point at the right line and column.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)

	const (
		code = iota
		str
		lineComment
		blockComment
	)
	mode := code
	escape := false
	// lastComma is the offset of a comma not yet followed by a value, or -1.
	lastComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch mode {
		case str:
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				mode = code
			}
		case lineComment:
			if ch == '\n' || ch == '\r' {
				mode = code
				continue
			}
			out[i] = ' '
		case blockComment:
			if ch == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				mode = code
				continue
			}
			if ch != '\n' && ch != '\r' && ch != '\t' {
				out[i] = ' '
			}
		default:
			switch {
			case ch == '/' && i+1 < len(out) && out[i+1] == '/':
				out[i], out[i+1] = ' ', ' '
				i++
				mode = lineComment
			case ch == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i], out[i+1] = ' ', ' '
				i++
				mode = blockComment
			case ch == ',':
				lastComma = i
			case ch == '}' || ch == ']':
				if lastComma >= 0 {
					out[lastComma] = ' '
				}
				lastComma = -1
			case isJSONWhitespace(ch):
			default:
				if ch == '"' {
					mode = str
				}
				lastComma = -1
			}
		}
	}

	if mode == blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return string(out), nil
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))
	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
