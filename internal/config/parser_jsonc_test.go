package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true, // trailing
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.Len(t, normalized, len(input))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, []any{"one", "two"}, decoded["items"])
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text, ]",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */ text, ]")

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
}

func TestNormalizeJSONCKeepsInteriorCommas(t *testing.T) {
	normalized, err := normalizeJSONC(`[1, 2 ,3]`)
	require.NoError(t, err)
	require.Equal(t, `[1, 2 ,3]`, normalized)
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.ErrorContains(t, err, "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.ErrorContains(t, err, "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8)
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"clipboard_cmd":"unterminated ' quote"}`, Default())
	require.ErrorContains(t, err, "invalid clipboard_cmd")

	_, _, err = parseJSONC(`{"speech_cmd":"unterminated ' quote"}`, Default())
	require.ErrorContains(t, err, "invalid speech_cmd")
}

func TestParseJSONCRejectsUnknownKeys(t *testing.T) {
	_, _, err := parseJSONC(`{"board": {"columns": 3}}`, Default())
	require.ErrorContains(t, err, "unknown field")
}

func TestParseJSONCTrimsFeedbackAndStorageFields(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "storage": {"key": "  custom-key  "},
  "feedback": {"app_name": "  tilebuddy-kiosk  ", "sound_enable": false}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "custom-key", cfg.Storage.Key)
	require.Equal(t, "tilebuddy-kiosk", cfg.Feedback.AppName)
	require.False(t, cfg.Feedback.SoundEnable)
}

func TestParseJSONCClipboardCommand(t *testing.T) {
	cfg, _, err := parseJSONC(`{"clipboard_cmd": "wl-copy --trim-newline"}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"wl-copy", "--trim-newline"}, cfg.Clipboard.Argv)
}

func TestParseJSONCBoardLanguage(t *testing.T) {
	tests := []struct {
		raw  string
		env  string
		want board.Language
	}{
		{raw: "ru", want: board.LanguageRussian},
		{raw: "he-IL", want: board.LanguageHebrew},
		{raw: "en_GB", want: board.LanguageEnglish},
		{raw: "auto", env: "ru_RU.UTF-8", want: board.LanguageRussian},
		{raw: "auto", env: "C", want: board.PivotLanguage},
		{raw: "fr", want: board.Language("fr")},
	}

	for _, tc := range tests {
		t.Run(tc.raw+"/"+tc.env, func(t *testing.T) {
			t.Setenv("LC_ALL", "")
			t.Setenv("LC_MESSAGES", "")
			t.Setenv("LANG", tc.env)

			cfg, _, err := parseJSONC(`{"board": {"language": "`+tc.raw+`"}}`, Default())
			require.NoError(t, err)
			require.Equal(t, tc.want, cfg.Board.Language)
		})
	}
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"grpc":{"enable":false}}{"grpc":{"enable":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorPointsAtOriginalLine(t *testing.T) {
	_, _, err := parseJSONC(`{
  // comment lines keep their offsets
  "board": {"grid_cols": "wide"}
}`, Default())
	require.ErrorContains(t, err, "line 3")
	require.ErrorContains(t, err, "column")
}
