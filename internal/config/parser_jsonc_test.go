package config

import (
	"encoding/json"
	"strings"
	"testing"

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
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestParseJSONCOverlaysOntoDefaults(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  // slow down speech, keep everything else stock
  "speech": {"rate_wpm": 140, "voice": " en-gb "},
  "navigation": {"announce_index": true},
  "hotkeys": {"toggle": " super+space "},
}`, Default())
	require.NoError(t, err)
	require.Equal(t, 140, cfg.Speech.RateWPM)
	require.Equal(t, "en-gb", cfg.Speech.Voice)
	require.True(t, cfg.Speech.Enable, "untouched fields keep defaults")
	require.True(t, cfg.Navigation.AnnounceIndex)
	require.True(t, cfg.Navigation.AnnounceFirstItem)
	require.Equal(t, "super+space", cfg.Hotkeys.Toggle)
	require.Equal(t, Default().Hotkeys.Up, cfg.Hotkeys.Up)
}

func TestParseJSONCRejectsInvalidPlaybackArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"playback_cmd":"unterminated ' quote"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid playback_cmd")
}

func TestParseJSONCRejectsUnknownFields(t *testing.T) {
	_, _, err := parseJSONC(`{"speach": {"enable": true}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"sound":{"enable":false}}{"sound":{"enable":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "speech": {"rate_wpm": "fast"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
	require.Contains(t, err.Error(), "column")
}
