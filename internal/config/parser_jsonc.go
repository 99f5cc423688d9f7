package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Speech     *jsoncSpeech     `json:"speech"`
	Sound      *jsoncSound      `json:"sound"`
	Hotkeys    *jsoncHotkeys    `json:"hotkeys"`
	Navigation *jsoncNavigation `json:"navigation"`
	Status     *jsoncStatus     `json:"status"`

	PlaybackCmd *string `json:"playback_cmd"`
}

type jsoncSpeech struct {
	Enable    *bool   `json:"enable"`
	Voice     *string `json:"voice"`
	RateWPM   *int    `json:"rate_wpm"`
	Amplitude *int    `json:"amplitude"`
	Stereo    *bool   `json:"stereo"`
}

type jsoncSound struct {
	Enable *bool   `json:"enable"`
	Stereo *bool   `json:"stereo"`
	Theme  *string `json:"theme"`
}

type jsoncHotkeys struct {
	Toggle   *string `json:"toggle"`
	Up       *string `json:"up"`
	Down     *string `json:"down"`
	Left     *string `json:"left"`
	Right    *string `json:"right"`
	Activate *string `json:"activate"`
	Back     *string `json:"back"`
	Playback *string `json:"playback"`
}

type jsoncNavigation struct {
	AnnounceIndex     *bool `json:"announce_index"`
	AnnounceFirstItem *bool `json:"announce_first_item"`
	VerboseWidgets    *bool `json:"verbose_widgets"`
}

type jsoncStatus struct {
	IntervalMS *int `json:"interval_ms"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Speech != nil {
		if payload.Speech.Enable != nil {
			cfg.Speech.Enable = *payload.Speech.Enable
		}
		if payload.Speech.Voice != nil {
			cfg.Speech.Voice = strings.TrimSpace(*payload.Speech.Voice)
		}
		if payload.Speech.RateWPM != nil {
			cfg.Speech.RateWPM = *payload.Speech.RateWPM
		}
		if payload.Speech.Amplitude != nil {
			cfg.Speech.Amplitude = *payload.Speech.Amplitude
		}
		if payload.Speech.Stereo != nil {
			cfg.Speech.Stereo = *payload.Speech.Stereo
		}
	}

	if payload.Sound != nil {
		if payload.Sound.Enable != nil {
			cfg.Sound.Enable = *payload.Sound.Enable
		}
		if payload.Sound.Stereo != nil {
			cfg.Sound.Stereo = *payload.Sound.Stereo
		}
		if payload.Sound.Theme != nil {
			cfg.Sound.Theme = strings.TrimSpace(*payload.Sound.Theme)
		}
	}

	if payload.Hotkeys != nil {
		assign := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		assign(&cfg.Hotkeys.Toggle, payload.Hotkeys.Toggle)
		assign(&cfg.Hotkeys.Up, payload.Hotkeys.Up)
		assign(&cfg.Hotkeys.Down, payload.Hotkeys.Down)
		assign(&cfg.Hotkeys.Left, payload.Hotkeys.Left)
		assign(&cfg.Hotkeys.Right, payload.Hotkeys.Right)
		assign(&cfg.Hotkeys.Activate, payload.Hotkeys.Activate)
		assign(&cfg.Hotkeys.Back, payload.Hotkeys.Back)
		assign(&cfg.Hotkeys.Playback, payload.Hotkeys.Playback)
	}

	if payload.Navigation != nil {
		if payload.Navigation.AnnounceIndex != nil {
			cfg.Navigation.AnnounceIndex = *payload.Navigation.AnnounceIndex
		}
		if payload.Navigation.AnnounceFirstItem != nil {
			cfg.Navigation.AnnounceFirstItem = *payload.Navigation.AnnounceFirstItem
		}
		if payload.Navigation.VerboseWidgets != nil {
			cfg.Navigation.VerboseWidgets = *payload.Navigation.VerboseWidgets
		}
	}

	if payload.Status != nil && payload.Status.IntervalMS != nil {
		cfg.Status.IntervalMS = *payload.Status.IntervalMS
	}

	if payload.PlaybackCmd != nil {
		raw := *payload.PlaybackCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid playback_cmd: %w", err)
		}
		cfg.Playback = CommandConfig{Raw: raw, Argv: argv}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
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
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
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
