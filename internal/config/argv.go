package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a command setting such as playback_cmd into an exec argv.
// Commands run without a shell, so the common shell conveniences are honored
// here instead: single and double quotes group words, backslash escapes the
// next rune. A line starting with # is a commented-out command and yields nil.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv   []string
		word   strings.Builder
		quote  rune
		escape bool
	)

	emit := func() {
		if word.Len() > 0 {
			argv = append(argv, word.String())
			word.Reset()
		}
	}

	for _, r := range input {
		switch {
		case escape:
			word.WriteRune(r)
			escape = false
		case r == '\\':
			escape = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case unicode.IsSpace(r):
			emit()
		default:
			word.WriteRune(r)
		}
	}

	if escape {
		return nil, fmt.Errorf("unterminated escape in command: %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}

	emit()
	return argv, nil
}

// mustParseArgv is for built-in command defaults, which are known valid.
func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
