package mcp

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ParseCommand splits a configured server command line into the executable
// and its arguments. Single and double quotes group words; backslash escapes
// the next rune outside single quotes.
func ParseCommand(line string) (string, []string, error) {
	fields, err := splitCommandLine(line)
	if err != nil {
		return "", nil, err
	}
	if len(fields) == 0 {
		return "", nil, errors.New("mcp: empty command line")
	}
	return fields[0], fields[1:], nil
}

func splitCommandLine(line string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		quote   rune
		escaped bool
		pending bool
	)

	flush := func() {
		if pending || current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
			pending = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			pending = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			pending = true
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}

	if escaped {
		return nil, errors.New("mcp: trailing backslash in command line")
	}
	if quote != 0 {
		return nil, fmt.Errorf("mcp: unterminated %q quote in command line", quote)
	}
	flush()
	return fields, nil
}
