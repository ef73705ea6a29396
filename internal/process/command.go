package process

import (
	"errors"
	"strings"
)

// ParseCommand splits a command string into program and arguments.
// Single and double quotes group words; a backslash escapes the next rune.
func ParseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inWord := false
	var quote rune

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errors.New("unclosed quote in command")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
