package editor

import (
	"fmt"
	"strconv"
	"strings"
)

// The remote-expr round trips wrap every expression in the vimscript string()
// function, whose serialization is simple: numbers print bare, strings are
// single-quoted with embedded quotes doubled, lists are bracketed and
// comma-separated. These decoders cover exactly the shapes the session asks
// for.

// decodeNumber parses a bare vim number.
func decodeNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("editor returned %q where a number was expected", raw)
	}
	return n, nil
}

// decodeString parses a single-quoted vim string literal.
func decodeString(raw string) (string, error) {
	value, rest, err := scanString(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(rest) != "" {
		return "", malformedValue(raw)
	}
	return value, nil
}

// decodeStringList parses a vim list of string literals.
func decodeStringList(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, malformedValue(raw)
	}
	s = s[1 : len(s)-1]

	var values []string
	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return values, nil
		}
		value, rest, err := scanString(s)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			return values, nil
		}
		if !strings.HasPrefix(rest, ",") {
			return nil, malformedValue(raw)
		}
		s = rest[1:]
	}
}

// scanString consumes one quoted literal off the front of s and returns the
// remainder. Doubled quotes inside the literal stand for one quote.
func scanString(s string) (string, string, error) {
	if !strings.HasPrefix(s, "'") {
		return "", "", malformedValue(s)
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return b.String(), s[i+1:], nil
	}
	return "", "", malformedValue(s)
}

func malformedValue(raw string) error {
	return fmt.Errorf("failed to deserialize editor value %q", raw)
}
