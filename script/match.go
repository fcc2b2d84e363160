package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Match reports whether data matches request under the given mode. An empty
// mode falls back to DefaultMode. Regex patterns are implicitly anchored at
// both ends, so a pattern matching only a prefix of the data fails.
func Match(request string, mode Mode, data string) (bool, error) {
	if mode == "" {
		mode = DefaultMode
	}
	switch mode {
	case ModeVerbatim:
		return request == data, nil
	case ModeGlob:
		re, err := regexp.Compile(globRegexp(request))
		if err != nil {
			return false, fmt.Errorf("invalid glob %q: %w", request, err)
		}
		return re.MatchString(data), nil
	case ModeRegex:
		re, err := regexp.Compile(fmt.Sprintf(`^(?:%s)$`, request))
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", request, err)
		}
		return re.MatchString(data), nil
	}
	return false, fmt.Errorf("unknown match mode %q", mode)
}

// globRegexp translates a glob into an anchored regular expression. Only '*'
// and '?' are wildcards, everything else is literal. (?s) lets '*' cross
// newlines in joined multiline text.
func globRegexp(glob string) string {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return b.String()
}
