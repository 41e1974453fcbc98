package moderation

import (
	"errors"
	"fmt"
	"strings"
)

var ErrParseFailed = errors.New("parse_failed")

var severities = map[string]bool{"low": true, "medium": true, "high": true}

// ParseVerdict reads the one-line classifier protocol: "ALLOW", or
// "BLOCK|reason|suggestion|severity". Model output sometimes carries extra
// prose or blank lines, so the first line that matches the protocol wins.
func ParseVerdict(text string) (Verdict, error) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "ALLOW") {
			return Verdict{Allowed: true}, nil
		}
		if !strings.HasPrefix(strings.ToUpper(line), "BLOCK") {
			continue
		}
		fields := strings.Split(line, "|")
		v := Verdict{Allowed: false, Severity: "medium"}
		if len(fields) > 1 {
			v.Reason = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			v.Suggestion = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			sev := strings.ToLower(strings.TrimSpace(fields[3]))
			if severities[sev] {
				v.Severity = sev
			}
		}
		if v.Reason == "" {
			v.Reason = "content not allowed"
		}
		return v, nil
	}
	return Verdict{}, fmt.Errorf("%w: no verdict line in %q", ErrParseFailed, firstChars(text, 80))
}

func firstChars(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > n {
		return s[:n]
	}
	return s
}
