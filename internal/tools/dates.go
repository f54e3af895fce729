package tools

import (
	"regexp"
	"time"
)

const dayLayout = "2006-01-02"

var dayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// dayArg validates an optional YYYY-MM-DD argument.
func dayArg(args map[string]any, name string) (string, error) {
	s := stringArg(args, name)
	if s == "" {
		return "", nil
	}
	if !dayRe.MatchString(s) {
		return "", invalidArgument{name, "expected YYYY-MM-DD"}
	}
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", invalidArgument{name, "not a calendar date"}
	}
	return s, nil
}

// localDay formats t's calendar date in its own location.
func localDay(t time.Time) string {
	return t.Format(dayLayout)
}

// dayStart and dayEnd turn a calendar day into the inclusive UTC bounds
// Linear filters on.
func dayStart(day string) string { return day + "T00:00:00.000Z" }
func dayEnd(day string) string   { return day + "T23:59:59.999Z" }
