package parser

import (
	"strconv"
	"strings"
)

// parseFloat parses permissively: unparseable values become 0 and never
// reject a row.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseInt parses permissively, accepting float-formatted integers
// ("12.0") the way exported spreadsheets produce them.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// parseBool maps the usual truthy/falsy spellings. ok=false means the
// value is empty or unrecognized.
func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y":
		return true, true
	case "no", "false", "0", "n":
		return false, true
	}
	return false, false
}
