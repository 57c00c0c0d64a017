package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AuthorizedRange is the invoice-number range granted by the tax authority,
// e.g. "000-001-01-00000001 al 000-001-01-00005000".
// End is zero when the descriptor names no upper bound.
type AuthorizedRange struct {
	Prefix string
	Start  int64
	End    int64
	Width  int
}

var (
	rangeSeparator = regexp.MustCompile(`(?i)\s+(?:al|a|hasta|-|–)\s+|\s*\.\.\s*`)
	trailingDigits = regexp.MustCompile(`^(.*?)(\d+)$`)
)

// ParseAuthorizedRange extracts prefix, start, width and optional end from a
// range descriptor. The prefix is everything before the last run of digits of
// the start number; the width is the length of that run.
func ParseAuthorizedRange(desc string) (AuthorizedRange, bool) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return AuthorizedRange{}, false
	}

	parts := rangeSeparator.Split(desc, 2)
	prefix, digits, ok := splitNumber(parts[0])
	if !ok {
		return AuthorizedRange{}, false
	}
	start, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return AuthorizedRange{}, false
	}

	r := AuthorizedRange{Prefix: prefix, Start: start, Width: len(digits)}
	if len(parts) == 2 {
		endPrefix, endDigits, ok := splitNumber(parts[1])
		if ok && endPrefix == prefix {
			if end, err := strconv.ParseInt(endDigits, 10, 64); err == nil && end >= start {
				r.End = end
			}
		}
	}
	return r, true
}

func splitNumber(s string) (prefix, digits string, ok bool) {
	m := trailingDigits.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Format renders n with the range prefix and zero-padded width.
func (r AuthorizedRange) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", r.Prefix, r.Width, n)
}

// Contains reports whether n lies within the range.
func (r AuthorizedRange) Contains(n int64) bool {
	return n >= r.Start && (r.End == 0 || n <= r.End)
}

// NextValue returns the numeric successor of lastIssued within the range.
// A previous number with another prefix or a non-numeric suffix restarts at Start.
func (r AuthorizedRange) NextValue(lastIssued string) int64 {
	if suffix, ok := strings.CutPrefix(lastIssued, r.Prefix); ok && suffix != "" {
		if n, err := strconv.ParseInt(suffix, 10, 64); err == nil && isDigits(suffix) && n+1 >= r.Start {
			return n + 1
		}
	}
	return r.Start
}

// Next formats the number that follows lastIssued, or fails when the range is used up.
func (r AuthorizedRange) Next(lastIssued string) (string, error) {
	n := r.NextValue(lastIssued)
	if !r.Contains(n) {
		return "", invalid(ErrRangeExhausted, "último número %s", lastIssued)
	}
	return r.Format(n), nil
}

// FallbackInvoiceNumber is used when no authorized range is configured.
func FallbackInvoiceNumber(now time.Time) string {
	return "F001-" + now.UTC().Format("20060102150405")
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
