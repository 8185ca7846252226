package flow

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validators are total over arbitrary text: they reject, never panic.

const (
	dateLayout = "02.01.2006"
	timeLayout = "15:04"
)

var (
	dateRe      = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	timeRe      = regexp.MustCompile(`^\d{2}:\d{2}$`)
	digitsRe    = regexp.MustCompile(`^\d+$`)
	znpSuffixRe = regexp.MustCompile(`^\d{4}$`)
	znpManualRe = regexp.MustCompile(`^[DLdl]\d{4}-\d{4}$`)
)

// ParseLine accepts an integer in [1,15].
func ParseLine(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 15 {
		return 0, false
	}
	return n, true
}

// ParseDate accepts a calendar-valid dd.mm.yyyy date and returns the
// normalized display form.
func ParseDate(s string) (string, bool) {
	if !dateRe.MatchString(s) {
		return "", false
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", false
	}
	return d.Format(dateLayout), true
}

// ParseTime accepts hh:mm with hour < 24 and minute < 60.
func ParseTime(s string) (string, bool) {
	if !timeRe.MatchString(s) {
		return "", false
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return "", false
	}
	return s, true
}

// ParseZNPSuffix accepts exactly 4 ASCII digits.
func ParseZNPSuffix(s string) (string, bool) {
	if !znpSuffixRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// ParseZNPManual accepts a full reference code ([D|L] + period stamp +
// "-" + sequence, case-insensitive) whose prefix is in the currently
// valid set. The stored form is upper-case.
func ParseZNPManual(s string, validPrefixes []string) (string, bool) {
	if !znpManualRe.MatchString(s) {
		return "", false
	}
	code := strings.ToUpper(s)
	prefix := code[:5]
	for _, p := range validPrefixes {
		if prefix == p {
			return code, true
		}
	}
	return "", false
}

// ParseScrapMeters accepts a non-negative integer string.
func ParseScrapMeters(s string) (int, bool) {
	if !digitsRe.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
