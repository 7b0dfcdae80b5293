package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidClock = errors.New("time must be in hh:mm AM/PM format")

	clockRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)
)

// ParseClock converts a "hh:mm AM/PM" time of day to minutes since midnight.
// 12 AM is midnight (0) and 12 PM is noon (720).
func ParseClock(s string) (int, error) {
	m := clockRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, ErrInvalidClock
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours < 1 || hours > 12 || minutes > 59 {
		return 0, ErrInvalidClock
	}

	hours %= 12
	if strings.EqualFold(m[3], "pm") {
		hours += 12
	}
	return hours*60 + minutes, nil
}

// FormatClock formats minutes since midnight as "hh:mm AM/PM".
func FormatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	hours, mins := minutes/60, minutes%60
	suffix := "AM"
	if hours >= 12 {
		suffix = "PM"
	}
	hours %= 12
	if hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%02d:%02d %s", hours, mins, suffix)
}

// NormalizeClock rewrites a valid time in canonical form (eg. "9:05 pm" -> "09:05 PM");
// invalid times are returned trimmed.
func NormalizeClock(s string) string {
	minutes, err := ParseClock(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return FormatClock(minutes)
}
