package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the naive calendar date format used on every row.
	DateLayout = "2006-01-02"
	// Placeholder is rendered wherever a time or date cannot be displayed.
	Placeholder = "—"

	minutesPerDay = 24 * 60
)

var clockPattern = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`)

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var supportedTimezones = []string{
	"UTC",
	"Asia/Kolkata",
	"Asia/Bangkok",
	"Asia/Singapore",
	"Asia/Dubai",
	"Asia/Tokyo",
	"Australia/Sydney",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Paris",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
}

// ParseClock parses "H:MM", "HH:MM" or "HH:MM:SS" into minutes after
// midnight. "24:00" is accepted as the end of day (1440). Datetime strings are
// tolerated and reduced to their clock part. ok is false for anything else.
func ParseClock(value string) (minutes int, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	parts := strings.Split(value, ":")
	if len(parts) == 2 || len(parts) == 3 {
		if m, valid := clockParts(parts); valid {
			return m, true
		}
	}

	fallbackLayouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
	}
	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Hour()*60 + parsed.Minute(), true
		}
	}

	if match := clockPattern.FindString(value); match != "" && match != value {
		return ParseClock(match)
	}
	return 0, false
}

func clockParts(parts []string) (int, bool) {
	nums := make([]int, len(parts))
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}
	if len(parts[1]) != 2 || nums[1] > 59 {
		return 0, false
	}
	if len(nums) == 3 && nums[2] > 59 {
		return 0, false
	}
	if nums[0] > 24 || (nums[0] == 24 && (nums[1] != 0 || (len(nums) == 3 && nums[2] != 0))) {
		return 0, false
	}
	return nums[0]*60 + nums[1], true
}

// TimeToMinutes converts "HH:MM" to minutes in [0,1440]. Malformed input
// yields 0 so derivation code can keep doing arithmetic.
func TimeToMinutes(value string) int {
	m, _ := ParseClock(value)
	return m
}

// MinutesToTime formats minutes as "HH:MM", clamping to [0,1439].
func MinutesToTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > minutesPerDay-1 {
		minutes = minutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock rewrites a parseable clock value as "HH:MM"; other input is
// returned trimmed and unchanged.
func NormalizeClock(value string) string {
	if m, ok := ParseClock(value); ok {
		if m == minutesPerDay {
			return "24:00"
		}
		return MinutesToTime(m)
	}
	return strings.TrimSpace(value)
}

// DurationMinutes is end minus start. Either side malformed counts as 0.
func DurationMinutes(start, end string) int {
	return TimeToMinutes(end) - TimeToMinutes(start)
}

// Overlaps reports whether [s1,e1) and [s2,e2) share at least one minute.
// Back-to-back intervals do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && e1 > s2
}

// FormatTime renders "14:30" as "2:30 PM".
func FormatTime(value string) string {
	m, ok := ParseClock(value)
	if !ok {
		return Placeholder
	}
	if m == minutesPerDay {
		m = 0
	}
	h := m / 60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m%60, suffix)
}

// ParseDate parses a naive "YYYY-MM-DD" date at UTC midnight.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(value) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
		value = value[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatISODate renders t as "YYYY-MM-DD".
func FormatISODate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDate renders "2024-06-10" as "Mon, Jun 10, 2024".
func FormatDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return Placeholder
	}
	return t.Format("Mon, Jan 2, 2006")
}

// WeekdayName returns the English day name for index 0 (Sunday) to 6.
func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayNames[day]
}

// SupportedTimezones returns a copy of the selectable IANA zone names.
func SupportedTimezones() []string {
	out := make([]string, len(supportedTimezones))
	copy(out, supportedTimezones)
	return out
}

func IsSupportedTimezone(tz string) bool {
	for _, z := range supportedTimezones {
		if z == tz {
			return true
		}
	}
	return false
}
