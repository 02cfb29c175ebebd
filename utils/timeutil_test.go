package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		expMins int
		expOK   bool
	}{
		{name: "simple time", input: "08:30", expMins: 8*60 + 30, expOK: true},
		{name: "single digit hour", input: "9:05", expMins: 9*60 + 5, expOK: true},
		{name: "with seconds", input: "13:45:00", expMins: 13*60 + 45, expOK: true},
		{name: "end of day", input: "24:00", expMins: 1440, expOK: true},
		{name: "iso datetime", input: "2007-11-30T00:00:00+07:00", expMins: 0, expOK: true},
		{name: "mysql datetime", input: "2007-11-30 13:45:00", expMins: 13*60 + 45, expOK: true},
		{name: "time with trailing zone", input: "09:15:00Z", expMins: 9*60 + 15, expOK: true},
		{name: "empty", input: "", expOK: false},
		{name: "garbage", input: "invalid", expOK: false},
		{name: "minute out of range", input: "10:75", expOK: false},
		{name: "hour out of range", input: "25:00", expOK: false},
		{name: "past end of day", input: "24:01", expOK: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m, ok := ParseClock(tc.input)
			assert.Equal(t, tc.expOK, ok)
			if tc.expOK {
				assert.Equal(t, tc.expMins, m)
			} else {
				assert.Equal(t, 0, m)
			}
		})
	}
}

func TestTimeToMinutesNeverFails(t *testing.T) {
	assert.Equal(t, 0, TimeToMinutes("nonsense"))
	assert.Equal(t, 0, TimeToMinutes(""))
	assert.Equal(t, 570, TimeToMinutes("09:30"))
}

func TestMinutesRoundTrip(t *testing.T) {
	for m := 0; m < 1440; m++ {
		s := MinutesToTime(m)
		if got := TimeToMinutes(s); got != m {
			t.Fatalf("round trip %d -> %s -> %d", m, s, got)
		}
	}
}

func TestMinutesToTimeClamps(t *testing.T) {
	assert.Equal(t, "00:00", MinutesToTime(-30))
	assert.Equal(t, "23:59", MinutesToTime(1440))
	assert.Equal(t, "23:59", MinutesToTime(5000))
}

func TestOverlaps(t *testing.T) {
	nine, ten, eleven := 540, 600, 660
	assert.True(t, Overlaps(nine, ten, 570, 630), "partial overlap")
	assert.True(t, Overlaps(nine, eleven, 570, 600), "containment")
	assert.False(t, Overlaps(nine, ten, ten, eleven), "back to back")
	assert.False(t, Overlaps(ten, eleven, nine, ten), "back to back reversed")

	// exhaustive check against a minute-by-minute definition
	for s1 := 0; s1 < 12; s1++ {
		for e1 := s1 + 1; e1 <= 12; e1++ {
			for s2 := 0; s2 < 12; s2++ {
				for e2 := s2 + 1; e2 <= 12; e2++ {
					shared := false
					for m := s1; m < e1; m++ {
						if m >= s2 && m < e2 {
							shared = true
						}
					}
					if Overlaps(s1, e1, s2, e2) != shared {
						t.Fatalf("[%d,%d) vs [%d,%d): expected %v", s1, e1, s2, e2, shared)
					}
				}
			}
		}
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "2:30 PM", FormatTime("14:30"))
	assert.Equal(t, "12:00 AM", FormatTime("00:00"))
	assert.Equal(t, "12:15 PM", FormatTime("12:15"))
	assert.Equal(t, Placeholder, FormatTime(""))
	assert.Equal(t, Placeholder, FormatTime("later"))

	assert.Equal(t, "Mon, Jun 10, 2024", FormatDate("2024-06-10"))
	assert.Equal(t, Placeholder, FormatDate(""))
	assert.Equal(t, Placeholder, FormatDate("2024-13-40"))
}

func TestStaticTables(t *testing.T) {
	assert.Equal(t, "Saturday", WeekdayName(6))
	assert.Equal(t, "", WeekdayName(7))

	zones := SupportedTimezones()
	zones[0] = "Mars/Olympus"
	assert.True(t, IsSupportedTimezone("UTC"), "callers must not mutate the shared table")
	assert.False(t, IsSupportedTimezone("Mars/Olympus"))
}
