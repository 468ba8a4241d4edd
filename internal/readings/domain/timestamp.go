package readings

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Raw rows carry local timestamps as "D.M.YYYY HH:MM:SS" in this timezone.
const localTimezone = "Europe/Zurich"

var localTZ = func() *time.Location {
	loc, err := time.LoadLocation(localTimezone)
	if err != nil {
		panic(fmt.Sprintf("readings: load %s: %v", localTimezone, err))
	}
	return loc
}()

var rawTimestampRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{2}):(\d{2})$`)

// ParseLocalTimestamp parses a raw "D.M.YYYY HH:MM:SS" timestamp and
// resolves the repeated hour of the autumn DST transition against the
// meter's previously resolved timestamp (zero when none).
//
// Local clocks repeat one hour when DST ends. The first occurrence of an
// ambiguous wall-clock time is taken as-is; when the parsed time does not
// advance past prev and falls inside the repeated hour, it is reinterpreted
// as the second (standard-time) occurrence, which renders one hour later in
// the naive representation. If that still does not advance it is pushed
// forward another hour. The per-meter sequence of resolved naive timestamps
// is therefore strictly increasing across the transition.
//
// The result is a naive wall-clock time carried in time.UTC, ready for
// storage via TimestampLayout. The second return value reports whether a
// DST adjustment was applied.
func ParseLocalTimestamp(raw string, prev time.Time) (time.Time, bool, error) {
	m := rawTimestampRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false, fmt.Errorf("readings: timestamp %q does not match D.M.YYYY HH:MM:SS", raw)
	}

	day := atoi(m[1])
	month := atoi(m[2])
	year := atoi(m[3])
	hour := atoi(m[4])
	minute := atoi(m[5])
	second := atoi(m[6])

	naive := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if naive.Day() != day || int(naive.Month()) != month || naive.Hour() != hour {
		return time.Time{}, false, fmt.Errorf("readings: timestamp %q is not a valid date", raw)
	}

	if prev.IsZero() || naive.After(prev) {
		return naive, false, nil
	}
	if !isRepeatedHour(year, month, day, hour, minute, second) {
		// plain duplicate, left for last-wins deduplication
		return naive, false, nil
	}

	// second occurrence of the repeated hour
	naive = naive.Add(time.Hour)
	if !naive.After(prev) {
		naive = naive.Add(time.Hour)
	}
	return naive, true, nil
}

// isRepeatedHour reports whether the local wall-clock time occurs twice,
// i.e. lies inside the hour repeated by the autumn transition.
func isRepeatedHour(year, month, day, hour, minute, second int) bool {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, localTZ)
	if sameWallClock(t.Add(-time.Hour), day, hour, minute) {
		return true
	}
	return sameWallClock(t.Add(time.Hour), day, hour, minute)
}

func sameWallClock(t time.Time, day, hour, minute int) bool {
	return t.Day() == day && t.Hour() == hour && t.Minute() == minute
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
