package uba

import (
	"fmt"
	"strings"
	"time"
)

const stationTimeLayout = "2006-01-02 15:04:05"

// FixedOffsetLocation turns an offset like "+0100" into a fixed location.
// The API reports station-local time with a constant offset, not DST-aware,
// so a fixed zone is the correct model.
func FixedOffsetLocation(offset string) (*time.Location, error) {
	t, err := time.Parse("-0700", offset)
	if err != nil {
		return nil, fmt.Errorf("utc offset %q: %w", offset, err)
	}
	_, secs := t.Zone()
	return time.FixedZone(offset, secs), nil
}

// ParseStationTime parses "YYYY-MM-DD HH:MM:SS" in the given fixed-offset
// location. Hour "24" is the source's hour-ending notation for the last
// hourly bucket of that calendar day: it is rewritten to "00", parsed as
// midnight of the same date and shifted forward 23 hours, landing on
// 23:00:00 of the original date.
func ParseStationTime(s string, loc *time.Location) (time.Time, error) {
	if len(s) != len(stationTimeLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q: want layout %q", s, stationTimeLayout)
	}

	shift := time.Duration(0)
	if strings.HasPrefix(s[11:], "24:") {
		s = s[:11] + "00" + s[13:]
		shift = 23 * time.Hour
	}

	t, err := time.ParseInLocation(stationTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(shift), nil
}

// FormatStationTime renders t in the station-local layout the API itself
// uses.
func FormatStationTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(stationTimeLayout)
}

// HourEndingFrom maps an instant to the date and 1-24 hour parameter that
// selects the hourly bucket covering it, for the lower bound of a fetch
// window. Local hour 0 belongs to bucket 24 of the previous day.
func HourEndingFrom(t time.Time) (string, int) {
	h := t.Hour()
	if h == 0 {
		return t.AddDate(0, 0, -1).Format("2006-01-02"), 24
	}
	return t.Format("2006-01-02"), h
}

// HourEndingTo maps an instant to the date and hour parameter for the upper
// bound of a fetch window: the bucket that will contain the instant once it
// completes. Hour 23 rounds up to bucket 24 of the same date.
func HourEndingTo(t time.Time) (string, int) {
	return t.Format("2006-01-02"), t.Hour() + 1
}
