package resource

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OpenWindow is one open interval within a day, as "HH:MM" wall-clock times.
// Close may be "24:00" to mean end of day.
type OpenWindow struct {
	Open  string `json:"open" validate:"required,hhmm"`
	Close string `json:"close" validate:"required,hhmm"`
}

// WeeklySchedule maps lowercase weekday names ("monday") to that day's open windows.
// A nil or empty schedule means the resource declares no opening hours.
type WeeklySchedule map[string][]OpenWindow

type minuteRange struct{ from, to int }

// ParseClock converts "HH:MM" into minutes after midnight. "24:00" is accepted.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[3:])
	if errH != nil || errM != nil || m < 0 || m > 59 || h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return h*60 + m, nil
}

// Validate checks day names and that every window opens before it closes.
func (s WeeklySchedule) Validate() error {
	for day, windows := range s {
		if _, ok := weekdayByName[strings.ToLower(day)]; !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}
		for _, w := range windows {
			open, err := ParseClock(w.Open)
			if err != nil {
				return err
			}
			closeAt, err := ParseClock(w.Close)
			if err != nil {
				return err
			}
			if closeAt <= open {
				return fmt.Errorf("window %s-%s on %s closes before it opens", w.Open, w.Close, day)
			}
		}
	}
	return nil
}

// IsDeclared reports whether any opening hours are declared.
func (s WeeklySchedule) IsDeclared() bool {
	for _, windows := range s {
		if len(windows) > 0 {
			return true
		}
	}
	return false
}

// Covers reports whether [start, end) falls inside open hours on every calendar
// day it spans, evaluated in loc. Adjacent windows are merged, so 08:00-12:00 and
// 12:00-18:00 cover 11:00-13:00.
func (s WeeklySchedule) Covers(start, end time.Time, loc *time.Location) bool {
	if !end.After(start) {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}

	cursor := start.In(loc)
	last := end.In(loc)
	for cursor.Before(last) {
		dayStart := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, loc)
		nextDay := dayStart.AddDate(0, 0, 1)

		segEnd := last
		if nextDay.Before(last) {
			segEnd = nextDay
		}

		from := floorMinutes(cursor)
		to := ceilMinutes(segEnd)
		if segEnd.Equal(nextDay) {
			to = 24 * 60
		}

		if !s.coversSegment(cursor.Weekday(), from, to) {
			return false
		}
		cursor = segEnd
	}
	return true
}

func (s WeeklySchedule) coversSegment(day time.Weekday, from, to int) bool {
	for _, r := range s.mergedRanges(day) {
		if from >= r.from && to <= r.to {
			return true
		}
	}
	return false
}

func (s WeeklySchedule) mergedRanges(day time.Weekday) []minuteRange {
	var ranges []minuteRange
	for name, windows := range s {
		if weekdayByName[strings.ToLower(name)] != day {
			continue
		}
		for _, w := range windows {
			open, err1 := ParseClock(w.Open)
			closeAt, err2 := ParseClock(w.Close)
			if err1 != nil || err2 != nil || closeAt <= open {
				continue
			}
			ranges = append(ranges, minuteRange{from: open, to: closeAt})
		}
	}
	if len(ranges) == 0 {
		return nil
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].from < ranges[j].from })
	merged := []minuteRange{ranges[0]}
	for _, r := range ranges[1:] {
		tail := &merged[len(merged)-1]
		if r.from <= tail.to {
			if r.to > tail.to {
				tail.to = r.to
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func floorMinutes(t time.Time) int {
	h, m, _ := t.Clock()
	return h*60 + m
}

// ceilMinutes rounds partial minutes up so 18:00:30 does not fit an 18:00 close.
func ceilMinutes(t time.Time) int {
	minutes := floorMinutes(t)
	if t.Second() > 0 || t.Nanosecond() > 0 {
		minutes++
	}
	return minutes
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}
