// Package sla implements business-hour deadline arithmetic over calendars.
// Everything here is pure: no clocks, no I/O, safe for concurrent use.
package sla

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

// weekdayNames maps the wire encoding's lowercase day names to weekdays.
var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// DecodeSchedule parses the stored schedule JSON, shaped as
// {"monday":{"start":"09:00","end":"18:00"},...}. Unknown day names, bad
// "HH:MM" values and overnight windows (end not after start) make the whole
// schedule invalid; callers treat a decode failure as an empty (24/7)
// schedule.
func DecodeSchedule(raw string) (domain.WeekSchedule, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var wire map[string]domain.TimeWindow
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}

	schedule := make(domain.WeekSchedule, len(wire))
	for name, window := range wire {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("decode schedule: unknown weekday %q", name)
		}
		start, ok := parseClock(window.Start)
		if !ok {
			return nil, fmt.Errorf("decode schedule: bad start %q for %s", window.Start, name)
		}
		end, ok := parseClock(window.End)
		if !ok {
			return nil, fmt.Errorf("decode schedule: bad end %q for %s", window.End, name)
		}
		if end <= start {
			return nil, fmt.Errorf("decode schedule: window for %s must end after it starts", name)
		}
		schedule[day] = window
	}
	return schedule, nil
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// isOpenEnded reports whether the calendar imposes no working hours at all.
// A nil calendar and an empty schedule both mean every instant counts.
func isOpenEnded(cal *domain.BusinessCalendar) bool {
	return cal == nil || len(cal.Schedule) == 0
}

// location resolves the calendar's timezone, defaulting to UTC.
func location(cal *domain.BusinessCalendar) *time.Location {
	if cal == nil || cal.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cal.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// isHoliday checks the calendar's exceptions against a local date. Recurring
// holidays match on month and day, ignoring the year.
func isHoliday(cal *domain.BusinessCalendar, localDay time.Time) bool {
	y, m, d := localDay.Date()
	for _, h := range cal.Holidays {
		hy, hm, hd := h.Date.Date()
		if h.Recurring {
			if hm == m && hd == d {
				return true
			}
		} else if hy == y && hm == m && hd == d {
			return true
		}
	}
	return false
}

// windowOn returns the working window for the local day containing t, as
// instants in the calendar's timezone. A holiday or an unconfigured weekday
// yields no window.
func windowOn(cal *domain.BusinessCalendar, t time.Time) (start, end time.Time, ok bool) {
	if isHoliday(cal, t) {
		return time.Time{}, time.Time{}, false
	}
	window, configured := cal.Schedule[t.Weekday()]
	if !configured {
		return time.Time{}, time.Time{}, false
	}
	startMin, okStart := parseClock(window.Start)
	endMin, okEnd := parseClock(window.End)
	if !okStart || !okEnd {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := t.Date()
	start = time.Date(y, m, d, startMin/60, startMin%60, 0, 0, t.Location())
	end = time.Date(y, m, d, endMin/60, endMin%60, 0, 0, t.Location())
	return start, end, true
}

// nextDayScanLimit bounds forward scans for a qualifying business day. Past
// it the scan gives up and hands back whatever day it reached, mirroring the
// "unknown future schedule" contract.
const nextDayScanLimit = 14

// nextBusinessDayStart advances to the window start of the next day that has
// working hours, scanning at most nextDayScanLimit days ahead.
func nextBusinessDayStart(cal *domain.BusinessCalendar, from time.Time) time.Time {
	y, m, d := from.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, from.Location())

	for i := 0; i < nextDayScanLimit; i++ {
		if isHoliday(cal, next) {
			next = next.AddDate(0, 0, 1)
			continue
		}
		if start, _, ok := windowOn(cal, next); ok {
			return start
		}
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsWithinBusinessHours reports whether the instant falls inside a working
// window. With no calendar configured every instant qualifies.
func IsWithinBusinessHours(t time.Time, cal *domain.BusinessCalendar) bool {
	if isOpenEnded(cal) {
		return true
	}
	local := t.In(location(cal))
	start, end, ok := windowOn(cal, local)
	if !ok {
		return false
	}
	return !local.Before(start) && local.Before(end)
}

// NextBusinessHourStart returns the earliest instant at or after from that
// falls inside a working window, scanning up to nextDayScanLimit days ahead.
// When the scan finds nothing the input is returned unchanged.
func NextBusinessHourStart(from time.Time, cal *domain.BusinessCalendar) time.Time {
	if isOpenEnded(cal) {
		return from
	}
	if IsWithinBusinessHours(from, cal) {
		return from
	}

	current := from.In(location(cal))
	for i := 0; i < nextDayScanLimit; i++ {
		if !isHoliday(cal, current) {
			if start, end, ok := windowOn(cal, current); ok {
				if current.Before(start) {
					return start
				}
				if current.Before(end) {
					return current
				}
			}
		}
		y, m, d := current.Date()
		current = time.Date(y, m, d+1, 0, 0, 0, 0, current.Location())
	}
	return from
}
