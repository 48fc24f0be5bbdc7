package sla

import (
	"time"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

// walkLimit caps the total number of day steps a calculation will take. A
// calendar whose every day is a holiday would otherwise walk forever; past
// the cap the current instant is returned as a best-effort answer.
const walkLimit = 740

// CalculateDueDate walks forward from start through the calendar's working
// windows until targetMinutes of business time have been consumed. With no
// calendar (or an empty schedule) this is plain minute addition. Zero or
// negative targets return start unchanged.
func CalculateDueDate(start time.Time, targetMinutes int, cal *domain.BusinessCalendar) time.Time {
	if targetMinutes <= 0 {
		return start
	}
	if isOpenEnded(cal) {
		return start.Add(time.Duration(targetMinutes) * time.Minute)
	}

	current := start.In(location(cal))
	remaining := targetMinutes

	for steps := 0; remaining > 0 && steps < walkLimit; steps++ {
		windowStart, windowEnd, ok := windowOn(cal, current)
		if !ok {
			current = nextBusinessDayStart(cal, current)
			continue
		}

		if current.Before(windowStart) {
			current = windowStart
		}
		if !current.Before(windowEnd) {
			current = nextBusinessDayStart(cal, current)
			continue
		}

		availableToday := int(windowEnd.Sub(current) / time.Minute)
		if remaining <= availableToday {
			current = current.Add(time.Duration(remaining) * time.Minute)
			remaining = 0
		} else {
			remaining -= availableToday
			current = nextBusinessDayStart(cal, current)
		}
	}

	return current
}

// CalculateElapsedMinutes counts the business minutes between start and end.
// Each qualifying day contributes the overlap of [start-of-window,
// end-of-window] with [current, end]; weekends and holidays contribute
// nothing. With no calendar this reduces to the plain duration.
func CalculateElapsedMinutes(start, end time.Time, cal *domain.BusinessCalendar) int {
	if !end.After(start) {
		return 0
	}
	if isOpenEnded(cal) {
		return int(end.Sub(start) / time.Minute)
	}

	loc := location(cal)
	current := start.In(loc)
	stop := end.In(loc)
	total := 0

	for steps := 0; current.Before(stop) && steps < walkLimit; steps++ {
		windowStart, windowEnd, ok := windowOn(cal, current)
		if !ok {
			current = nextBusinessDayStart(cal, current)
			continue
		}

		if current.Before(windowStart) {
			current = windowStart
		}
		if !current.Before(windowEnd) {
			current = nextBusinessDayStart(cal, current)
			continue
		}

		effectiveEnd := windowEnd
		if stop.Before(windowEnd) {
			effectiveEnd = stop
		}
		if effectiveEnd.After(current) {
			total += int(effectiveEnd.Sub(current) / time.Minute)
		}
		if !stop.After(windowEnd) {
			break
		}
		current = nextBusinessDayStart(cal, current)
	}

	return total
}
