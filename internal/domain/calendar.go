package domain

import "time"

// TimeWindow is one working window on a local day, in 24-hour "HH:MM" local
// time. End must be strictly later than Start on the same day; overnight
// windows are not supported.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeekSchedule maps a weekday to its working window. An absent weekday means
// no business hours that day. An empty schedule means the calendar imposes no
// hours at all (24/7).
type WeekSchedule map[time.Weekday]TimeWindow

// BusinessCalendar is a named recurring weekly schedule with a timezone and
// holiday exceptions.
type BusinessCalendar struct {
	ID       string
	Name     string
	Timezone string
	Schedule WeekSchedule
	Holidays []Holiday
}

// Holiday removes one date (or one month/day every year, when Recurring) from
// the calendar's working days.
type Holiday struct {
	ID         string
	CalendarID string
	Name       string
	Date       time.Time
	Recurring  bool
}
