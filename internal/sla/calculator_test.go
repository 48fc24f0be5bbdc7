package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

func TestCalculateDueDateOpenEnded(t *testing.T) {
	start := time.Date(2026, 1, 10, 3, 30, 0, 0, time.UTC) // a Saturday

	assert.Equal(t, start.Add(2*time.Hour), CalculateDueDate(start, 120, nil))
	assert.Equal(t, start.Add(2*time.Hour), CalculateDueDate(start, 120, &domain.BusinessCalendar{Timezone: "UTC"}))
}

func TestCalculateDueDateZeroOrNegative(t *testing.T) {
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, start, CalculateDueDate(start, 0, businessWeekCalendar()))
	assert.Equal(t, start, CalculateDueDate(start, -30, businessWeekCalendar()))
}

func TestCalculateDueDateBusinessWeek(t *testing.T) {
	cal := businessWeekCalendar()

	t.Run("fits inside the day", func(t *testing.T) {
		start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) // Monday
		want := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, want, CalculateDueDate(start, 120, cal))
	})

	t.Run("spills into the next day", func(t *testing.T) {
		start := time.Date(2026, 1, 5, 17, 0, 0, 0, time.UTC) // Monday, one hour left
		want := time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)  // Tuesday
		assert.Equal(t, want, CalculateDueDate(start, 120, cal))
	})

	t.Run("friday spills over the weekend", func(t *testing.T) {
		start := time.Date(2026, 1, 9, 17, 0, 0, 0, time.UTC) // Friday
		want := time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC) // Monday
		assert.Equal(t, want, CalculateDueDate(start, 120, cal))
	})

	t.Run("start before opening clamps to window start", func(t *testing.T) {
		start := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
		want := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, want, CalculateDueDate(start, 60, cal))
	})

	t.Run("start on the weekend rolls to monday", func(t *testing.T) {
		start := time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC) // Saturday
		want := time.Date(2026, 1, 12, 10, 30, 0, 0, time.UTC)
		assert.Equal(t, want, CalculateDueDate(start, 90, cal))
	})
}

func TestCalculateDueDateSkipsHolidays(t *testing.T) {
	cal := businessWeekCalendar()
	cal.Holidays = []domain.Holiday{
		{Date: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)}, // Tuesday
	}

	start := time.Date(2026, 1, 5, 17, 0, 0, 0, time.UTC) // Monday
	want := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)  // Wednesday
	assert.Equal(t, want, CalculateDueDate(start, 120, cal))
}

func TestCalculateDueDateMonotonic(t *testing.T) {
	cal := businessWeekCalendar()
	start := time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC)

	previous := start
	for _, minutes := range []int{30, 60, 120, 540, 1080} {
		due := CalculateDueDate(start, minutes, cal)
		assert.True(t, due.After(previous), "due for %d minutes must advance", minutes)
		previous = due
	}
}

func TestCalculateElapsedMinutes(t *testing.T) {
	cal := businessWeekCalendar()

	t.Run("open ended is plain duration", func(t *testing.T) {
		start := time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC)
		assert.Equal(t, 150, CalculateElapsedMinutes(start, start.Add(150*time.Minute), nil))
	})

	t.Run("end before start is zero", func(t *testing.T) {
		start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, CalculateElapsedMinutes(start, start.Add(-time.Hour), cal))
		assert.Equal(t, 0, CalculateElapsedMinutes(start, start, cal))
	})

	t.Run("weekend contributes nothing", func(t *testing.T) {
		start := time.Date(2026, 1, 9, 17, 0, 0, 0, time.UTC) // Friday
		end := time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)  // Monday
		assert.Equal(t, 120, CalculateElapsedMinutes(start, end, cal))
	})

	t.Run("round trips with due date calculation", func(t *testing.T) {
		start := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)
		for _, minutes := range []int{15, 120, 480, 1200} {
			due := CalculateDueDate(start, minutes, cal)
			assert.Equal(t, minutes, CalculateElapsedMinutes(start, due, cal))
		}
	})
}
