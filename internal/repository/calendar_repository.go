package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/sla"
)

// CalendarRepository loads business calendars with their holidays. Schedules
// are decoded from the stored JSON on load; a malformed schedule is logged
// and normalized to empty (24/7) rather than surfaced as an error.
type CalendarRepository interface {
	GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error)
	List(ctx context.Context) ([]domain.BusinessCalendar, error)
}

type calendarRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewCalendarRepository instantiates the repository.
func NewCalendarRepository(pool *pgxpool.Pool, logger *zap.Logger) CalendarRepository {
	return &calendarRepository{pool: pool, logger: logger}
}

func (r *calendarRepository) GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error) {
	const query = `SELECT id, name, timezone, schedule FROM sla_calendars WHERE id=$1`
	cal, err := r.scanCalendar(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	holidays, err := r.loadHolidays(ctx, cal.ID)
	if err != nil {
		return nil, err
	}
	cal.Holidays = holidays
	return cal, nil
}

func (r *calendarRepository) List(ctx context.Context) ([]domain.BusinessCalendar, error) {
	const query = `SELECT id, name, timezone, schedule FROM sla_calendars ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BusinessCalendar
	for rows.Next() {
		cal, err := r.scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		holidays, err := r.loadHolidays(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Holidays = holidays
	}
	return result, nil
}

func (r *calendarRepository) scanCalendar(row rowScanner) (*domain.BusinessCalendar, error) {
	var cal domain.BusinessCalendar
	var rawSchedule *string
	if err := row.Scan(&cal.ID, &cal.Name, &cal.Timezone, &rawSchedule); err != nil {
		return nil, err
	}
	if rawSchedule != nil {
		schedule, err := sla.DecodeSchedule(*rawSchedule)
		if err != nil {
			r.logger.Warn("malformed calendar schedule, treating as 24/7",
				zap.String("calendar_id", cal.ID), zap.Error(err))
		} else {
			cal.Schedule = schedule
		}
	}
	return &cal, nil
}

func (r *calendarRepository) loadHolidays(ctx context.Context, calendarID string) ([]domain.Holiday, error) {
	const query = `
        SELECT id, calendar_id, name, holiday_date, recurring
        FROM sla_holidays WHERE calendar_id=$1 ORDER BY holiday_date`
	rows, err := r.pool.Query(ctx, query, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHolidays(rows)
}

func scanHolidays(rows pgx.Rows) ([]domain.Holiday, error) {
	var result []domain.Holiday
	for rows.Next() {
		var h domain.Holiday
		if err := rows.Scan(&h.ID, &h.CalendarID, &h.Name, &h.Date, &h.Recurring); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
