package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
)

// cronParser — парсер cron-выражений (5 полей, без секунд).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// NextRun вычисляет следующее время выполнения с учётом timezone расписания.
// Результат в UTC.
func NextRun(sched *domain.Schedule, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(sched.CronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
	}

	next := schedule.Next(from.In(sched.Location()))
	return next.UTC(), nil
}

// cronSpec возвращает spec для cron.Cron: timezone передаётся префиксом CRON_TZ=.
func cronSpec(sched *domain.Schedule) string {
	if sched.Timezone == "" {
		return sched.CronExpr
	}
	return "CRON_TZ=" + sched.Timezone + " " + sched.CronExpr
}

// FromConfig строит расписания из конфигурации и вычисляет первый запуск.
func FromConfig(entries []config.Schedule, now time.Time) ([]domain.Schedule, error) {
	schedules := make([]domain.Schedule, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", e.Task, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSchedule, name)
		}
		seen[name] = struct{}{}

		if e.Timezone != "" {
			if _, err := time.LoadLocation(e.Timezone); err != nil {
				return nil, fmt.Errorf("schedule %s: %w: %v", name, ErrInvalidTimezone, err)
			}
		}

		sched := domain.Schedule{
			Name:     name,
			Task:     e.Task,
			CronExpr: e.Cron,
			Timezone: e.Timezone,
		}

		next, err := NextRun(&sched, now)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
		sched.NextDueAt = &next

		schedules = append(schedules, sched)
	}

	return schedules, nil
}
