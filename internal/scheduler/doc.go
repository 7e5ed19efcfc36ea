// Package scheduler запускает задачи выкладки по cron-расписанию.
//
// Структура:
//   - scheduler.go — Scheduler поверх robfig/cron (skip overlap, лидерство)
//   - cron.go      — парсинг cron-выражений и вычисление следующего запуска
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Deploy: cfg,
//	    Runner: runner,
//	    Tasks:  runner.Registry(),
//	    Locker: repo.NewLeader(pool, repo.SchedulerLockKey), // опционально
//	    Logger: logger,
//	})
//	sched.Start()
//	defer sched.Stop(ctx)
//
// Leader Election:
//
// Если задан Locker, перед каждым срабатыванием вызывается TryLock.
// Задачи выполняет только экземпляр, удерживающий pg_advisory_lock.
package scheduler
