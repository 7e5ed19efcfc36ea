// Package repo хранит историю выкладок в PostgreSQL.
//
// DeploymentRepo — CRUD для таблицы deployments.
// Leader — лидерство планировщика через pg_try_advisory_lock.
// Схема встроена в бинарник (migrations/) и применяется Migrate.
package repo
