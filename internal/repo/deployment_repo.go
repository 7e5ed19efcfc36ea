package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Strano/internal/domain"
)

// DefaultListLimit — сколько записей возвращает List без явного лимита.
const DefaultListLimit = 20

// DeploymentRepo — репозиторий истории выкладок.
type DeploymentRepo struct {
	pool *pgxpool.Pool
}

// NewDeploymentRepo создаёт новый DeploymentRepo.
func NewDeploymentRepo(pool *pgxpool.Pool) *DeploymentRepo {
	return &DeploymentRepo{pool: pool}
}

// Create сохраняет новую запись.
func (r *DeploymentRepo) Create(ctx context.Context, d *domain.Deployment) error {
	query := `
		INSERT INTO deployments (id, task, hosts, release, revision, status, started_at, finished_at, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.Task,
		hostsOrEmpty(d.Hosts),
		nullString(d.Release),
		nullString(d.Revision),
		d.Status.String(),
		d.StartedAt,
		d.FinishedAt,
		nullString(d.Error),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// Update обновляет статус, релиз, ревизию и время выполнения.
func (r *DeploymentRepo) Update(ctx context.Context, d *domain.Deployment) error {
	query := `
		UPDATE deployments
		SET status = $2, release = $3, revision = $4, started_at = $5, finished_at = $6, error = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		d.ID,
		d.Status.String(),
		nullString(d.Release),
		nullString(d.Revision),
		d.StartedAt,
		d.FinishedAt,
		nullString(d.Error),
	)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *DeploymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	query := `
		SELECT id, task, hosts, release, revision, status, started_at, finished_at, error, created_at
		FROM deployments
		WHERE id = $1
	`
	d, err := scanDeployment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List возвращает записи с фильтрацией, новые первыми.
func (r *DeploymentRepo) List(ctx context.Context, filter DeploymentFilter) ([]domain.Deployment, error) {
	query := `
		SELECT id, task, hosts, release, revision, status, started_at, finished_at, error, created_at
		FROM deployments
		WHERE ($1::text IS NULL OR task = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Task),
		nullString(filter.Status.String()),
		filter.limit(),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *d)
	}
	return deployments, rows.Err()
}

// --- Helpers ---

// DeploymentFilter — параметры фильтрации истории.
type DeploymentFilter struct {
	Task   string
	Status domain.DeploymentStatus
	Limit  int
	Offset int
}

func (f DeploymentFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// scanDeployment сканирует одну строку (pgx.Row и pgx.Rows оба реализуют Scan).
func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	var d domain.Deployment
	var status string
	var release, revision, depError *string

	err := row.Scan(
		&d.ID,
		&d.Task,
		&d.Hosts,
		&release,
		&revision,
		&status,
		&d.StartedAt,
		&d.FinishedAt,
		&depError,
		&d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan deployment: %w", err)
	}

	d.Status = domain.ParseDeploymentStatus(status)
	d.Release = derefString(release)
	d.Revision = derefString(revision)
	d.Error = derefString(depError)

	return &d, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func hostsOrEmpty(hosts []string) []string {
	if hosts == nil {
		return []string{}
	}
	return hosts
}
