// Package postgres backs the queue store with PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
	"github.com/cuongbtq/kamo-scheduler/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint violation
const uniqueViolation = "23505"

var (
	_ storage.CastStore = (*Storage[domain.CastJob, *domain.CastJob])(nil)
	_ storage.CoinStore = (*Storage[domain.CoinJob, *domain.CoinJob])(nil)
)

// Storage handles job persistence for one job kind
type Storage[T any, P storage.Record[T]] struct {
	db      *sqlx.DB
	logger  *slog.Logger
	table   string
	columns []string
}

// NewCastStorage creates a cast job store on the cast_jobs table
func NewCastStorage(pg *postgresql.Client, logger *slog.Logger) *Storage[domain.CastJob, *domain.CastJob] {
	return &Storage[domain.CastJob, *domain.CastJob]{
		db:      pg.GetDB(),
		logger:  logger,
		table:   "cast_jobs",
		columns: castColumns,
	}
}

// NewCoinStorage creates a coin job store on the coin_jobs table
func NewCoinStorage(pg *postgresql.Client, logger *slog.Logger) *Storage[domain.CoinJob, *domain.CoinJob] {
	return &Storage[domain.CoinJob, *domain.CoinJob]{
		db:      pg.GetDB(),
		logger:  logger,
		table:   "coin_jobs",
		columns: coinColumns,
	}
}

// Migrate creates the job tables if they do not exist
func Migrate(ctx context.Context, pg *postgresql.Client) error {
	if err := pg.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate job tables: %w", err)
	}
	return nil
}

func (s *Storage[T, P]) selectColumns() string {
	return strings.Join(s.columns, ", ")
}

// Append inserts a new job row
func (s *Storage[T, P]) Append(ctx context.Context, rec T) error {
	placeholders := make([]string, len(s.columns))
	for i, col := range s.columns {
		placeholders[i] = ":" + col
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		s.table, s.selectColumns(), strings.Join(placeholders, ", "),
	)

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if dedupConstraints[pqErr.Constraint] {
				return domain.ErrDuplicateKey
			}
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("failed to append job: %w", err)
	}

	return nil
}

// Find retrieves a job by ID
func (s *Storage[T, P]) Find(ctx context.Context, id string) (T, error) {
	var rec T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.selectColumns(), s.table)

	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, domain.ErrNotFound
		}
		return rec, fmt.Errorf("failed to get job: %w", err)
	}

	return rec, nil
}

// List returns jobs matching the filter ordered by due time, then insertion order
func (s *Storage[T, P]) List(ctx context.Context, filter storage.Filter) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", s.selectColumns(), s.table)
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}

	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, filter.OwnerID)
	}

	query += " ORDER BY due_at ASC, seq ASC"

	jobs := []T{}
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// Update locks the row, applies mutate and writes the whole record back
func (s *Storage[T, P]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	var rec T

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return rec, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit is a no-op returning sql.ErrTxDone
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", s.selectColumns(), s.table)
	if err := tx.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, domain.ErrNotFound
		}
		return rec, fmt.Errorf("failed to lock job: %w", err)
	}

	if err := mutate(&rec); err != nil {
		var zero T
		return zero, err
	}
	P(&rec).Stamp(time.Now().UTC())

	sets := make([]string, 0, len(s.columns))
	for _, col := range s.columns {
		if col == "id" || col == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = :%s", col, col))
	}
	update := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", s.table, strings.Join(sets, ", "))

	if _, err := tx.NamedExecContext(ctx, update, rec); err != nil {
		return rec, fmt.Errorf("failed to update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return rec, fmt.Errorf("failed to commit job update: %w", err)
	}

	s.logger.Debug("Job updated",
		slog.String("table", s.table),
		slog.String("job_id", id),
		slog.String("status", string(P(&rec).State())),
	)

	return rec, nil
}
