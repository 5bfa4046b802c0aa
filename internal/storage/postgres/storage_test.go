package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockCastStorage(t *testing.T) (*Storage[domain.CastJob, *domain.CastJob], sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Storage[domain.CastJob, *domain.CastJob]{
		db:      sqlx.NewDb(db, "postgres"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		table:   "cast_jobs",
		columns: castColumns,
	}, mock
}

func castRow(rows *sqlmock.Rows, job domain.CastJob) *sqlmock.Rows {
	return rows.AddRow(
		job.ID, job.OwnerID, job.SignerUUID, job.Text, job.MediaURL, job.DueAt,
		job.IdempotencyKey, string(job.Status), job.CastHash, job.Error, job.CreatedAt, job.UpdatedAt,
	)
}

func sampleCast(id string, due time.Time) domain.CastJob {
	return domain.CastJob{
		ID:             id,
		OwnerID:        "42",
		SignerUUID:     "signer",
		Text:           "gm",
		DueAt:          due,
		IdempotencyKey: domain.DefaultIdempotencyKey(id),
		Status:         domain.StatusPending,
		CreatedAt:      due.Add(-time.Hour),
		UpdatedAt:      due.Add(-time.Hour),
	}
}

func TestAppend(t *testing.T) {
	insert := regexp.QuoteMeta("INSERT INTO cast_jobs (id, owner_id, signer_uuid")

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "inserted"},
		{name: "duplicate id", execErr: &pq.Error{Code: uniqueViolation, Constraint: "cast_jobs_pkey"}, wantErr: domain.ErrDuplicateID},
		{
			name:    "duplicate idempotency key",
			execErr: &pq.Error{Code: uniqueViolation, Constraint: "cast_jobs_idempotency_key_key"},
			wantErr: domain.ErrDuplicateKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockCastStorage(t)

			exec := mock.ExpectExec(insert)
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := store.Append(context.Background(), sampleCast("c1", time.Now().UTC()))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAppendDatabaseError(t *testing.T) {
	store, mock := newMockCastStorage(t)
	mock.ExpectExec("INSERT INTO cast_jobs").WillReturnError(errors.New("connection reset"))

	err := store.Append(context.Background(), sampleCast("c1", time.Now().UTC()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateID)
	assert.Contains(t, err.Error(), "failed to append job")
}

func TestFind(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("FROM cast_jobs WHERE id = $1")

	t.Run("found", func(t *testing.T) {
		store, mock := newMockCastStorage(t)
		want := sampleCast("c1", due)
		mock.ExpectQuery(query).WithArgs("c1").WillReturnRows(castRow(sqlmock.NewRows(castColumns), want))

		got, err := store.Find(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.True(t, due.Equal(got.DueAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockCastStorage(t)
		mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(sqlmock.NewRows(castColumns))

		_, err := store.Find(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter storage.Filter
		where  string
		args   []driver.Value
	}{
		{
			name:  "no filter",
			where: "WHERE 1=1 ORDER BY due_at ASC, seq ASC",
		},
		{
			name:   "status",
			filter: storage.Filter{Status: domain.StatusPending},
			where:  "WHERE 1=1 AND status = $1 ORDER BY due_at ASC, seq ASC",
			args:   []driver.Value{"pending"},
		},
		{
			name:   "status and owner",
			filter: storage.Filter{Status: domain.StatusPending, OwnerID: "42"},
			where:  "WHERE 1=1 AND status = $1 AND owner_id = $2 ORDER BY due_at ASC, seq ASC",
			args:   []driver.Value{"pending", "42"},
		},
		{
			name:   "owner only",
			filter: storage.Filter{OwnerID: "42"},
			where:  "WHERE 1=1 AND owner_id = $1 ORDER BY due_at ASC, seq ASC",
			args:   []driver.Value{"42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockCastStorage(t)

			rows := sqlmock.NewRows(castColumns)
			castRow(rows, sampleCast("a", due))
			castRow(rows, sampleCast("b", due.Add(time.Minute)))

			expect := mock.ExpectQuery(regexp.QuoteMeta("FROM cast_jobs " + tt.where))
			if len(tt.args) > 0 {
				expect.WithArgs(tt.args...)
			}
			expect.WillReturnRows(rows)

			jobs, err := store.List(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, "a", jobs[0].ID)
			assert.Equal(t, "b", jobs[1].ID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListEmpty(t *testing.T) {
	store, mock := newMockCastStorage(t)
	mock.ExpectQuery("FROM cast_jobs").WillReturnRows(sqlmock.NewRows(castColumns))

	jobs, err := store.List(context.Background(), storage.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestUpdate(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lock := regexp.QuoteMeta("FROM cast_jobs WHERE id = $1 FOR UPDATE")
	update := regexp.QuoteMeta("UPDATE cast_jobs SET owner_id = $1")

	t.Run("applies mutation", func(t *testing.T) {
		store, mock := newMockCastStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("c1").WillReturnRows(castRow(sqlmock.NewRows(castColumns), sampleCast("c1", due)))
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := store.Update(context.Background(), "c1", (*domain.CastJob).Cancel)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCanceled, got.Status)
		assert.True(t, got.UpdatedAt.After(due.Add(-time.Hour)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mutation error rolls back", func(t *testing.T) {
		store, mock := newMockCastStorage(t)
		job := sampleCast("c1", due)
		job.Status = domain.StatusPosted

		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("c1").WillReturnRows(castRow(sqlmock.NewRows(castColumns), job))
		mock.ExpectRollback()

		_, err := store.Update(context.Background(), "c1", (*domain.CastJob).Cancel)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		store, mock := newMockCastStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("missing").WillReturnRows(sqlmock.NewRows(castColumns))
		mock.ExpectRollback()

		_, err := store.Update(context.Background(), "missing", (*domain.CastJob).Cancel)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write failure", func(t *testing.T) {
		store, mock := newMockCastStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("c1").WillReturnRows(castRow(sqlmock.NewRows(castColumns), sampleCast("c1", due)))
		mock.ExpectExec(update).WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		_, err := store.Update(context.Background(), "c1", (*domain.CastJob).Cancel)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update job")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
