package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var rsvpCols = []string{"id", "event_id", "user_id", "status", "created_at"}

func TestRSVPRepository_WithEventLock(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	// The database clock runs behind this process; its value must win.
	dbNow := created.Add(-3 * time.Second)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		fn      func(ctx context.Context, tx domain.RSVPTx) error
		wantErr error
	}{
		{
			name: "count then insert commits",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM events WHERE id = \$1 FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM rsvps WHERE event_id = \$1 AND status = \$2`).
					WithArgs("ev-1", "CONFIRMED").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(`INSERT INTO rsvps \(event_id, user_id, status, created_at\) VALUES \(\$1, \$2, \$3, clock_timestamp\(\)\) RETURNING id, created_at`).
					WithArgs("ev-1", "u-1", "CONFIRMED").
					WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), dbNow))
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx domain.RSVPTx) error {
				n, err := tx.CountConfirmed(ctx, "ev-1")
				if err != nil {
					return err
				}
				if n != 1 {
					return errors.New("unexpected count")
				}
				rsvp := domain.NewRSVP("ev-1", "u-1", domain.RSVPStatusConfirmed, created)
				if err := tx.Insert(ctx, rsvp); err != nil {
					return err
				}
				if rsvp.ID != 7 {
					return errors.New("id not scanned")
				}
				if !rsvp.CreatedAt.Equal(dbNow) {
					return errors.New("created_at not taken from the database")
				}
				return nil
			},
		},
		{
			name: "missing event rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx domain.RSVPTx) error {
				return errors.New("must not run")
			},
			wantErr: domain.ErrEventNotFound,
		},
		{
			name: "fn error rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx domain.RSVPTx) error {
				return domain.ErrSelfRegistration
			},
			wantErr: domain.ErrSelfRegistration,
		},
		{
			name: "serialization failure maps to conflict",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM rsvps`).
					WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx domain.RSVPTx) error {
				_, err := tx.CountConfirmed(ctx, "ev-1")
				return err
			},
			wantErr: domain.ErrConflict,
		},
		{
			name: "deadlock on lock maps to conflict",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx domain.RSVPTx) error {
				return errors.New("must not run")
			},
			wantErr: domain.ErrConflict,
		},
		{
			name: "unique violation maps to already registered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`INSERT INTO rsvps`).
					WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx domain.RSVPTx) error {
				return tx.Insert(ctx, domain.NewRSVP("ev-1", "u-1", domain.RSVPStatusWaitlist, created))
			},
			wantErr: domain.ErrAlreadyRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRSVPRepository(db)
			err = repo.WithEventLock(ctx, "ev-1", tt.fn)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRSVPTx_CancelAndPromote(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
	mock.ExpectQuery(`SELECT id, event_id, user_id, status, created_at FROM rsvps WHERE event_id = \$1 AND user_id = \$2`).
		WithArgs("ev-1", "u-a").
		WillReturnRows(sqlmock.NewRows(rsvpCols).AddRow(int64(1), "ev-1", "u-a", "CONFIRMED", t1))
	mock.ExpectExec(`DELETE FROM rsvps WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`WHERE event_id = \$1 AND status = \$2 ORDER BY created_at ASC, id ASC LIMIT \$3`).
		WithArgs("ev-1", "WAITLIST", 1).
		WillReturnRows(sqlmock.NewRows(rsvpCols).AddRow(int64(3), "ev-1", "u-c", "WAITLIST", t1))
	mock.ExpectExec(`UPDATE rsvps SET status = \$1 WHERE id = \$2`).
		WithArgs("CONFIRMED", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewRSVPRepository(db)
	err = repo.WithEventLock(ctx, "ev-1", func(ctx context.Context, tx domain.RSVPTx) error {
		rsvp, err := tx.FindByEventAndUser(ctx, "ev-1", "u-a")
		require.NoError(t, err)
		require.Equal(t, domain.RSVPStatusConfirmed, rsvp.Status)
		require.NoError(t, tx.Delete(ctx, rsvp.ID))

		next, err := tx.FindWaitlistOrderedByCreation(ctx, "ev-1", 1)
		require.NoError(t, err)
		require.Len(t, next, 1)
		require.Equal(t, "u-c", next[0].UserID)
		return tx.UpdateStatus(ctx, next[0].ID, domain.RSVPStatusConfirmed)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRSVPTx_NotFound(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
	mock.ExpectQuery(`FROM rsvps WHERE event_id = \$1 AND user_id = \$2`).
		WithArgs("ev-1", "u-x").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`DELETE FROM rsvps WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewRSVPRepository(db)
	err = repo.WithEventLock(ctx, "ev-1", func(ctx context.Context, tx domain.RSVPTx) error {
		_, err := tx.FindByEventAndUser(ctx, "ev-1", "u-x")
		require.ErrorIs(t, err, domain.ErrRSVPNotFound)
		return tx.Delete(ctx, 99)
	})
	require.ErrorIs(t, err, domain.ErrRSVPNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRSVPTx_PurgeEvent(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
	mock.ExpectQuery(`FROM rsvps WHERE event_id = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(rsvpCols).
			AddRow(int64(1), "ev-1", "u-a", "CONFIRMED", t1).
			AddRow(int64(2), "ev-1", "u-b", "WAITLIST", t1))
	mock.ExpectExec(`DELETE FROM rsvps WHERE event_id = \$1`).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repo := NewRSVPRepository(db)
	err = repo.WithEventLock(ctx, "ev-1", func(ctx context.Context, tx domain.RSVPTx) error {
		rsvps, err := tx.ListByEvent(ctx, "ev-1")
		require.NoError(t, err)
		require.Len(t, rsvps, 2)
		n, err := tx.DeleteByEvent(ctx, "ev-1")
		require.NoError(t, err)
		require.Equal(t, int64(2), n)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRSVPRepository_Reads(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	t.Run("list by user newest first", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM rsvps WHERE user_id = \$1 ORDER BY created_at DESC, id DESC`).
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows(rsvpCols).
				AddRow(int64(5), "ev-2", "u-1", "WAITLIST", t2).
				AddRow(int64(2), "ev-1", "u-1", "CONFIRMED", t1))

		repo := NewRSVPRepository(db)
		got, err := repo.ListByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, domain.RSVPStatusWaitlist, got[0].Status)
		require.Equal(t, "ev-1", got[1].EventID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list by event empty", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM rsvps WHERE event_id = \$1`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows(rsvpCols))

		repo := NewRSVPRepository(db)
		got, err := repo.ListByEvent(ctx, "ev-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count by status", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`COUNT\(\*\) FILTER`).
			WithArgs("ev-1", "CONFIRMED", "WAITLIST").
			WillReturnRows(sqlmock.NewRows([]string{"confirmed", "waitlisted"}).AddRow(2, 3))

		repo := NewRSVPRepository(db)
		confirmed, waitlisted, err := repo.CountByStatus(ctx, "ev-1")
		require.NoError(t, err)
		require.Equal(t, 2, confirmed)
		require.Equal(t, 3, waitlisted)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQuerierFrom(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.Equal(t, querier(db), querierFrom(context.Background(), db))

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := contextWithTx(context.Background(), tx)
	require.Equal(t, querier(tx), querierFrom(ctx, db))

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
}

func TestMapError(t *testing.T) {
	require.ErrorIs(t, mapError(&pq.Error{Code: "40001"}), domain.ErrConflict)
	require.ErrorIs(t, mapError(&pq.Error{Code: "55P03"}), domain.ErrConflict)
	plain := errors.New("boom")
	require.Equal(t, plain, mapError(plain))
	require.NotErrorIs(t, mapError(&pq.Error{Code: "23503"}), domain.ErrConflict)
}
