package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventhub/internal/domain"
)

const rsvpColumns = `id, event_id, user_id, status, created_at`

type rsvpRepository struct {
	DB *sql.DB
}

func NewRSVPRepository(db *sql.DB) domain.RSVPRepository {
	return &rsvpRepository{
		DB: db,
	}
}

// WithEventLock opens a transaction and takes a row lock on the event before
// running fn, so admission decisions for one event are serialized while other
// events proceed in parallel.
func (r *rsvpRepository) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx domain.RSVPTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rsvp transaction: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback rsvp transaction: %v", cause, rollbackErr)
		}
		return cause
	}

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rollbackWith(domain.ErrEventNotFound)
		}
		return rollbackWith(mapError(fmt.Errorf("lock event: %w", err)))
	}

	if err := fn(contextWithTx(ctx, tx), &rsvpTx{tx: tx}); err != nil {
		return rollbackWith(mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit rsvp transaction: %w", err))
	}
	return nil
}

func (r *rsvpRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.RSVP, error) {
	return listRSVPs(ctx, r.DB, `
		SELECT `+rsvpColumns+`
		FROM rsvps
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
	`, eventID)
}

func (r *rsvpRepository) ListByUser(ctx context.Context, userID string) ([]*domain.RSVP, error) {
	return listRSVPs(ctx, r.DB, `
		SELECT `+rsvpColumns+`
		FROM rsvps
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
}

func (r *rsvpRepository) CountByStatus(ctx context.Context, eventID string) (confirmed, waitlisted int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM rsvps
		WHERE event_id = $1
	`
	err = r.DB.QueryRowContext(ctx, query, eventID, domain.RSVPStatusConfirmed, domain.RSVPStatusWaitlist).
		Scan(&confirmed, &waitlisted)
	if err != nil {
		return 0, 0, err
	}
	return confirmed, waitlisted, nil
}

// rsvpTx implements domain.RSVPTx on an open transaction.
type rsvpTx struct {
	tx *sql.Tx
}

func (t *rsvpTx) FindByEventAndUser(ctx context.Context, eventID, userID string) (*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND user_id = $2
	`
	rsvp := &domain.RSVP{}
	err := t.tx.QueryRowContext(ctx, query, eventID, userID).
		Scan(&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRSVPNotFound
		}
		return nil, err
	}
	return rsvp, nil
}

// Insert stores rsvp and fills in its ID and CreatedAt. The timestamp comes
// from the database clock so waitlist order does not depend on which API
// process took the event lock.
func (t *rsvpTx) Insert(ctx context.Context, rsvp *domain.RSVP) error {
	query := `
		INSERT INTO rsvps (event_id, user_id, status, created_at)
		VALUES ($1, $2, $3, clock_timestamp())
		RETURNING id, created_at
	`
	err := t.tx.QueryRowContext(ctx, query, rsvp.EventID, rsvp.UserID, rsvp.Status).Scan(&rsvp.ID, &rsvp.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

func (t *rsvpTx) Delete(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM rsvps WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrRSVPNotFound)
}

func (t *rsvpTx) UpdateStatus(ctx context.Context, id int64, status domain.RSVPStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE rsvps SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrRSVPNotFound)
}

func (t *rsvpTx) FindWaitlistOrderedByCreation(ctx context.Context, eventID string, limit int) ([]*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
	`
	args := []any{eventID, domain.RSVPStatusWaitlist}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return listRSVPs(ctx, t.tx, query, args...)
}

func (t *rsvpTx) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND status = $2`
	var n int
	if err := t.tx.QueryRowContext(ctx, query, eventID, domain.RSVPStatusConfirmed).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *rsvpTx) ListByEvent(ctx context.Context, eventID string) ([]*domain.RSVP, error) {
	return listRSVPs(ctx, t.tx, `
		SELECT `+rsvpColumns+`
		FROM rsvps
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
	`, eventID)
}

func (t *rsvpTx) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM rsvps WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func listRSVPs(ctx context.Context, q querier, query string, args ...any) ([]*domain.RSVP, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rsvps := make([]*domain.RSVP, 0)
	for rows.Next() {
		rsvp := &domain.RSVP{}
		if err := rows.Scan(&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt); err != nil {
			return nil, err
		}
		rsvps = append(rsvps, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rsvps, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
