// Package repository implements the store contract on PostgreSQL using pgx
// directly (no ORM). Capacity accounting is serialized per event with
// SELECT ... FOR UPDATE:
//
// Two concurrent admission decisions that read availability from the same
// snapshot can both see free capacity and both commit, overbooking the
// event. Locking the event row up front blocks the second transaction until
// the first commits or rolls back, so read-then-write sequences for one
// event run strictly one at a time. Decisions for different events lock
// different rows and never block each other.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/store"
)

// Postgres implements store.Store against a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// New constructs a Postgres store.
func New(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

const eventColumns = `id, host_id, status, capacity_total, max_party_size, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.HostID, &ev.Status, &ev.CapacityTotal,
		&ev.MaxPartySize, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "event not found")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "scan event", err)
	}
	return &ev, nil
}

func (p *Postgres) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	return scanEvent(p.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
}

// Atomic opens a transaction, locks the event row, and runs fn. Any error
// from fn rolls the whole transaction back, so a losing capacity race
// leaves no partial writes.
func (p *Postgres) Atomic(ctx context.Context, eventID string, fn func(tx store.Tx, ev *model.Event) error) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "begin transaction", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Row-level exclusive lock on the event: every capacity decision for
	// this event queues behind it until commit or rollback.
	ev, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		return err
	}

	if err = fn(&pgTx{tx: tx, eventID: eventID}, ev); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "commit transaction", err)
	}
	return nil
}

const requestColumns = `id, event_id, user_id, party_size, note, status, hold_expires_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*model.JoinRequest, error) {
	var req model.JoinRequest
	err := row.Scan(&req.ID, &req.EventID, &req.UserID, &req.PartySize,
		&req.Note, &req.Status, &req.HoldExpiresAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "request not found")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "scan request", err)
	}
	return &req, nil
}

func (p *Postgres) GetRequest(ctx context.Context, eventID, requestID string) (*model.JoinRequest, error) {
	return scanRequest(p.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM join_requests WHERE event_id = $1 AND id = $2`,
		eventID, requestID))
}

// requestFilterSQL renders the effective-status predicate for a listing
// filter. Pending means the hold is still live; expired selects stored
// pending rows whose hold has lapsed.
func requestFilterSQL(f store.ListFilter, args []any) (string, []any) {
	if f.Status == nil {
		return "", args
	}
	switch *f.Status {
	case model.StatusPending:
		args = append(args, f.Now)
		return fmt.Sprintf(" AND status = 'pending' AND hold_expires_at > $%d", len(args)), args
	case model.StatusExpired:
		args = append(args, f.Now)
		return fmt.Sprintf(" AND status = 'pending' AND hold_expires_at <= $%d", len(args)), args
	default:
		args = append(args, string(*f.Status))
		return fmt.Sprintf(" AND status = $%d", len(args)), args
	}
}

func (p *Postgres) ListRequests(ctx context.Context, eventID string, f store.ListFilter) ([]model.JoinRequest, int, error) {
	where := `event_id = $1`
	args := []any{eventID}
	cond, args := requestFilterSQL(f, args)
	where += cond

	var total int
	err := p.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM join_requests WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "count requests", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := p.db.Query(ctx,
		`SELECT `+requestColumns+` FROM join_requests WHERE `+where+
			fmt.Sprintf(` ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list requests", err)
	}
	defer rows.Close()

	var requests []model.JoinRequest
	for rows.Next() {
		var req model.JoinRequest
		if err := rows.Scan(&req.ID, &req.EventID, &req.UserID, &req.PartySize,
			&req.Note, &req.Status, &req.HoldExpiresAt, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, 0, apperr.Wrap(apperr.CodeInternal, "scan request", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "list requests", err)
	}
	return requests, total, nil
}

// pgTx is the event-scoped transaction view handed to Atomic callbacks.
type pgTx struct {
	tx      pgx.Tx
	eventID string
}

func (t *pgTx) ConfirmedTotal(ctx context.Context) (int, error) {
	var sum int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(party_size), 0)
		 FROM participants
		 WHERE event_id = $1 AND status = 'accepted'`,
		t.eventID,
	).Scan(&sum)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "sum confirmed", err)
	}
	return sum, nil
}

func (t *pgTx) HeldTotal(ctx context.Context, now time.Time, excludeID string) (int, error) {
	var sum int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(party_size), 0)
		 FROM join_requests
		 WHERE event_id = $1
		   AND status = 'pending'
		   AND hold_expires_at > $2
		   AND ($3 = '' OR id <> $3)`,
		t.eventID, now, excludeID,
	).Scan(&sum)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "sum held", err)
	}
	return sum, nil
}

func (t *pgTx) OpenRequestByUser(ctx context.Context, userID string, now time.Time) (*model.JoinRequest, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx,
		`SELECT `+requestColumns+`
		 FROM join_requests
		 WHERE event_id = $1
		   AND user_id = $2
		   AND (status = 'waitlisted' OR (status = 'pending' AND hold_expires_at > $3))
		 LIMIT 1`,
		t.eventID, userID, now))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

func (t *pgTx) RequestByID(ctx context.Context, requestID string) (*model.JoinRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM join_requests WHERE event_id = $1 AND id = $2`,
		t.eventID, requestID))
}

func (t *pgTx) InsertRequest(ctx context.Context, req *model.JoinRequest) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO join_requests (`+requestColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.EventID, req.UserID, req.PartySize, req.Note,
		req.Status, req.HoldExpiresAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert request", err)
	}
	return nil
}

func (t *pgTx) UpdateRequest(ctx context.Context, req *model.JoinRequest) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE join_requests
		 SET status = $1, hold_expires_at = $2, updated_at = $3
		 WHERE event_id = $4 AND id = $5`,
		req.Status, req.HoldExpiresAt, req.UpdatedAt, req.EventID, req.ID,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "update request", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "request not found")
	}
	return nil
}

func (t *pgTx) UpsertParticipant(ctx context.Context, p *model.Participant) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO participants (id, event_id, user_id, party_size, status, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (event_id, user_id)
		 DO UPDATE SET party_size = EXCLUDED.party_size,
		               status = EXCLUDED.status,
		               joined_at = EXCLUDED.joined_at`,
		p.ID, p.EventID, p.UserID, p.PartySize, p.Status, p.JoinedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "upsert participant", err)
	}
	return nil
}

func (t *pgTx) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO request_audit (id, request_id, event_id, actor_id, from_status, to_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.RequestID, entry.EventID, entry.ActorID,
		entry.FromStatus, entry.ToStatus, entry.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert audit entry", err)
	}
	return nil
}
