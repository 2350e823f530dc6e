// Package store defines the persistence contract for the admission engine
// and provides an in-memory implementation of it. The PostgreSQL
// implementation lives in internal/repository.
//
// The contract is built around one rule: every capacity decision happens
// inside Atomic, which serializes all decisions for a single event while
// leaving different events fully independent. Computing availability in one
// round trip and acting on it in another is not expressible through this
// interface, by construction.
package store

import (
	"context"
	"time"

	"github.com/gatherup/admission/internal/model"
)

// ListFilter narrows and pages a request listing.
type ListFilter struct {
	// Status, when set, filters by effective (read-time) status: filtering
	// for pending excludes lapsed holds, filtering for expired selects them.
	Status *model.Status

	// Now is the instant used for effective-status classification.
	Now time.Time

	Limit  int
	Offset int
}

// Store is the persistence boundary consumed by the service layer.
type Store interface {
	// GetEvent returns the event or an apperr.CodeNotFound error. Plain
	// read; callers that go on to mutate must use Atomic instead.
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)

	// Atomic acquires the event's accounting lock, then runs fn with a Tx
	// scoped to that event. All writes made through the Tx become visible
	// only if fn returns nil; any error rolls everything back. Concurrent
	// Atomic calls for the same event are serialized; calls for different
	// events do not block each other. Fails with apperr.CodeNotFound when
	// the event does not exist.
	Atomic(ctx context.Context, eventID string, fn func(tx Tx, ev *model.Event) error) error

	// ListRequests returns one page of an event's requests ordered by
	// created_at then id, plus the total count matching the filter.
	ListRequests(ctx context.Context, eventID string, f ListFilter) ([]model.JoinRequest, int, error)

	// GetRequest returns the request scoped to the event, or
	// apperr.CodeNotFound.
	GetRequest(ctx context.Context, eventID, requestID string) (*model.JoinRequest, error)
}

// Tx is the event-scoped view handed to Atomic callbacks. Every method
// operates on the locked event only.
type Tx interface {
	// ConfirmedTotal sums party sizes over accepted participants.
	ConfirmedTotal(ctx context.Context) (int, error)

	// HeldTotal sums party sizes over pending requests whose hold is still
	// live at now, excluding the request with excludeID when non-empty.
	HeldTotal(ctx context.Context, now time.Time, excludeID string) (int, error)

	// OpenRequestByUser returns the user's open request for this event, or
	// nil when none exists. Expired pending requests are not open.
	OpenRequestByUser(ctx context.Context, userID string, now time.Time) (*model.JoinRequest, error)

	// RequestByID returns the request or an apperr.CodeNotFound error.
	RequestByID(ctx context.Context, requestID string) (*model.JoinRequest, error)

	InsertRequest(ctx context.Context, req *model.JoinRequest) error
	UpdateRequest(ctx context.Context, req *model.JoinRequest) error

	// UpsertParticipant inserts the confirmed-attendance record, replacing
	// any prior record for the same (event, user) pair.
	UpsertParticipant(ctx context.Context, p *model.Participant) error

	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
}
