// Package service implements the admission engine's business rules:
// availability calculation, admission control, the resolution state machine,
// hold extension, and listing. It is transport-agnostic; all persistence
// goes through the store contract, and every capacity decision runs inside
// a single store.Atomic unit.
package service

import (
	"context"
	"time"

	"github.com/gatherup/admission/internal/config"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/store"
)

// Service orchestrates admission operations against a store.
type Service struct {
	store store.Store
	cfg   *config.Config

	// now is swapped in tests to control hold expiry.
	now func() time.Time
}

// New constructs a Service.
func New(st store.Store, cfg *config.Config) *Service {
	return &Service{
		store: st,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Availability returns the event's capacity snapshot. The snapshot is
// computed under the event's accounting lock, so it is consistent with any
// concurrently committing admission decision.
func (s *Service) Availability(ctx context.Context, eventID string) (*model.Availability, error) {
	var avail *model.Availability
	err := s.store.Atomic(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		var err error
		avail, err = s.availability(ctx, tx, ev, s.now(), "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return avail, nil
}

// availability derives {total, confirmed, held, available} inside an atomic
// unit. excludeID removes one request's own hold from the held sum; the
// approve path uses it so a converting hold is not double-counted.
func (s *Service) availability(ctx context.Context, tx store.Tx, ev *model.Event, now time.Time, excludeID string) (*model.Availability, error) {
	confirmed, err := tx.ConfirmedTotal(ctx)
	if err != nil {
		return nil, err
	}
	held, err := tx.HeldTotal(ctx, now, excludeID)
	if err != nil {
		return nil, err
	}

	avail := &model.Availability{
		Confirmed: confirmed,
		Held:      held,
	}
	if ev.Unlimited() {
		avail.Unlimited = true
		return avail, nil
	}
	avail.Total = *ev.CapacityTotal
	avail.Available = max(0, avail.Total-confirmed-held)
	return avail, nil
}

// fits reports whether partySize spots fit within the snapshot.
func fits(avail *model.Availability, partySize int) bool {
	return avail.Unlimited || partySize <= avail.Available
}

// maxPartySize returns the event's per-request cap, falling back to the
// configured default for events created before the column existed.
func (s *Service) maxPartySize(ev *model.Event) int {
	if ev.MaxPartySize > 0 {
		return ev.MaxPartySize
	}
	return s.cfg.DefaultMaxPartySize
}

func (s *Service) audit(req *model.JoinRequest, actorID string, from, to model.Status, at time.Time) *model.AuditEntry {
	return &model.AuditEntry{
		ID:         newID(),
		RequestID:  req.ID,
		EventID:    req.EventID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		CreatedAt:  at,
	}
}
