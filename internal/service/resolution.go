package service

import (
	"context"
	"time"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/store"
)

// Approve moves a pending or waitlisted request to approved and writes the
// confirmed-attendance record, all in one atomic unit. Availability is
// re-derived at the moment of approval, excluding this request's own hold
// so it is not counted both as held and as about-to-be-confirmed. Under the
// event lock, two concurrent approvals that cannot both fit resolve to
// exactly one success; the loser sees CAPACITY_EXCEEDED against the reduced
// availability and the request keeps its prior status, so the host can
// retry, decline, or waitlist it.
func (s *Service) Approve(ctx context.Context, eventID, requestID, callerID string) (*model.JoinRequest, error) {
	var approved *model.JoinRequest
	err := s.store.Atomic(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		if ev.HostID != callerID {
			return apperr.New(apperr.CodeForbidden, "only the event host can approve requests")
		}
		req, err := tx.RequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := checkTransition(req, model.StatusApproved, now); err != nil {
			return err
		}

		avail, err := s.availability(ctx, tx, ev, now, req.ID)
		if err != nil {
			return err
		}
		if !fits(avail, req.PartySize) {
			return apperr.Newf(apperr.CodeCapacityExceeded,
				"approving %d spots would exceed the %d still available", req.PartySize, avail.Available)
		}

		from := req.Status
		req.Status = model.StatusApproved
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.UpsertParticipant(ctx, &model.Participant{
			ID:        newID(),
			EventID:   req.EventID,
			UserID:    req.UserID,
			PartySize: req.PartySize,
			Status:    model.ParticipantStatusAccepted,
			JoinedAt:  now,
		}); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, s.audit(req, callerID, from, model.StatusApproved, now)); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Decline is a host action, always permitted while the request is open.
// Moving a pending request out of pending releases its hold implicitly:
// held sums only pending rows, so no extra bookkeeping happens here.
func (s *Service) Decline(ctx context.Context, eventID, requestID, callerID string) (*model.JoinRequest, error) {
	return s.resolve(ctx, eventID, requestID, callerID, model.StatusDeclined, true)
}

// Waitlist is a host action. A waitlisted request stays open (it still
// blocks duplicates) but holds no capacity.
func (s *Service) Waitlist(ctx context.Context, eventID, requestID, callerID string) (*model.JoinRequest, error) {
	return s.resolve(ctx, eventID, requestID, callerID, model.StatusWaitlisted, true)
}

// Cancel is a guest action, permitted only for the request's owner.
func (s *Service) Cancel(ctx context.Context, eventID, requestID, callerID string) (*model.JoinRequest, error) {
	return s.resolve(ctx, eventID, requestID, callerID, model.StatusCancelled, false)
}

// resolve performs the non-capacity transitions. They never recompute
// availability, but still run atomically so a stale status is never acted
// on.
func (s *Service) resolve(ctx context.Context, eventID, requestID, callerID string, to model.Status, hostAction bool) (*model.JoinRequest, error) {
	var resolved *model.JoinRequest
	err := s.store.Atomic(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		if hostAction && ev.HostID != callerID {
			return apperr.Newf(apperr.CodeForbidden, "only the event host can %s requests", actionName(to))
		}
		req, err := tx.RequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !hostAction && req.UserID != callerID {
			return apperr.New(apperr.CodeForbidden, "only the request owner can cancel it")
		}
		now := s.now()
		if err := checkTransition(req, to, now); err != nil {
			return err
		}

		from := req.Status
		req.Status = to
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, s.audit(req, callerID, from, to, now)); err != nil {
			return err
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// checkTransition rejects actions against expired or terminal requests and
// anything the transition table does not permit.
func checkTransition(req *model.JoinRequest, to model.Status, now time.Time) error {
	if req.HoldExpired(now) {
		return apperr.New(apperr.CodeHoldExpired, "the request's hold has expired")
	}
	if !model.CanTransition(req.Status, to) {
		return apperr.Newf(apperr.CodeInvalidStateTransition,
			"cannot move a %s request to %s", req.Status, to)
	}
	return nil
}

func actionName(to model.Status) string {
	switch to {
	case model.StatusDeclined:
		return "decline"
	case model.StatusWaitlisted:
		return "waitlist"
	default:
		return "resolve"
	}
}
