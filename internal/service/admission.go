package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/store"
)

func newID() string {
	return uuid.New().String()
}

// CreateRequest admits a guest's join request. Inside one atomic unit it
// checks the duplicate guard, recomputes availability, and inserts the
// pending request with a fresh hold. A successful create reduces available
// for every subsequent caller until the request resolves or the hold lapses.
func (s *Service) CreateRequest(ctx context.Context, eventID, callerID string, in model.CreateRequestInput) (*model.JoinRequest, error) {
	in.Note = strings.TrimSpace(in.Note)
	if in.PartySize < 1 {
		return nil, apperr.New(apperr.CodeValidation, "party_size must be at least 1")
	}
	if len(in.Note) > s.cfg.MaxNoteLength {
		return nil, apperr.Newf(apperr.CodeValidation, "note exceeds %d characters", s.cfg.MaxNoteLength)
	}

	var created *model.JoinRequest
	err := s.store.Atomic(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		if !ev.Published() {
			return apperr.New(apperr.CodeNotFound, "event is not open for requests")
		}
		if maxParty := s.maxPartySize(ev); in.PartySize > maxParty {
			return apperr.Newf(apperr.CodeValidation, "party_size exceeds the event maximum of %d", maxParty)
		}
		if ev.HostID == callerID {
			return apperr.New(apperr.CodeForbidden, "hosts cannot request to join their own event")
		}

		now := s.now()
		open, err := tx.OpenRequestByUser(ctx, callerID, now)
		if err != nil {
			return err
		}
		if open != nil {
			return apperr.New(apperr.CodeDuplicateRequest, "an open request for this event already exists")
		}

		avail, err := s.availability(ctx, tx, ev, now, "")
		if err != nil {
			return err
		}
		if !fits(avail, in.PartySize) {
			return apperr.Newf(apperr.CodeCapacityExceeded,
				"requested %d spots but only %d are available", in.PartySize, avail.Available)
		}

		req := &model.JoinRequest{
			ID:            newID(),
			EventID:       eventID,
			UserID:        callerID,
			PartySize:     in.PartySize,
			Note:          in.Note,
			Status:        model.StatusPending,
			HoldExpiresAt: now.Add(s.cfg.HoldDuration),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, s.audit(req, callerID, "", model.StatusPending, now)); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
