package service

import (
	"context"
	"time"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/store"
)

// ExtendHold pushes out a pending request's hold expiry by the given number
// of minutes, measured from the later of the current expiry and now. Host
// only. The hold is already counted in held, so no capacity check happens
// here. Out-of-range values fail validation and leave the expiry untouched.
func (s *Service) ExtendHold(ctx context.Context, eventID, requestID, callerID string, minutes int) (*model.JoinRequest, error) {
	if minutes < s.cfg.MinExtensionMinutes || minutes > s.cfg.MaxExtensionMinutes {
		return nil, apperr.Newf(apperr.CodeValidation,
			"extension_minutes must be between %d and %d",
			s.cfg.MinExtensionMinutes, s.cfg.MaxExtensionMinutes)
	}

	var extended *model.JoinRequest
	err := s.store.Atomic(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		if ev.HostID != callerID {
			return apperr.New(apperr.CodeForbidden, "only the event host can extend holds")
		}
		req, err := tx.RequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		now := s.now()
		if req.HoldExpired(now) {
			return apperr.New(apperr.CodeHoldExpired, "the request's hold has expired")
		}
		if req.Status != model.StatusPending {
			return apperr.Newf(apperr.CodeInvalidStateTransition,
				"only pending requests carry a hold, this one is %s", req.Status)
		}

		base := req.HoldExpiresAt
		if base.Before(now) {
			base = now
		}
		req.HoldExpiresAt = base.Add(time.Duration(minutes) * time.Minute)
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		extended = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return extended, nil
}
