package service

import (
	"context"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/store"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListFilter narrows a host's request listing.
type ListFilter struct {
	Status *model.Status
	Limit  int
	Offset int
}

// ListRequests returns one page of an event's requests, host only. Results
// are ordered by creation time (id as tiebreak) and carry their effective
// status, so lapsed holds read as expired.
func (s *Service) ListRequests(ctx context.Context, eventID, callerID string, f ListFilter) (*model.RequestPage, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.HostID != callerID {
		return nil, apperr.New(apperr.CodeForbidden, "only the event host can list requests")
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown status %q", *f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Offset < 0 {
		return nil, apperr.New(apperr.CodeValidation, "offset must not be negative")
	}

	now := s.now()
	requests, total, err := s.store.ListRequests(ctx, eventID, store.ListFilter{
		Status: f.Status,
		Now:    now,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, err
	}
	for i := range requests {
		requests[i].Status = requests[i].EffectiveStatus(now)
	}
	if requests == nil {
		requests = []model.JoinRequest{}
	}
	return &model.RequestPage{
		Requests:   requests,
		TotalCount: total,
		Limit:      f.Limit,
		Offset:     f.Offset,
	}, nil
}

// GetRequest returns a single request to the event host or the request's
// owner. Any other caller gets Forbidden, never the record itself.
func (s *Service) GetRequest(ctx context.Context, eventID, requestID, callerID string) (*model.JoinRequest, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, eventID, requestID)
	if err != nil {
		return nil, err
	}
	if callerID != ev.HostID && callerID != req.UserID {
		return nil, apperr.New(apperr.CodeForbidden, "not your request")
	}
	req.Status = req.EffectiveStatus(s.now())
	return req, nil
}
