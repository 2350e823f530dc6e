// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer, plus the middleware
// stack (identity, access log, CORS, rate limiting).
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/service"
)

// RequestHandler holds all HTTP handlers for the admission API.
type RequestHandler struct {
	svc      *service.Service
	validate *validator.Validate
}

// New constructs a RequestHandler.
func New(svc *service.Service) *RequestHandler {
	return &RequestHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status through the error's
// code; handlers never match on error strings.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), model.ErrorResponse{
		Error: apperr.MessageOf(err),
		Code:  string(code),
	})
}

func writeErrorMsg(w http.ResponseWriter, code apperr.Code, msg string) {
	writeJSON(w, code.HTTPStatus(), model.ErrorResponse{Error: msg, Code: string(code)})
}

func (h *RequestHandler) decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "invalid request body", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Newf(apperr.CodeValidation, "invalid field %s", verrs[0].Field())
		}
		return apperr.Wrap(apperr.CodeValidation, "invalid request body", err)
	}
	return nil
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// GetAvailability handles GET /events/{id}/availability
func (h *RequestHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	avail, err := h.svc.Availability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// CreateRequest handles POST /events/{id}/requests
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in model.CreateRequestInput
	if err := h.decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.svc.CreateRequest(r.Context(), chi.URLParam(r, "id"), CallerID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListRequests handles GET /events/{id}/requests
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	f := service.ListFilter{}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		st := model.Status(v)
		f.Status = &st
	}
	var err error
	if f.Limit, err = queryInt(q.Get("limit"), 0); err != nil {
		writeErrorMsg(w, apperr.CodeValidation, "limit must be an integer")
		return
	}
	if f.Offset, err = queryInt(q.Get("offset"), 0); err != nil {
		writeErrorMsg(w, apperr.CodeValidation, "offset must be an integer")
		return
	}

	page, err := h.svc.ListRequests(r.Context(), chi.URLParam(r, "id"), CallerID(r.Context()), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetRequest handles GET /events/{id}/requests/{reqID}
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.GetRequest(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "reqID"), CallerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Approve handles POST /events/{id}/requests/{reqID}/approve
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Approve)
}

// Decline handles POST /events/{id}/requests/{reqID}/decline
func (h *RequestHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Decline)
}

// Waitlist handles POST /events/{id}/requests/{reqID}/waitlist
func (h *RequestHandler) Waitlist(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Waitlist)
}

// Cancel handles POST /events/{id}/requests/{reqID}/cancel
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, eventID, requestID, callerID string) (*model.JoinRequest, error)) {
	req, err := op(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reqID"), CallerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ExtendHold handles POST /events/{id}/requests/{reqID}/extend
func (h *RequestHandler) ExtendHold(w http.ResponseWriter, r *http.Request) {
	var in model.ExtendHoldInput
	if err := h.decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.svc.ExtendHold(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "reqID"), CallerID(r.Context()), in.ExtensionMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
