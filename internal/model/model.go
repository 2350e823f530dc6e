// Package model defines the core domain types for the admission engine.
package model

import "time"

// EventStatusPublished is the only event status that accepts new requests.
const EventStatusPublished = "published"

// Event is the capacity-bounded target of join requests. Events are created
// and edited elsewhere; this engine only reads them.
type Event struct {
	ID            string    `json:"id"`
	HostID        string    `json:"host_id"`
	Status        string    `json:"status"`
	CapacityTotal *int      `json:"capacity_total"` // nil means unlimited
	MaxPartySize  int       `json:"max_party_size"`
	CreatedAt     time.Time `json:"created_at"`
}

// Unlimited reports whether the event has no capacity bound.
func (e *Event) Unlimited() bool {
	return e.CapacityTotal == nil
}

// Published reports whether the event currently accepts join requests.
func (e *Event) Published() bool {
	return e.Status == EventStatusPublished
}

// JoinRequest is a guest's request for party_size spots at an event. While
// pending it holds capacity until hold_expires_at.
type JoinRequest struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	PartySize     int       `json:"party_size"`
	Note          string    `json:"note,omitempty"`
	Status        Status    `json:"status"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HoldExpired reports whether a pending request's hold has lapsed. Only
// pending requests carry a hold; for every other status this is false.
func (r *JoinRequest) HoldExpired(now time.Time) bool {
	return r.Status == StatusPending && !r.HoldExpiresAt.After(now)
}

// EffectiveStatus classifies the request at read time: a pending request
// whose hold has lapsed reads as expired, everything else as stored.
// Expiry is never written back; it is always derived through this helper.
func (r *JoinRequest) EffectiveStatus(now time.Time) Status {
	if r.HoldExpired(now) {
		return StatusExpired
	}
	return r.Status
}

// Open reports whether the request blocks the same user from filing another
// request for the same event. Pending (with a live hold) and waitlisted
// requests are open; expired and terminal requests are not.
func (r *JoinRequest) Open(now time.Time) bool {
	switch r.EffectiveStatus(now) {
	case StatusPending, StatusWaitlisted:
		return true
	}
	return false
}

// HoldsCapacity reports whether the request counts toward the event's held
// total: pending with an unexpired hold.
func (r *JoinRequest) HoldsCapacity(now time.Time) bool {
	return r.Status == StatusPending && r.HoldExpiresAt.After(now)
}

// ParticipantStatusAccepted is the status written for approved requests.
const ParticipantStatusAccepted = "accepted"

// Participant is the confirmed-attendance record written on approval. The
// host's own participant row is created outside this engine.
type Participant struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	PartySize int       `json:"party_size"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Availability is the derived capacity snapshot for an event. It is computed
// transactionally and never persisted. When Unlimited is true the Total and
// Available fields are zero and carry no meaning.
type Availability struct {
	Total     int  `json:"total"`
	Confirmed int  `json:"confirmed"`
	Held      int  `json:"held"`
	Available int  `json:"available"`
	Unlimited bool `json:"unlimited,omitempty"`
}

// AuditEntry records one lifecycle step of a join request. FromStatus is
// empty for the creation entry. Entries are append-only.
type AuditEntry struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	EventID    string    `json:"event_id"`
	ActorID    string    `json:"actor_id"`
	FromStatus Status    `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateRequestInput is the payload for creating a join request. Upper
// bounds on party size and note length are configuration-driven and
// enforced in the service layer.
type CreateRequestInput struct {
	PartySize int    `json:"party_size" validate:"required,gte=1"`
	Note      string `json:"note"`
}

// ExtendHoldInput is the payload for extending a pending request's hold.
type ExtendHoldInput struct {
	ExtensionMinutes int `json:"extension_minutes" validate:"required,gte=1"`
}

// RequestPage is one page of a host's request listing. TotalCount counts all
// requests matching the filter, independent of the pagination window.
type RequestPage struct {
	Requests   []JoinRequest `json:"requests"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
