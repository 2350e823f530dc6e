package model

// Status is the lifecycle state of a JoinRequest.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"

	// StatusExpired is a read-time classification of pending requests whose
	// hold has lapsed. It is never stored.
	StatusExpired Status = "expired"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined, StatusWaitlisted,
		StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
// Expired counts as terminal: explicit actions against an expired request
// must be rejected even though the stored row still reads pending.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// transitions is the closed transition table. Anything not listed here is
// rejected.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusApproved:   true,
		StatusDeclined:   true,
		StatusWaitlisted: true,
		StatusCancelled:  true,
	},
	StatusWaitlisted: {
		StatusApproved:  true,
		StatusDeclined:  true,
		StatusCancelled: true,
	},
}

// CanTransition reports whether the table permits moving from one status to
// another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}
