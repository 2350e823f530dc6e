package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatherup/admission/internal/apperr"
	"github.com/gatherup/admission/internal/model"
)

// Memory is an in-process Store. Each event carries its own mutex, so Atomic
// serializes decisions per event exactly like the row lock the PostgreSQL
// implementation takes, and the same service-layer tests can exercise both
// the algorithms and their race behavior without a database.
type Memory struct {
	mu           sync.RWMutex
	events       map[string]*model.Event
	requests     map[string]*model.JoinRequest
	participants map[string]*model.Participant // keyed by eventID+"/"+userID
	audits       []model.AuditEntry
	locks        map[string]*sync.Mutex
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		events:       make(map[string]*model.Event),
		requests:     make(map[string]*model.JoinRequest),
		participants: make(map[string]*model.Participant),
		locks:        make(map[string]*sync.Mutex),
	}
}

// SeedEvent registers an event. Events are external to the engine, so tests
// and local runs plant them directly.
func (m *Memory) SeedEvent(ev model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := ev
	m.events[ev.ID] = &cp
	if _, ok := m.locks[ev.ID]; !ok {
		m.locks[ev.ID] = &sync.Mutex{}
	}
}

// SeedParticipant registers a participant, e.g. the host's implicit row.
func (m *Memory) SeedParticipant(p model.Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.participants[p.EventID+"/"+p.UserID] = &cp
}

// SeedRequest plants a request directly, bypassing admission control. Test
// hook for staging states that normal operation reaches only through
// history (capacity edits, lapsed holds).
func (m *Memory) SeedRequest(req model.JoinRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := req
	m.requests[req.ID] = &cp
}

// SetHoldExpiry rewrites a request's hold expiry. Test hook for simulating
// lapsed holds without waiting for wall-clock time.
func (m *Memory) SetHoldExpiry(requestID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.requests[requestID]; ok {
		req.HoldExpiresAt = at
	}
}

// Participants returns copies of the event's participant records.
func (m *Memory) Participants(eventID string) []model.Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Participant
	for _, p := range m.participants {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	return out
}

// Audits returns copies of a request's audit entries in append order.
func (m *Memory) Audits(requestID string) []model.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.AuditEntry
	for _, a := range m.audits {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out
}

func (m *Memory) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "event not found")
	}
	cp := *ev
	return &cp, nil
}

func (m *Memory) Atomic(ctx context.Context, eventID string, fn func(tx Tx, ev *model.Event) error) error {
	m.mu.RLock()
	ev, ok := m.events[eventID]
	lock := m.locks[eventID]
	m.mu.RUnlock()
	if !ok {
		return apperr.New(apperr.CodeNotFound, "event not found")
	}

	lock.Lock()
	defer lock.Unlock()

	cp := *ev
	tx := &memTx{m: m, eventID: eventID}
	if err := fn(tx, &cp); err != nil {
		return err // staged writes discarded, nothing partial
	}
	tx.commit()
	return nil
}

func (m *Memory) ListRequests(ctx context.Context, eventID string, f ListFilter) ([]model.JoinRequest, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []model.JoinRequest
	for _, req := range m.requests {
		if req.EventID != eventID {
			continue
		}
		if f.Status != nil && req.EffectiveStatus(f.Now) != *f.Status {
			continue
		}
		matched = append(matched, *req)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := f.Offset
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}

func (m *Memory) GetRequest(ctx context.Context, eventID, requestID string) (*model.JoinRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[requestID]
	if !ok || req.EventID != eventID {
		return nil, apperr.New(apperr.CodeNotFound, "request not found")
	}
	cp := *req
	return &cp, nil
}

// memTx stages writes and applies them only on commit, mirroring the
// rollback guarantee of a real transaction. Reads see committed state; the
// service layer never reads back its own writes within one atomic unit.
type memTx struct {
	m       *Memory
	eventID string
	staged  []func()
}

func (t *memTx) commit() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, apply := range t.staged {
		apply()
	}
}

func (t *memTx) ConfirmedTotal(ctx context.Context) (int, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	sum := 0
	for _, p := range t.m.participants {
		if p.EventID == t.eventID && p.Status == model.ParticipantStatusAccepted {
			sum += p.PartySize
		}
	}
	return sum, nil
}

func (t *memTx) HeldTotal(ctx context.Context, now time.Time, excludeID string) (int, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	sum := 0
	for _, req := range t.m.requests {
		if req.EventID != t.eventID || req.ID == excludeID {
			continue
		}
		if req.HoldsCapacity(now) {
			sum += req.PartySize
		}
	}
	return sum, nil
}

func (t *memTx) OpenRequestByUser(ctx context.Context, userID string, now time.Time) (*model.JoinRequest, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	for _, req := range t.m.requests {
		if req.EventID == t.eventID && req.UserID == userID && req.Open(now) {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memTx) RequestByID(ctx context.Context, requestID string) (*model.JoinRequest, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	req, ok := t.m.requests[requestID]
	if !ok || req.EventID != t.eventID {
		return nil, apperr.New(apperr.CodeNotFound, "request not found")
	}
	cp := *req
	return &cp, nil
}

func (t *memTx) InsertRequest(ctx context.Context, req *model.JoinRequest) error {
	cp := *req
	t.staged = append(t.staged, func() {
		t.m.requests[cp.ID] = &cp
	})
	return nil
}

func (t *memTx) UpdateRequest(ctx context.Context, req *model.JoinRequest) error {
	cp := *req
	t.staged = append(t.staged, func() {
		t.m.requests[cp.ID] = &cp
	})
	return nil
}

func (t *memTx) UpsertParticipant(ctx context.Context, p *model.Participant) error {
	cp := *p
	t.staged = append(t.staged, func() {
		t.m.participants[cp.EventID+"/"+cp.UserID] = &cp
	})
	return nil
}

func (t *memTx) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	cp := *entry
	t.staged = append(t.staged, func() {
		t.m.audits = append(t.m.audits, cp)
	})
	return nil
}
