package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gatherup/admission/internal/config"
	"github.com/gatherup/admission/internal/model"
	"github.com/gatherup/admission/internal/service"
	"github.com/gatherup/admission/internal/store"
)

const testSecret = "test-secret"

func testRouter(t *testing.T, cfg *config.Config) (http.Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	capacity := 8
	mem.SeedEvent(model.Event{
		ID:            "ev1",
		HostID:        "host",
		Status:        model.EventStatusPublished,
		CapacityTotal: &capacity,
		MaxPartySize:  10,
	})
	mem.SeedParticipant(model.Participant{
		ID: "p-host", EventID: "ev1", UserID: "host",
		PartySize: 1, Status: model.ParticipantStatusAccepted,
		JoinedAt: time.Now().UTC(),
	})

	h := New(service.New(mem, cfg))

	r := chi.NewRouter()
	r.Route("/events/{id}", func(r chi.Router) {
		r.Get("/availability", h.GetAvailability)
		r.Group(func(r chi.Router) {
			r.Use(Auth(testSecret))
			r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
			r.Post("/requests", h.CreateRequest)
			r.Get("/requests", h.ListRequests)
			r.Route("/requests/{reqID}", func(r chi.Router) {
				r.Get("/", h.GetRequest)
				r.Post("/approve", h.Approve)
				r.Post("/decline", h.Decline)
				r.Post("/waitlist", h.Waitlist)
				r.Post("/cancel", h.Cancel)
				r.Post("/extend", h.ExtendHold)
			})
		})
	})
	return r, mem
}

func testCfg() *config.Config {
	return &config.Config{
		HoldDuration:        30 * time.Minute,
		MinExtensionMinutes: 1,
		MaxExtensionMinutes: 120,
		DefaultMaxPartySize: 10,
		MaxNoteLength:       500,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
	}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, router http.Handler, method, path, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, subject))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeRequest(t *testing.T, rec *httptest.ResponseRecorder) model.JoinRequest {
	t.Helper()
	var req model.JoinRequest
	if err := json.NewDecoder(rec.Body).Decode(&req); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return req
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Code
}

func TestAvailabilityIsPublic(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	rec := do(t, router, http.MethodGet, "/events/ev1/availability", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var avail model.Availability
	if err := json.NewDecoder(rec.Body).Decode(&avail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if avail.Total != 8 || avail.Confirmed != 1 || avail.Available != 7 {
		t.Fatalf("unexpected snapshot %+v", avail)
	}

	rec = do(t, router, http.MethodGet, "/events/missing/availability", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateRequestRequiresAuth(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	rec := do(t, router, http.MethodPost, "/events/ev1/requests", "", `{"party_size":2}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/events/ev1/requests", strings.NewReader(`{"party_size":2}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec2.Code)
	}
}

func TestCreateRequestLifecycle(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	rec := do(t, router, http.MethodPost, "/events/ev1/requests", "alice", `{"party_size":4,"note":"two couples"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	created := decodeRequest(t, rec)
	if created.Status != model.StatusPending || created.PartySize != 4 {
		t.Fatalf("unexpected request %+v", created)
	}
	if created.HoldExpiresAt.IsZero() {
		t.Fatal("response must include the hold expiry")
	}

	// Duplicate open request.
	rec = do(t, router, http.MethodPost, "/events/ev1/requests", "alice", `{"party_size":1}`)
	if rec.Code != http.StatusConflict || errCode(t, rec) != "DUPLICATE_REQUEST" {
		t.Fatalf("expected 409 DUPLICATE_REQUEST, got %d", rec.Code)
	}

	// Capacity exhausted: 4 held + 1 confirmed leaves 3.
	rec = do(t, router, http.MethodPost, "/events/ev1/requests", "bob", `{"party_size":5}`)
	if rec.Code != http.StatusConflict || errCode(t, rec) != "CAPACITY_EXCEEDED" {
		t.Fatalf("expected 409 CAPACITY_EXCEEDED, got %d", rec.Code)
	}

	// Approve and read back.
	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/approve", "host", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(t, router, http.MethodGet, "/events/ev1/requests/"+created.ID, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if got := decodeRequest(t, rec); got.Status != model.StatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
}

func TestCreateRequestBadPayload(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	for _, body := range []string{
		`{"party_size":0}`,
		`{"party_size":-3}`,
		`not json`,
		`{"party_size":1,"bogus_field":true}`,
	} {
		rec := do(t, router, http.MethodPost, "/events/ev1/requests", "alice", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestTransitionEndpoints(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	rec := do(t, router, http.MethodPost, "/events/ev1/requests", "alice", `{"party_size":2}`)
	created := decodeRequest(t, rec)

	// Guests cannot act for the host.
	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/decline", "alice", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/waitlist", "host", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("waitlist: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/cancel", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}

	// Terminal now.
	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/approve", "host", "")
	if rec.Code != http.StatusConflict || errCode(t, rec) != "INVALID_STATE_TRANSITION" {
		t.Fatalf("expected 409 INVALID_STATE_TRANSITION, got %d", rec.Code)
	}
}

func TestExtendHoldEndpoint(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	rec := do(t, router, http.MethodPost, "/events/ev1/requests", "alice", `{"party_size":1}`)
	created := decodeRequest(t, rec)

	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/extend", "host", `{"extension_minutes":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("extend: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	extended := decodeRequest(t, rec)
	if !extended.HoldExpiresAt.After(created.HoldExpiresAt) {
		t.Fatal("extension must push the expiry out")
	}

	rec = do(t, router, http.MethodPost, "/events/ev1/requests/"+created.ID+"/extend", "host", `{"extension_minutes":200}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range extension, got %d", rec.Code)
	}
}

func TestListRequestsEndpoint(t *testing.T) {
	router, _ := testRouter(t, testCfg())

	do(t, router, http.MethodPost, "/events/ev1/requests", "alice", `{"party_size":2}`)
	do(t, router, http.MethodPost, "/events/ev1/requests", "bob", `{"party_size":1}`)

	rec := do(t, router, http.MethodGet, "/events/ev1/requests?limit=1", "host", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var page model.RequestPage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalCount != 2 || len(page.Requests) != 1 {
		t.Fatalf("expected total 2 / page 1, got %d/%d", page.TotalCount, len(page.Requests))
	}

	rec = do(t, router, http.MethodGet, "/events/ev1/requests", "alice", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("guest listing: expected 403, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/events/ev1/requests?limit=nope", "host", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testCfg()
	cfg.RateLimitRPS = 0.01
	cfg.RateLimitBurst = 2
	router, _ := testRouter(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := do(t, router, http.MethodGet, "/events/ev1/requests", "host", "")
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %v", codes)
	}
}
