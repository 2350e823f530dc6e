package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:             http.StatusBadRequest,
		CodeAuthRequired:           http.StatusUnauthorized,
		CodeForbidden:              http.StatusForbidden,
		CodeNotFound:               http.StatusNotFound,
		CodeDuplicateRequest:       http.StatusConflict,
		CodeCapacityExceeded:       http.StatusConflict,
		CodeInvalidStateTransition: http.StatusConflict,
		CodeHoldExpired:            http.StatusConflict,
		CodeInternal:               http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: expected %d, got %d", code, want, got)
		}
	}
}

func TestCodeOf(t *testing.T) {
	err := New(CodeNotFound, "event not found")
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", CodeOf(err))
	}

	wrapped := fmt.Errorf("handling request: %w", err)
	if CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("code lost through wrapping: %s", CodeOf(wrapped))
	}

	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Fatal("plain errors must read as internal")
	}
	if !HasCode(wrapped, CodeNotFound) {
		t.Fatal("HasCode must see through wrapping")
	}
}

func TestMessageOf(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "commit transaction", cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must survive errors.Is")
	}
	if MessageOf(err) != "commit transaction" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
	// Uncoded errors collapse to a generic message so internals never leak.
	if MessageOf(cause) != "internal error" {
		t.Fatalf("unexpected message %q", MessageOf(cause))
	}
}
