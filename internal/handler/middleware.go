package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gatherup/admission/internal/apperr"
)

type ctxKey int

const callerKey ctxKey = iota

// CallerID returns the authenticated caller's id, or "" when the request
// passed through no Auth middleware.
func CallerID(ctx context.Context) string {
	if id, ok := ctx.Value(callerKey).(string); ok {
		return id
	}
	return ""
}

// WithCaller returns a context carrying the caller id. Exported for tests.
func WithCaller(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerKey, callerID)
}

// Auth resolves the caller's identity from an HS256 bearer token issued by
// the surrounding system. The engine trusts the token's subject claim; role
// (host vs. guest) is derived downstream from event ownership.
func Auth(secret string) func(http.Handler) http.Handler {
	keyFn := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeErrorMsg(w, apperr.CodeAuthRequired, "missing bearer token")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFn,
				jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid || claims.Subject == "" {
				writeErrorMsg(w, apperr.CodeAuthRequired, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), claims.Subject)))
		})
	}
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Logger is a structured access log: method, path, status, duration,
// request id.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s reqid=%s",
			r.Method, r.URL.Path, rec.status, time.Since(start), chimiddleware.GetReqID(r.Context()))
	})
}

// CORS is a permissive CORS policy for browser clients.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
