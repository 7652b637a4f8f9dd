package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	authguard "github.com/farmstack/authguard"
)

type rejection struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// RateLimit enforces the policy per (client, route) on every request. The
// client key prefers the forwarded-for header so the guard stays effective
// behind reverse proxies; the route key is the request path.
//
// On deny the response carries the policy's status code and message, a
// Retry-After header, and a JSON body with the retry interval. A guard
// backend failure fails open: abuse deterrence is not worth an outage.
func RateLimit(guard *authguard.Guard, policy authguard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard == nil {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := guard.Check(r.Context(), ClientIP(r), r.URL.Path, policy)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				writeRejection(w, decision.StatusCode, decision.Message, decision.RetryAfterSeconds)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BruteForceGate rejects requests whose identity is inside an active
// lockout, before credentials are examined. The identity function extracts
// the lockout key from the request (form field, JSON body decoded upstream,
// or the client address); an empty identity passes through.
func BruteForceGate(guard *authguard.Guard, identity func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard == nil || identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			id := identity(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			blocked, err := guard.IsBlocked(r.Context(), id)
			if err != nil || !blocked {
				next.ServeHTTP(w, r)
				return
			}

			remaining, _ := guard.RemainingLockoutSeconds(r.Context(), id)
			msg := "account temporarily locked, try again in " + strconv.Itoa(remaining) + " seconds"
			writeRejection(w, http.StatusTooManyRequests, msg, remaining)
		})
	}
}

// ClientIP resolves the client identity for rate-limit keys: the first
// comma-separated value of X-Forwarded-For, then X-Real-IP, then the
// transport peer address.
func ClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func writeRejection(w http.ResponseWriter, status int, message string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{
		Error:             message,
		RetryAfterSeconds: retryAfter,
	})
}
