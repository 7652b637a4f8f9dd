// Package middleware adapts the guard to net/http request pipelines.
//
// [RateLimit] consults the window counter per request and writes a
// Retry-After rejection on deny. [BruteForceGate] rejects requests for
// identities inside an active lockout before the handler runs. Both
// compose as standard func(http.Handler) http.Handler wrappers, so they
// work with chi, gorilla, or plain http.ServeMux routing.
package middleware
