package authguard

import (
	"net/http"
	"time"
)

// Policy is an immutable rate-limit configuration applied to a class of
// endpoints. Policies are plain values: sharing them across goroutines is
// safe, and callers receive copies, never references into guard state.
type Policy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
	Message     string
	StatusCode  int
}

// Shipped presets. Window and budget per endpoint class; all reject with
// 429 and a class-specific message.
var (
	// PolicyLogin throttles credential submission.
	PolicyLogin = Policy{
		Name:        "login",
		Window:      15 * time.Minute,
		MaxRequests: 5,
		Message:     "too many login attempts, please try again later",
		StatusCode:  http.StatusTooManyRequests,
	}

	// PolicyPasswordReset throttles reset-token requests, which fan out
	// to email delivery.
	PolicyPasswordReset = Policy{
		Name:        "password-reset",
		Window:      time.Hour,
		MaxRequests: 3,
		Message:     "too many password reset requests, please try again later",
		StatusCode:  http.StatusTooManyRequests,
	}

	// PolicyTwoFactor throttles two-factor code verification.
	PolicyTwoFactor = Policy{
		Name:        "2fa",
		Window:      10 * time.Minute,
		MaxRequests: 10,
		Message:     "too many verification attempts, please try again later",
		StatusCode:  http.StatusTooManyRequests,
	}

	// PolicyGeneralAPI throttles authenticated API traffic per client.
	PolicyGeneralAPI = Policy{
		Name:        "general-api",
		Window:      time.Minute,
		MaxRequests: 100,
		Message:     "too many requests, please slow down",
		StatusCode:  http.StatusTooManyRequests,
	}
)

func (p Policy) valid() bool {
	return p.Window > 0 && p.MaxRequests > 0
}
