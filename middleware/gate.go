package middleware

import (
	"context"
	"net"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
)

type decisionContextKey struct{}

// DecisionFromContext returns the credential decision injected by [Gate]
// for the current request.
func DecisionFromContext(ctx context.Context) (*goGate.Decision, bool) {
	dec, ok := ctx.Value(decisionContextKey{}).(*goGate.Decision)
	return dec, ok
}

// Handlers customizes how [Gate] responds to each decision state. Any nil
// handler falls back to passing the request through to the wrapped handler,
// so a zero Handlers value never blocks traffic; enforcement is opt-in.
type Handlers struct {
	// ValidToken, when set, handles the request instead of the wrapped
	// handler after a successful resolution.
	ValidToken func(w http.ResponseWriter, r *http.Request, decision *goGate.Decision)

	// InvalidToken, when set, handles the request when credentials were
	// proven invalid. The reason distinguishes missing, malformed,
	// tampered, and rejected credentials.
	InvalidToken func(w http.ResponseWriter, r *http.Request, reason goGate.InvalidReason)

	// Error, when set, handles the request when resolution failed on a
	// dependency error. Invalid credentials never reach this handler.
	Error func(w http.ResponseWriter, r *http.Request, err error)
}

// Gate returns middleware that resolves the session cookie on every request
// and dispatches on the decision state. A valid decision is injected into the
// request context and marked on the request headers; cookie rewrites
// (refresh, key migration) are attached to the response before dispatch.
//
// Nested gates do not re-verify: when a decision is already present in the
// request context the middleware passes straight through.
func Gate(gate *goGate.Gate, handlers Handlers) func(http.Handler) http.Handler {
	var cfg goGate.Config
	if gate != nil {
		cfg = gate.Config()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				if handlers.Error != nil {
					handlers.Error(w, r, goGate.ErrGateNotReady)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := DecisionFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			var raw string
			if c, err := r.Cookie(gate.CookieName()); err == nil {
				raw = c.Value
			}

			ctx := goGate.WithClientIP(r.Context(), clientIP(r))
			dec := gate.Resolve(ctx, raw)

			if dec.SetCookie != nil {
				http.SetCookie(w, dec.SetCookie)
			}

			switch dec.State {
			case goGate.DecisionValid:
				if cfg.Routes.VerifiedHeader != "" {
					r.Header.Set(cfg.Routes.VerifiedHeader, "1")
				}
				r = r.WithContext(context.WithValue(r.Context(), decisionContextKey{}, dec))
				if handlers.ValidToken != nil {
					handlers.ValidToken(w, r, dec)
					return
				}
				next.ServeHTTP(w, r)
			case goGate.DecisionInvalid:
				if cfg.Routes.VerifiedHeader != "" {
					r.Header.Del(cfg.Routes.VerifiedHeader)
				}
				if handlers.InvalidToken != nil {
					handlers.InvalidToken(w, r, dec.Reason)
					return
				}
				next.ServeHTTP(w, r)
			default:
				if cfg.Routes.VerifiedHeader != "" {
					r.Header.Del(cfg.Routes.VerifiedHeader)
				}
				if handlers.Error != nil {
					handlers.Error(w, r, dec.Err)
					return
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireValid returns [Gate] middleware preconfigured to reject anything
// but a valid decision: invalid credentials get 401, dependency failures
// get 503.
func RequireValid(gate *goGate.Gate) func(http.Handler) http.Handler {
	return Gate(gate, Handlers{
		InvalidToken: func(w http.ResponseWriter, _ *http.Request, _ goGate.InvalidReason) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		},
		Error: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		},
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
