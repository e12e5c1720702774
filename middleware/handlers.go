package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
)

const refreshTokenHeader = "X-Refresh-Token"

type loginResponse struct {
	Status  string `json:"status"`
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// LoginHandler returns the endpoint that exchanges a provider-issued ID token
// for a session cookie. The token arrives as a bearer Authorization header;
// the refresh token, when the client has one, arrives in X-Refresh-Token.
func LoginHandler(gate *goGate.Gate) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if gate == nil {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		idToken, _ := bearerToken(r.Header.Get("Authorization"))
		refreshToken := r.Header.Get(refreshTokenHeader)

		ctx := goGate.WithClientIP(r.Context(), clientIP(r))
		dec := gate.Login(ctx, idToken, refreshToken)

		switch dec.State {
		case goGate.DecisionValid:
			http.SetCookie(w, dec.SetCookie)
			writeJSON(w, http.StatusOK, loginResponse{
				Status:  "ok",
				Subject: dec.Claims.Subject,
			})
		case goGate.DecisionInvalid:
			writeJSON(w, http.StatusUnauthorized, loginResponse{
				Status: "rejected",
				Reason: dec.Reason.String(),
			})
		default:
			writeJSON(w, http.StatusServiceUnavailable, loginResponse{
				Status: "error",
			})
		}
	})
}

// LogoutHandler returns the endpoint that clears the session cookie. Both
// POST and GET are accepted so plain link-based logout works. When the
// request passed through [Gate] first, the resolved subject is carried into
// the audit trail; otherwise logout is anonymous.
func LogoutHandler(gate *goGate.Gate) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if gate == nil {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		var subject string
		if dec, ok := DecisionFromContext(r.Context()); ok && dec.Valid() && dec.Claims != nil {
			subject = dec.Claims.Subject
		}

		ctx := goGate.WithClientIP(r.Context(), clientIP(r))
		http.SetCookie(w, gate.Logout(ctx, subject))
		writeJSON(w, http.StatusOK, loginResponse{Status: "ok", Subject: subject})
	})
}

// Register mounts the login and logout endpoints on mux at the paths the
// gate was configured with.
func Register(mux *http.ServeMux, gate *goGate.Gate) {
	if mux == nil || gate == nil {
		return
	}
	cfg := gate.Config()
	mux.Handle(cfg.Routes.LoginPath, LoginHandler(gate))
	mux.Handle(cfg.Routes.LogoutPath, LogoutHandler(gate))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
