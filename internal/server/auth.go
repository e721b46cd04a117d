package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/rockybot-go/internal/logging"
)

// realm is the Bearer challenge realm.
const realm = "rockybot"

// authMiddleware requires "Authorization: Bearer <apiKey>" on the wrapped
// route. An empty apiKey disables the check; New logs that once at startup.
//
// Rejections are 401 with a WWW-Authenticate challenge and the usual
// {success:false, message} body. Token values are never logged.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		token := bearerToken(r)
		switch {
		case token == "":
			log.Warn("auth: missing Authorization header", slog.String("path", r.URL.Path))
			unauthorized(w, `Bearer realm="`+realm+`"`, "authorization required")
			return
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			log.Warn("auth: invalid token", slog.String("path", r.URL.Path), slog.Bool("token_present", true))
			unauthorized(w, `Bearer realm="`+realm+`" error="invalid_token"`, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// unauthorized writes a 401 with the given challenge.
func unauthorized(w http.ResponseWriter, challenge, msg string) {
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{Message: msg})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns an empty string if the header is absent or malformed.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
