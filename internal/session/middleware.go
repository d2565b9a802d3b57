package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey struct{}

// Middleware resolves the caller's Session and stores it in the request context.
// The Storefront-Session header takes precedence over "Authorization: Bearer".
// Requests with neither continue as anonymous; handlers decide what needs a login.
// A malformed Storefront-Session header is rejected with 400.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s Session

			if header := r.Header.Get(HeaderName); header != "" {
				parsed, err := ParseHeader(header)
				if err != nil {
					logger.Warn("invalid session header",
						slog.String("error", err.Error()))
					writeSessionError(w, "Invalid "+HeaderName+" header: "+err.Error())
					return
				}
				s = parsed
			} else if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				s = Session{Token: token}
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
		})
	}
}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(contextKey{}).(Session)
	return s
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func writeSessionError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = "INVALID_SESSION"
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}
