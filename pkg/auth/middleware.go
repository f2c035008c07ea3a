package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// Authenticator verifies the credentials of one Authorization scheme.
type Authenticator interface {
	// Scheme is the Authorization scheme name, e.g. "Basic".
	Scheme() string
	Authenticate(ctx context.Context, credentials string) (Identity, error)
}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// AnonymousUsername is treated as no credentials at all.
	AnonymousUsername string
	// Realm is advertised in WWW-Authenticate challenges.
	Realm  string
	Logger zerolog.Logger
}

// Middleware stores the caller's Identity in the request context. Requests
// without an Authorization header continue anonymously; invalid credentials
// are answered with 401.
func Middleware(cfg MiddlewareConfig, authenticators ...Authenticator) func(http.Handler) http.Handler {
	realm := cfg.Realm
	if realm == "" {
		realm = "rdap"
	}
	logger := cfg.Logger.With().Str("component", "auth").Logger()

	byScheme := make(map[string]Authenticator, len(authenticators))
	challenges := make([]string, 0, len(authenticators))
	for _, a := range authenticators {
		if a == nil {
			continue
		}
		byScheme[strings.ToLower(a.Scheme())] = a
		challenges = append(challenges, a.Scheme()+` realm="`+realm+`"`)
	}
	if len(challenges) == 0 {
		challenges = append(challenges, `Basic realm="`+realm+`"`)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Anonymous())))
				return
			}

			scheme, credentials, _ := strings.Cut(header, " ")
			authenticator, ok := byScheme[strings.ToLower(scheme)]
			if !ok {
				logger.Debug().Str("scheme", scheme).Msg("Unsupported authorization scheme")
				writeUnauthorized(w, challenges, "Unsupported authorization scheme")
				return
			}

			id, err := authenticator.Authenticate(r.Context(), strings.TrimSpace(credentials))
			if err != nil {
				logger.Info().
					Str("scheme", authenticator.Scheme()).
					Str("remote_addr", r.RemoteAddr).
					Msg("Authentication failed")
				writeUnauthorized(w, challenges, "Invalid credentials")
				return
			}

			id = normalizeAnonymous(id, cfg.AnonymousUsername)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, challenges []string, description string) {
	for _, challenge := range challenges {
		w.Header().Add("WWW-Authenticate", challenge)
	}
	w.Header().Set("Content-Type", "application/rdap+json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.ErrorResponse{
		Conformance: []string{domain.ConformanceLevel},
		ErrorCode:   http.StatusUnauthorized,
		Title:       http.StatusText(http.StatusUnauthorized),
		Description: []string{description},
	})
}
