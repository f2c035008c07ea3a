package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pcarana/rdap-server/pkg/domain"
)

func newTokens(t *testing.T) *TokenService {
	t.Helper()
	tokens, err := NewTokenService("test-secret", "", time.Hour)
	require.NoError(t, err)
	return tokens
}

func newBasic(t *testing.T) *BasicAuthenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewBasicAuthenticator(map[string]string{"REG-1": string(hash), "anonymous": string(hash)})
}

func basicHeader(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := newTokens(t)

	signed, expiresAt, err := tokens.Issue("REG-1", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "REG-1", claims.Username)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenRejections(t *testing.T) {
	tokens := newTokens(t)

	other, err := NewTokenService("other-secret", "", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue("REG-1", 0)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenService("test-secret", "someone-else", time.Hour)
	require.NoError(t, err)
	misissued, _, err := wrongIssuer.Issue("REG-1", 0)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "REG-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Username:         "REG-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"foreign":  foreign,
		"issuer":   misissued,
		"expired":  expired,
		"none":     none,
		"garbage":  "not.a.token",
		"no-parts": "",
	} {
		_, err := tokens.Validate(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, name)
	}

	_, err = NewTokenService(" ", "", 0)
	assert.Error(t, err)

	_, _, err = tokens.Issue("", 0)
	assert.Error(t, err)
}

func TestBasicAuthenticator(t *testing.T) {
	basic := newBasic(t)
	ctx := context.Background()

	id, err := basic.Authenticate(ctx, base64.StdEncoding.EncodeToString([]byte("REG-1:s3cret")))
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "REG-1", Method: "basic"}, id)

	_, err = basic.Authenticate(ctx, base64.StdEncoding.EncodeToString([]byte("REG-1:wrong")))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = basic.Authenticate(ctx, base64.StdEncoding.EncodeToString([]byte("REG-2:s3cret")))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = basic.Authenticate(ctx, "%%%")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = basic.Authenticate(ctx, base64.StdEncoding.EncodeToString([]byte("no-colon")))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoadUsers(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte("REG-1: "+hash+"\n"), 0o600))

	basic, err := LoadUsers(path)
	require.NoError(t, err)
	assert.NoError(t, basic.Verify("REG-1", "s3cret"))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("REG-1: plaintext\n"), 0o600))
	_, err = LoadUsers(bad)
	assert.ErrorContains(t, err, `user "REG-1": not a bcrypt hash`)

	_, err = LoadUsers(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	tokens := newTokens(t)
	signed, _, err := tokens.Issue("REG-1", 0)
	require.NoError(t, err)

	var seen Identity
	handler := Middleware(MiddlewareConfig{AnonymousUsername: "anonymous", Logger: zerolog.Nop()}, newBasic(t), tokens)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	tests := []struct {
		name   string
		header string
		status int
		want   Identity
	}{
		{"no credentials", "", http.StatusNoContent, Anonymous()},
		{"basic", basicHeader("REG-1", "s3cret"), http.StatusNoContent, Identity{Username: "REG-1", Method: "basic"}},
		{"bearer", "Bearer " + signed, http.StatusNoContent, Identity{Username: "REG-1", Method: "bearer"}},
		{"bearer lowercase scheme", "bearer " + signed, http.StatusNoContent, Identity{Username: "REG-1", Method: "bearer"}},
		{"anonymous user", basicHeader("anonymous", "s3cret"), http.StatusNoContent, Anonymous()},
		{"bad password", basicHeader("REG-1", "nope"), http.StatusUnauthorized, Identity{}},
		{"bad token", "Bearer nope", http.StatusUnauthorized, Identity{}},
		{"unknown scheme", "Digest abc", http.StatusUnauthorized, Identity{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Identity{Username: "unset"}
			req := httptest.NewRequest(http.MethodGet, "/domain/example.mx", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusUnauthorized {
				assert.Equal(t, tt.want, seen)
				return
			}

			assert.Equal(t, Identity{Username: "unset"}, seen)
			assert.Equal(t, "application/rdap+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, []string{`Basic realm="rdap"`, `Bearer realm="rdap"`}, rec.Header().Values("WWW-Authenticate"))

			var body domain.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, http.StatusUnauthorized, body.ErrorCode)
			assert.Equal(t, []string{domain.ConformanceLevel}, body.Conformance)
		})
	}
}

func TestRegistrantOwnership(t *testing.T) {
	d := &domain.Domain{
		LDHName: "example.mx",
		Entities: []*domain.Entity{
			{Handle: "REG-1", Roles: []string{domain.RoleRegistrant}},
			{Handle: "TECH-1", Roles: []string{"technical"}},
		},
	}
	owners := RegistrantOwnership{}
	ctx := context.Background()

	assert.True(t, owners.IsOwner(ctx, "reg-1", d))
	assert.False(t, owners.IsOwner(ctx, "TECH-1", d))
	assert.False(t, owners.IsOwner(ctx, "", d))
	assert.True(t, owners.IsOwner(ctx, "TECH-1", &domain.Entity{Handle: "TECH-1"}))
}

const ownershipModule = `package rdap.ownership

default allow := false

allow if {
	some handle in input.object.registrants
	lower(handle) == lower(input.username)
}

allow if {
	input.username == "registry-admin"
}
`

func TestRegoOwnership(t *testing.T) {
	ctx := context.Background()
	owners, err := NewRegoOwnership(ctx, "ownership.rego", ownershipModule, "", zerolog.Nop())
	require.NoError(t, err)

	d := &domain.Domain{
		LDHName:  "example.mx",
		Entities: []*domain.Entity{{Handle: "REG-1", Roles: []string{domain.RoleRegistrant}}},
	}

	assert.True(t, owners.IsOwner(ctx, "reg-1", d))
	assert.True(t, owners.IsOwner(ctx, "registry-admin", d))
	assert.False(t, owners.IsOwner(ctx, "REG-2", d))
	assert.False(t, owners.IsOwner(ctx, "registry-admin", nil))
	assert.False(t, owners.IsOwner(ctx, "REG-2", &domain.Nameserver{LDHName: "ns1.example.mx"}))
}

func TestRegoOwnershipRejectsNonBoolean(t *testing.T) {
	ctx := context.Background()
	owners, err := NewRegoOwnership(ctx, "ownership.rego", "package rdap.ownership\n\nallow := \"yes\"\n", "", zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, owners.IsOwner(ctx, "REG-1", &domain.Entity{Handle: "REG-1"}))
}

func TestRegoOwnershipCompileErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRegoOwnership(ctx, "broken.rego", "package rdap.ownership\n\nallow if {", "", zerolog.Nop())
	assert.ErrorContains(t, err, "parse rego module")

	_, err = LoadRegoOwnership(ctx, filepath.Join(t.TempDir(), "missing.rego"), "", zerolog.Nop())
	assert.Error(t, err)
}
