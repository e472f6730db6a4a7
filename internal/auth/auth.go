// Package auth guards the society admin API with HTTP Basic Auth backed by
// Argon2id password hashes.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/argon2"

	appLog "hive/internal/log"
)

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// ErrMalformedHash is returned for hashes not in the
// $argon2id$v=19$m=..,t=..,p=..$salt$hash form.
var ErrMalformedHash = errors.New("auth: malformed argon2id hash")

// HashPassword creates an Argon2id hash of the password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword reports whether password matches an Argon2id hash.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	got := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// Admin is an authenticated society admin.
type Admin struct {
	Username  string
	SocietyID string
}

// Account is a configured admin login.
type Account struct {
	Username     string
	PasswordHash string
	SocietyID    string
}

// Authenticator checks Basic Auth credentials against configured accounts.
type Authenticator struct {
	realm    string
	accounts map[string]Account
}

// NewAuthenticator indexes accounts by username. Accounts with a malformed
// hash are rejected up front so a typo cannot silently lock an admin out.
func NewAuthenticator(realm string, accounts []Account) (*Authenticator, error) {
	a := &Authenticator{realm: realm, accounts: make(map[string]Account, len(accounts))}
	for _, acc := range accounts {
		if _, err := VerifyPassword("", acc.PasswordHash); err != nil {
			return nil, fmt.Errorf("auth: account %q: %w", acc.Username, err)
		}
		a.accounts[acc.Username] = acc
	}
	return a, nil
}

// Enabled reports whether any admin account is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.accounts) > 0
}

// Authenticate verifies a username/password pair.
func (a *Authenticator) Authenticate(username, password string) (Admin, bool) {
	if a == nil {
		return Admin{}, false
	}
	acc, ok := a.accounts[username]
	if !ok {
		return Admin{}, false
	}
	match, err := VerifyPassword(password, acc.PasswordHash)
	if err != nil {
		appLog.Error("admin password verify failed", err, "user", username)
		return Admin{}, false
	}
	if !match {
		return Admin{}, false
	}
	return Admin{Username: acc.Username, SocietyID: acc.SocietyID}, true
}

// Require wraps next so it only runs for an authenticated admin, who is then
// available through FromContext. A nil or empty Authenticator rejects every
// request.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	realm := "Hive"
	if a != nil && a.realm != "" {
		realm = a.realm
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		var admin Admin
		if ok {
			admin, ok = a.Authenticate(user, pass)
		}
		if !ok {
			appLog.Warn("admin auth failed", "remote", r.RemoteAddr, "user", user)
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), admin)))
	})
}

type ctxKey struct{}

// NewContext returns ctx carrying admin.
func NewContext(ctx context.Context, admin Admin) context.Context {
	return context.WithValue(ctx, ctxKey{}, admin)
}

// FromContext returns the admin stored by Require.
func FromContext(ctx context.Context) (Admin, bool) {
	admin, ok := ctx.Value(ctxKey{}).(Admin)
	return admin, ok
}
