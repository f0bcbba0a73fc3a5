// Package vault persists the session's token pair and answers expiry
// questions about the access token without a server round-trip.
//
// Token decoding here is read-only: the expiry claim is extracted from the
// token without verifying its signature. Verification is exclusively the
// server's job; the client only needs to predict when the server will
// start rejecting the token. A token that cannot be decoded is treated as
// already expired, never as an error.
package vault

import (
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Persisted keys.
const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyAccessExpiry = "accessTokenExpiry"
)

const (
	// validityBuffer makes IsAccessTokenValid flip to false slightly
	// before the real expiry so in-flight requests don't race it.
	validityBuffer = 60 * time.Second
	// refreshBuffer opens the proactive-refresh window well before the
	// validity buffer closes.
	refreshBuffer = 5 * time.Minute
)

// TokenPair is the stored credential pair. Empty strings mean absent.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Vault stores the token pair durably and derives expiry predicates.
type Vault struct {
	kv  KV
	now func() time.Time
}

// New creates a vault over the given store.
func New(kv KV) *Vault {
	return &Vault{kv: kv, now: time.Now}
}

// Store persists both tokens along with the access token's decoded expiry.
// Storage failures are logged and swallowed: the in-memory session keeps
// working for the lifetime of the process even if persistence is lost.
func (v *Vault) Store(pair TokenPair) {
	if err := v.kv.Write(keyAccessToken, pair.AccessToken); err != nil {
		log.Printf("vault: persisting access token: %v", err)
	}
	if err := v.kv.Write(keyRefreshToken, pair.RefreshToken); err != nil {
		log.Printf("vault: persisting refresh token: %v", err)
	}

	expiry := ""
	if exp, ok := decodeExpiry(pair.AccessToken); ok {
		expiry = strconv.FormatInt(exp.Unix(), 10)
	}
	if err := v.kv.Write(keyAccessExpiry, expiry); err != nil {
		log.Printf("vault: persisting token expiry: %v", err)
	}
}

// Read returns whatever is durably stored. Missing keys yield empty
// fields; Read never fails.
func (v *Vault) Read() TokenPair {
	access, _ := v.kv.Read(keyAccessToken)
	refresh, _ := v.kv.Read(keyRefreshToken)
	return TokenPair{AccessToken: access, RefreshToken: refresh}
}

// AccessToken returns the stored access token, or "" if absent.
func (v *Vault) AccessToken() string {
	access, _ := v.kv.Read(keyAccessToken)
	return access
}

// Clear removes all persisted keys.
func (v *Vault) Clear() {
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyAccessExpiry} {
		if err := v.kv.Delete(key); err != nil {
			log.Printf("vault: clearing %s: %v", key, err)
		}
	}
}

// IsAccessTokenValid reports whether the access token can still be
// presented to the server: present, decodable, and not within 60 seconds
// of its expiry.
func (v *Vault) IsAccessTokenValid() bool {
	exp, ok := v.accessExpiry()
	if !ok {
		return false
	}
	return v.now().Before(exp.Add(-validityBuffer))
}

// ShouldRefresh reports whether the access token is inside the proactive
// five-minute refresh window. It is strictly more eager than
// IsAccessTokenValid: an absent or undecodable token always wants a
// refresh.
func (v *Vault) ShouldRefresh() bool {
	exp, ok := v.accessExpiry()
	if !ok {
		return true
	}
	return !v.now().Before(exp.Add(-refreshBuffer))
}

// accessExpiry resolves the access token's expiry, preferring the
// persisted value written by Store and falling back to decoding the token
// itself. ok is false when there is no token or no usable expiry.
func (v *Vault) accessExpiry() (time.Time, bool) {
	token, _ := v.kv.Read(keyAccessToken)
	if token == "" {
		return time.Time{}, false
	}
	if raw, ok := v.kv.Read(keyAccessExpiry); ok && raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(unix, 0), true
		}
	}
	return decodeExpiry(token)
}

// decodeExpiry extracts the exp claim from a compact token without
// verifying its signature. Malformed tokens and tokens without an expiry
// claim report ok == false.
func decodeExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
