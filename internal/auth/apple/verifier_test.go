package apple

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicalorie/internal/config"
	"aicalorie/internal/domain"
)

const testClientID = "com.aicalorie.app"

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func publicJWK(key *rsa.PrivateKey, kid string) jose.JSONWebKey {
	return jose.JSONWebKey{Key: &key.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            issuer,
		"aud":            testClientID,
		"sub":            "001234.f1a2b3c4d5",
		"email":          "user@example.com",
		"email_verified": true,
		"iat":            time.Now().Add(-time.Minute).Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

// keySetServer serves a JWKS response and counts fetches.
func keySetServer(t *testing.T, fetches *int32, keys ...jose.JSONWebKey) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(fetches, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: keys})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestVerifier(keysURL string) *Verifier {
	v := NewVerifier(config.AppleConfig{ClientID: testClientID}, 2*time.Second)
	v.keysURL = keysURL
	return v
}

func TestVerifyIDToken_Success(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	token := signToken(t, key, "key-1", validClaims())

	claims, err := v.VerifyIDToken(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "001234.f1a2b3c4d5", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.True(t, claims.EmailVerified)
	assert.Empty(t, claims.DisplayName)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
}

func TestVerifyIDToken_EmailVerifiedStringIsNotVerified(t *testing.T) {
	// Apple only counts the JSON boolean true; the string "true" must not.
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	mc := validClaims()
	mc["email_verified"] = "true"
	token := signToken(t, key, "key-1", mc)

	claims, err := v.VerifyIDToken(context.Background(), token)

	require.NoError(t, err)
	assert.False(t, claims.EmailVerified)
}

func TestVerifyIDToken_EmailAbsent(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	mc := validClaims()
	delete(mc, "email")
	delete(mc, "email_verified")
	token := signToken(t, key, "key-1", mc)

	claims, err := v.VerifyIDToken(context.Background(), token)

	require.NoError(t, err)
	assert.Empty(t, claims.Email)
	assert.False(t, claims.EmailVerified)
}

func TestVerifyIDToken_MalformedToken(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	for _, raw := range []string{"", "not-a-token", "only.two", "a.b.c.d"} {
		_, err := v.VerifyIDToken(context.Background(), raw)

		require.Error(t, err, "input %q", raw)
		assert.EqualError(t, err, "failed to verify token")
		assert.Equal(t, domain.KindMalformedToken, domain.VerificationKindOf(err))
	}
}

func TestVerifyIDToken_UndecodableHeader(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	_, err := v.VerifyIDToken(context.Background(), "!!!!.payload.signature")

	require.Error(t, err)
	assert.Equal(t, domain.KindMalformedToken, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_KeyNotFound(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	// Signed with a key whose kid is not in the published set, as happens
	// mid rotation.
	rotated := generateKey(t)
	token := signToken(t, rotated, "key-2", validClaims())

	_, err := v.VerifyIDToken(context.Background(), token)

	require.Error(t, err)
	assert.EqualError(t, err, "failed to verify token")
	assert.Equal(t, domain.KindKeyNotFound, domain.VerificationKindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches), "exactly one key-set fetch")
}

func TestVerifyIDToken_EmptyKeySet(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches)
	v := newTestVerifier(srv.URL)

	token := signToken(t, key, "key-1", validClaims())

	_, err := v.VerifyIDToken(context.Background(), token)

	require.Error(t, err)
	assert.Equal(t, domain.KindKeySourceUnavailable, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_KeySourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	v := newTestVerifier(srv.URL)

	_, err := v.VerifyIDToken(context.Background(), "a.b.c")

	require.Error(t, err)
	assert.Equal(t, domain.KindKeySourceUnavailable, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_KeySourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	v := newTestVerifier(srv.URL)

	_, err := v.VerifyIDToken(context.Background(), "a.b.c")

	require.Error(t, err)
	assert.Equal(t, domain.KindKeySourceUnavailable, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	v := newTestVerifier(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := v.VerifyIDToken(ctx, "a.b.c")

	require.Error(t, err)
	assert.Equal(t, domain.KindKeySourceUnavailable, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_SignatureInvalid(t *testing.T) {
	published := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(published, "key-1"))
	v := newTestVerifier(srv.URL)

	// Same kid, different private key: signature must not verify.
	impostor := generateKey(t)
	token := signToken(t, impostor, "key-1", validClaims())

	_, err := v.VerifyIDToken(context.Background(), token)

	require.Error(t, err)
	assert.EqualError(t, err, "failed to verify token")
	assert.Equal(t, domain.KindSignatureInvalid, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_WrongAudience(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	mc := validClaims()
	mc["aud"] = "com.other.app"
	token := signToken(t, key, "key-1", mc)

	_, err := v.VerifyIDToken(context.Background(), token)

	require.Error(t, err)
	assert.Equal(t, domain.KindClaimMismatch, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_WrongIssuer(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	mc := validClaims()
	mc["iss"] = "https://evil.example.com"
	token := signToken(t, key, "key-1", mc)

	_, err := v.VerifyIDToken(context.Background(), token)

	require.Error(t, err)
	assert.Equal(t, domain.KindClaimMismatch, domain.VerificationKindOf(err))
}

func TestVerifyIDToken_Expired(t *testing.T) {
	key := generateKey(t)
	var fetches int32
	srv := keySetServer(t, &fetches, publicJWK(key, "key-1"))
	v := newTestVerifier(srv.URL)

	mc := validClaims()
	mc["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signToken(t, key, "key-1", mc)

	_, err := v.VerifyIDToken(context.Background(), token)

	require.Error(t, err)
	assert.Equal(t, domain.KindClaimMismatch, domain.VerificationKindOf(err))
}
