package apple

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aicalorie/internal/config"
	"aicalorie/internal/domain"
	"aicalorie/internal/port"
)

const (
	keysURL = "https://appleid.apple.com/auth/keys"
	issuer  = "https://appleid.apple.com"
)

// idTokenClaims is the payload of an Apple identity token. Apple has been
// observed sending email_verified both as a JSON boolean and as the string
// "true"; only the boolean counts as verified.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
}

// tokenHeader is the decoded first segment of an identity token.
type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Verifier validates Apple identity tokens against Apple's published
// signing keys. The key set is fetched per call; nothing is cached.
type Verifier struct {
	clientID   string
	keysURL    string
	httpClient *http.Client
}

// NewVerifier creates a new Apple identity token verifier.
func NewVerifier(cfg config.AppleConfig, timeout time.Duration) *Verifier {
	return &Verifier{
		clientID: cfg.ClientID,
		keysURL:  keysURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (v *Verifier) VerifyIDToken(ctx context.Context, identityToken string) (*port.IdentityClaims, error) {
	log.Printf("apple: verifying identity token")

	keys, err := v.fetchSigningKeys(ctx)
	if err != nil {
		return nil, v.fail(domain.KindKeySourceUnavailable, err)
	}

	segments := strings.Split(identityToken, ".")
	if len(segments) != 3 {
		return nil, v.fail(domain.KindMalformedToken, fmt.Errorf("token has %d segments, want 3", len(segments)))
	}

	kid, err := headerKeyID(segments[0])
	if err != nil {
		return nil, v.fail(domain.KindMalformedToken, err)
	}

	// Expected to miss periodically as Apple rotates keys; fatal only to
	// this verification attempt.
	key, err := matchSigningKey(keys, kid)
	if err != nil {
		return nil, v.fail(domain.KindKeyNotFound, err)
	}

	claims := &idTokenClaims{}
	if _, err := jwt.ParseWithClaims(identityToken, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithIssuer(issuer),
	); err != nil {
		return nil, v.fail(verificationKind(err), err)
	}

	out := &port.IdentityClaims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: emailVerified(claims.EmailVerified),
	}
	log.Printf("apple: verified identity token for subject %s", out.Subject)
	return out, nil
}

func (v *Verifier) Provider() string {
	return string(domain.AuthProviderApple)
}

func (v *Verifier) fail(kind domain.VerificationKind, cause error) error {
	verr := domain.NewVerificationError(kind, cause)
	log.Printf("apple: token verification failed: %s", verr.Detail())
	return verr
}

// headerKeyID decodes the base64url token header and extracts the key ID.
func headerKeyID(segment string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return "", fmt.Errorf("decoding token header: %w", err)
	}
	var header tokenHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", fmt.Errorf("parsing token header: %w", err)
	}
	if header.Kid == "" {
		return "", errors.New("token header has no kid")
	}
	return header.Kid, nil
}

// emailVerified is true only for the JSON boolean true. The string "true"
// does not count for Apple; Google's tokeninfo is the opposite.
func emailVerified(value interface{}) bool {
	verified, ok := value.(bool)
	return ok && verified
}

// verificationKind maps a golang-jwt parse error to a failure kind.
func verificationKind(err error) domain.VerificationKind {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.KindMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.KindSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return domain.KindClaimMismatch
	default:
		return domain.KindUnknown
	}
}

// Compile-time check.
var _ port.TokenVerifier = (*Verifier)(nil)
