package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"aicalorie/internal/config"
	"aicalorie/internal/domain"
	"aicalorie/internal/port"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

const maxErrorBody = 512

// tokenInfoResponse is the shape of Google's tokeninfo endpoint response.
// email_verified arrives as the string "true"/"false", not a boolean; the
// field is decoded loosely so an unexpected type reads as unverified
// rather than failing the call.
type tokenInfoResponse struct {
	Aud           string      `json:"aud"`
	Sub           string      `json:"sub"`
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
	Name          string      `json:"name"`
}

// Verifier validates Google ID tokens via the tokeninfo endpoint. Google
// verifies signature and expiry server-side; audience binding is re-checked
// locally because introspection alone does not prove the token was issued
// for this application.
type Verifier struct {
	webClientID  string
	iosClientID  string
	tokenInfoURL string
	httpClient   *http.Client
}

// NewVerifier creates a new Google ID token verifier.
func NewVerifier(cfg config.GoogleConfig, timeout time.Duration) *Verifier {
	return &Verifier{
		webClientID:  cfg.WebClientID,
		iosClientID:  cfg.IOSClientID,
		tokenInfoURL: tokenInfoURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (v *Verifier) VerifyIDToken(ctx context.Context, idToken string) (*port.IdentityClaims, error) {
	log.Printf("google: verifying identity token")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.tokenInfoURL+"?id_token="+url.QueryEscape(idToken), http.NoBody)
	if err != nil {
		return nil, v.fail(domain.KindUnknown, fmt.Errorf("creating tokeninfo request: %w", err))
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, v.fail(domain.KindProviderUnavailable, fmt.Errorf("calling tokeninfo: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, v.fail(domain.KindProviderUnavailable, fmt.Errorf("tokeninfo returned status %d: %s", resp.StatusCode, body))
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, v.fail(domain.KindProviderUnavailable, fmt.Errorf("decoding tokeninfo response: %w", err))
	}

	// Validate audience matches one of our client IDs
	if !v.audienceAllowed(info.Aud) {
		return nil, v.fail(domain.KindClaimMismatch, fmt.Errorf(
			"audience %s matches neither web client %s nor ios client %s",
			idPrefix(info.Aud), idPrefix(v.webClientID), idPrefix(v.iosClientID)))
	}

	out := &port.IdentityClaims{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: emailVerified(info.EmailVerified),
		DisplayName:   info.Name,
	}
	log.Printf("google: verified identity token for subject %s", out.Subject)
	return out, nil
}

func (v *Verifier) Provider() string {
	return string(domain.AuthProviderGoogle)
}

func (v *Verifier) fail(kind domain.VerificationKind, cause error) error {
	verr := domain.NewVerificationError(kind, cause)
	log.Printf("google: token verification failed: %s", verr.Detail())
	return verr
}

// audienceAllowed reports whether aud equals a configured client ID. An
// empty client ID disables that comparison.
func (v *Verifier) audienceAllowed(aud string) bool {
	if v.webClientID != "" && aud == v.webClientID {
		return true
	}
	if v.iosClientID != "" && aud == v.iosClientID {
		return true
	}
	return false
}

// emailVerified is true only for the exact string "true". Google returns
// this field as a string in tokeninfo responses; a boolean or anything
// else reads as unverified. Apple's in-token claim is the opposite.
func emailVerified(value interface{}) bool {
	verified, ok := value.(string)
	return ok && verified == "true"
}

// idPrefix returns a short prefix of a client identifier for diagnostic
// logs. Full identifiers must never be logged.
func idPrefix(id string) string {
	const n = 8
	if id == "" {
		return "<unset>"
	}
	if len(id) <= n {
		return id
	}
	return id[:n] + "..."
}

// Compile-time check.
var _ port.TokenVerifier = (*Verifier)(nil)
