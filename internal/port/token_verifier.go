package port

import "context"

// IdentityClaims holds the verified claims from a federated identity
// provider, normalized to one shape across providers. A new value is
// created per verification; an empty Subject means the provider supplied
// no stable identity.
type IdentityClaims struct {
	Subject       string // Provider-scoped user ID (e.g. Google "sub" claim)
	Email         string
	EmailVerified bool
	DisplayName   string // Apple never supplies this in-token
}

// TokenVerifier validates an ID token issued by a federated identity
// provider. Failures surface as *domain.VerificationError with a generic
// message; the detailed kind is for internal logging only.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*IdentityClaims, error)
	Provider() string
}
