package service

import (
	"context"
	"fmt"
	"log"

	"aicalorie/internal/domain"
	"aicalorie/internal/port"
)

// VerifyInput is the DTO for token verification requests.
type VerifyInput struct {
	Provider string `json:"provider" binding:"required"`
	IDToken  string `json:"id_token" binding:"required"`
}

// IdentityService defines the identity verification contract.
type IdentityService interface {
	VerifyToken(ctx context.Context, input VerifyInput) (*port.IdentityClaims, error)
}

type identityService struct {
	verifiers map[string]port.TokenVerifier
}

// NewIdentityService creates a new IdentityService over the given
// provider verifiers, keyed by provider name.
func NewIdentityService(verifiers map[string]port.TokenVerifier) IdentityService {
	return &identityService{verifiers: verifiers}
}

func (s *identityService) VerifyToken(ctx context.Context, input VerifyInput) (*port.IdentityClaims, error) {
	verifier, ok := s.verifiers[input.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, input.Provider)
	}

	claims, err := verifier.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		log.Printf("identity: %s token rejected (%s)", input.Provider, domain.VerificationKindOf(err))
		return nil, err
	}
	return claims, nil
}
