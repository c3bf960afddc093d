package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"aicalorie/internal/port"
)

// MockTokenVerifier is a mock implementation of port.TokenVerifier.
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*port.IdentityClaims, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.IdentityClaims), args.Error(1)
}

func (m *MockTokenVerifier) Provider() string {
	args := m.Called()
	return args.String(0)
}
