package domain

import "errors"

var (
	ErrUnsupportedProvider = errors.New("unsupported identity provider")
)

// VerificationKind discriminates why a token verification failed.
type VerificationKind string

const (
	KindMalformedToken       VerificationKind = "malformed_token"
	KindKeySourceUnavailable VerificationKind = "key_source_unavailable"
	KindProviderUnavailable  VerificationKind = "provider_unavailable"
	KindKeyNotFound          VerificationKind = "key_not_found"
	KindSignatureInvalid     VerificationKind = "signature_invalid"
	KindClaimMismatch        VerificationKind = "claim_mismatch"
	KindUnknown              VerificationKind = "unknown"
)

// VerificationError is the single failure type returned by token verifiers.
// Error() is deliberately generic so callers cannot learn which check
// failed; the kind and cause are for internal logging only.
type VerificationError struct {
	Kind  VerificationKind
	cause error
}

// NewVerificationError wraps cause with a failure kind. cause may be nil.
func NewVerificationError(kind VerificationKind, cause error) *VerificationError {
	return &VerificationError{Kind: kind, cause: cause}
}

func (e *VerificationError) Error() string {
	return "failed to verify token"
}

func (e *VerificationError) Unwrap() error {
	return e.cause
}

// Detail returns the internal description of the failure for logging.
func (e *VerificationError) Detail() string {
	if e.cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.cause.Error()
}

// VerificationKindOf extracts the failure kind from err, or KindUnknown
// if err carries no VerificationError.
func VerificationKindOf(err error) VerificationKind {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return KindUnknown
}
