package apple

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-jose/go-jose/v4"
)

// maxErrorBody bounds how much of a provider error response is kept for
// logging.
const maxErrorBody = 512

// fetchSigningKeys retrieves Apple's current JSON Web Key Set. Keys are
// not cached; every verification re-fetches so a verification never uses
// a key older than Apple's rotation window.
func (v *Verifier) fetchSigningKeys(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating key set request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching key set: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("key set endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var keySet jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return nil, fmt.Errorf("decoding key set: %w", err)
	}
	if len(keySet.Keys) == 0 {
		return nil, errors.New("key set contains no keys")
	}
	return &keySet, nil
}

// matchSigningKey finds the RSA public key identified by kid.
func matchSigningKey(keySet *jose.JSONWebKeySet, kid string) (*rsa.PublicKey, error) {
	for _, key := range keySet.Key(kid) {
		if pub, ok := key.Key.(*rsa.PublicKey); ok {
			return pub, nil
		}
	}
	return nil, fmt.Errorf("no RSA key with kid %q in key set", kid)
}
