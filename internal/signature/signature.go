// internal/signature/signature.go
//
// HMAC request signing.
//
// Context
// -------
// Keys may require that requests carry an HMAC over the raw payload bytes.
// Whether signing is required is a policy flag on the key record, not a
// property of the payload: Verify is vacuously true for keys that do not
// require it, and the gateway reads the flag before calling in here.
// Comparison is constant time via hmac.Equal.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// Supported algorithm identifiers, matching the api_keys.signature_algo
// column values.
const (
	AlgoHMACSHA256 = "hmac-sha256"
	AlgoHMACSHA512 = "hmac-sha512"
)

// ErrUnknownAlgorithm is returned for an algorithm identifier outside the
// supported set.
var ErrUnknownAlgorithm = errors.New("unknown signature algorithm")

func newHash(algo string) (func() hash.Hash, error) {
	switch algo {
	case AlgoHMACSHA256:
		return sha256.New, nil
	case AlgoHMACSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

// Sign returns the hex-encoded HMAC of payload under secret.
func Sign(payload, secret []byte, algo string) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	mac := hmac.New(h, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether sig is a valid signature of payload under secret.
// Malformed hex or an unknown algorithm is a plain false plus the error for
// logging; callers treat any false as a rejection.
func Verify(payload []byte, sig string, secret []byte, algo string) (bool, error) {
	want, err := Sign(payload, secret, algo)
	if err != nil {
		return false, err
	}
	wantRaw, err := hex.DecodeString(want)
	if err != nil {
		return false, err
	}
	gotRaw, err := hex.DecodeString(sig)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(wantRaw, gotRaw), nil
}
