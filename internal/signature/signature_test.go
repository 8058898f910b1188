// internal/signature/signature_test.go
//
// Sign/Verify round trips for both algorithms, plus the rejection paths:
// tampered payload, malformed hex, unknown algorithm.
package signature

import (
	"errors"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"page_url":"/post/1","data":{"text":"hi"}}`)
	secret := []byte("wbk_abc.supersecret")

	for _, algo := range []string{AlgoHMACSHA256, AlgoHMACSHA512} {
		t.Run(algo, func(t *testing.T) {
			sig, err := Sign(payload, secret, algo)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			ok, err := Verify(payload, sig, secret, algo)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if !ok {
				t.Fatal("valid signature rejected")
			}
		})
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret := []byte("s3cret")
	sig, err := Sign([]byte("original"), secret, AlgoHMACSHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := Verify([]byte("tampered"), sig, secret, AlgoHMACSHA256)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("tampered payload accepted")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	sig, err := Sign([]byte("payload"), []byte("right"), AlgoHMACSHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, _ := Verify([]byte("payload"), sig, []byte("wrong"), AlgoHMACSHA256)
	if ok {
		t.Fatal("signature under a different secret accepted")
	}
}

func TestVerifyMalformedHex(t *testing.T) {
	ok, err := Verify([]byte("payload"), "zz-not-hex", []byte("s"), AlgoHMACSHA256)
	if err != nil {
		t.Fatalf("malformed sig should be a plain rejection, got error %v", err)
	}
	if ok {
		t.Fatal("malformed signature accepted")
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := Sign([]byte("p"), []byte("s"), "md5"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("Sign err = %v, want ErrUnknownAlgorithm", err)
	}
	ok, err := Verify([]byte("p"), "00", []byte("s"), "md5")
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("Verify err = %v, want ErrUnknownAlgorithm", err)
	}
	if ok {
		t.Fatal("unknown algorithm must not verify")
	}
}
