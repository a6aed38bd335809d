package billing

import (
	"errors"
	"testing"
	"time"
)

func TestVerifyStripeSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	now := time.Unix(1_780_000_000, 0)
	header := SignStripePayload(payload, secret, now)

	if err := VerifyStripeSignature(payload, header, secret, now.Add(time.Minute), DefaultSignatureTolerance); err != nil {
		t.Fatalf("expected signature to validate, got %v", err)
	}
	if err := VerifyStripeSignature([]byte(`{"id":"evt_2"}`), header, secret, now, DefaultSignatureTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected tampered payload to fail, got %v", err)
	}
	if err := VerifyStripeSignature(payload, header, "whsec_other", now, DefaultSignatureTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}
	if err := VerifyStripeSignature(payload, header, secret, now.Add(6*time.Minute), DefaultSignatureTolerance); !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected old signature to be rejected, got %v", err)
	}
	if err := VerifyStripeSignature(payload, "t=abc,v1=00", secret, now, DefaultSignatureTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected malformed header to fail, got %v", err)
	}
}

func TestVerifyStripeSignatureAcceptsAnyV1(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1_780_000_000, 0)
	good := SignStripePayload(payload, "whsec_new", now)
	header := good[:len("t=1780000000")] + ",v1=deadbeef," + good[len("t=1780000000,"):]

	if err := VerifyStripeSignature(payload, header, "whsec_new", now, DefaultSignatureTolerance); err != nil {
		t.Fatalf("expected one matching v1 to be enough, got %v", err)
	}
}
