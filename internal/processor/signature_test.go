package processor

import (
	"testing"
	"time"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"id":"evt_1","type":"payout.paid","data":{"object":{"id":"tr_1"}}}`)
	now := time.Now()

	header := SignatureHeaderValue(secret, now.Unix(), body)
	if err := VerifySignature(secret, header, body, now, DefaultSignatureTolerance); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := SignatureHeaderValue(secret, now.Unix(), body)
	if err := VerifySignature(secret, header, []byte(`{"id":"evt_2"}`), now, DefaultSignatureTolerance); err == nil {
		t.Fatal("expected signature rejection for tampered body")
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	header := SignatureHeaderValue([]byte("whsec_a"), now.Unix(), body)
	if err := VerifySignature([]byte("whsec_b"), header, body, now, DefaultSignatureTolerance); err == nil {
		t.Fatal("expected signature rejection for wrong secret")
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{}`)
	now := time.Now()

	header := SignatureHeaderValue(secret, now.Add(-time.Hour).Unix(), body)
	if err := VerifySignature(secret, header, body, now, DefaultSignatureTolerance); err == nil {
		t.Fatal("expected rejection for stale timestamp")
	}
}

func TestVerifySignatureRejectsGarbageHeader(t *testing.T) {
	for _, h := range []string{"", "t=,v1=", "v1=deadbeef", "t=abc,v1=deadbeef", "nonsense"} {
		if err := VerifySignature([]byte("s"), h, []byte("b"), time.Now(), 0); err == nil {
			t.Fatalf("expected rejection for header %q", h)
		}
	}
}
