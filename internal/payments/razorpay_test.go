package payments

import (
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	sig := ExpectedSignature("order_123", "pay_456", secret)

	if err := VerifySignature("order_123", "pay_456", sig, secret); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	secret := "test-secret"
	sig := ExpectedSignature("order_123", "pay_456", secret)

	// Tampered payment id.
	if err := VerifySignature("order_123", "pay_457", sig, secret); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("tampered payment id: got %v, want ErrSignatureMismatch", err)
	}
	// Tampered signature.
	if err := VerifySignature("order_123", "pay_456", sig+"00", secret); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("tampered signature: got %v, want ErrSignatureMismatch", err)
	}
	// Wrong secret.
	otherSig := ExpectedSignature("order_123", "pay_456", "other-secret")
	if err := VerifySignature("order_123", "pay_456", otherSig, secret); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("wrong secret: got %v, want ErrSignatureMismatch", err)
	}
	// Empty confirmation parameters never pass.
	if err := VerifySignature("", "", "", secret); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("empty parameters: got %v, want ErrSignatureMismatch", err)
	}
}
