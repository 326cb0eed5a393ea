package keystore

import (
	"context"
	"testing"

	"prompteval-server/internal/utils/platformerrors"
)

func TestPutGetRoundtrip(t *testing.T) {
	ks := New("unit-test-keystore-secret")
	if err := ks.Put("user-1", "k1", "sk-saved-key-789"); err != nil {
		t.Fatalf("put: %v", err)
	}

	secret, err := ks.GetDecrypted(context.Background(), "user-1", "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "sk-saved-key-789" {
		t.Fatalf("unexpected secret %q", secret)
	}
}

func TestGetUnknownKey(t *testing.T) {
	ks := New("unit-test-keystore-secret")
	_, err := ks.GetDecrypted(context.Background(), "user-1", "missing")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetWrongOwner(t *testing.T) {
	ks := New("unit-test-keystore-secret")
	if err := ks.Put("user-1", "k1", "sk-saved-key-789"); err != nil {
		t.Fatalf("put: %v", err)
	}

	// another owner's key id is indistinguishable from a missing one
	_, err := ks.GetDecrypted(context.Background(), "user-2", "k1")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
