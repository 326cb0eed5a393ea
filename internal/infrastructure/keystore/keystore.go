// Package keystore is the saved-credential collaborator: encrypted keys in,
// plaintext out. The engine never sees ciphertext and never encrypts anything
// itself.
package keystore

import (
	"context"
	"sync"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/utils/crypto"
	"prompteval-server/internal/utils/platformerrors"
)

// Keystore holds AES-GCM encrypted secrets per owner, in memory. Persistence
// of the ciphertext is the embedding deployment's concern; this process only
// needs lookup and decryption.
type Keystore struct {
	secret string

	mu      sync.RWMutex
	entries map[string]map[string]string // ownerID -> keyID -> ciphertext
}

var _ credential.Store = (*Keystore)(nil)

func New(secret string) *Keystore {
	return &Keystore{
		secret:  secret,
		entries: make(map[string]map[string]string),
	}
}

// Put encrypts and stores a secret under (ownerID, keyID).
func (k *Keystore) Put(ownerID, keyID, plaintext string) error {
	ciphertext, err := crypto.EncryptString(k.secret, plaintext)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	owned, ok := k.entries[ownerID]
	if !ok {
		owned = make(map[string]string)
		k.entries[ownerID] = owned
	}
	owned[keyID] = ciphertext
	return nil
}

// GetDecrypted implements credential.Store. A key id that does not exist and
// a key id owned by someone else are indistinguishable to the caller.
func (k *Keystore) GetDecrypted(ctx context.Context, ownerID, keyID string) (string, error) {
	k.mu.RLock()
	ciphertext, ok := k.entries[ownerID][keyID]
	k.mu.RUnlock()

	if !ok {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound,
			"saved credential not found",
			nil, "b52c8f71-9e04-4d3a-a6b8-04d7e2c19f83")
	}

	plaintext, err := crypto.DecryptString(k.secret, ciphertext)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			"unable to decrypt saved credential",
			err, "e09d4a26-1c58-47bf-92e3-5fa8017cb6d4")
	}
	return plaintext, nil
}
