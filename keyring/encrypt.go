package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltLen          = 16
	cipherKeyLen     = 32
)

// ErrDecrypt is returned when sealed key can't be opened, most likely
// because of wrong passphrase.
var ErrDecrypt = errors.New("error decrypting data (incorrect passphrase?)")

/*
Encrypt seals "plaintext" with AES-GCM using key derived from the passphrase
with PBKDF2. Result is "salt-nonce-ciphertext", all hex encoded.
*/
func Encrypt(passphrase string, plaintext []byte) (string, error) {
	if passphrase == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("error generating salt: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("error generating nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return strings.Join([]string{hex.EncodeToString(salt), hex.EncodeToString(nonce), hex.EncodeToString(ciphertext)}, "-"), nil
}

func Decrypt(passphrase string, data string) ([]byte, error) {
	parts := strings.Split(data, "-")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid encrypted data: expected 3 parts, got %d", len(parts))
	}
	var salt, nonce, ciphertext []byte
	for i, dst := range []*[]byte{&salt, &nonce, &ciphertext} {
		b, err := hex.DecodeString(parts[i])
		if err != nil {
			return nil, fmt.Errorf("error decoding hex data: %w", err)
		}
		*dst = b
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return plaintext, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, cipherKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("error creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("error creating GCM cipher: %w", err)
	}
	return gcm, nil
}
