package keyring

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Secp256k1Signer signs sha256 digest of the payload with an in memory
// secp256k1 key. Signatures are 65 bytes, R || S || V.
type Secp256k1Signer struct {
	key *ecdsa.PrivateKey
}

func NewSecp256k1Signer(privKey []byte) (*Secp256k1Signer, error) {
	key, err := crypto.ToECDSA(privKey)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 private key: %w", err)
	}
	return &Secp256k1Signer{key: key}, nil
}

func GenerateSecp256k1Signer() (*Secp256k1Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Secp256k1Signer{key: key}, nil
}

func (s *Secp256k1Signer) Sign(payload []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("signer has no key")
	}
	h := sha256.Sum256(payload)
	return crypto.Sign(h[:], s.key)
}

// PublicKey returns the 33 byte compressed public key.
func (s *Secp256k1Signer) PublicKey() []byte {
	return crypto.CompressPubkey(&s.key.PublicKey)
}

func (s *Secp256k1Signer) PrivateKey() []byte {
	return crypto.FromECDSA(s.key)
}

// VerifySignature checks signature created by Secp256k1Signer.Sign.
func VerifySignature(pubKey, payload, sig []byte) error {
	if len(sig) == crypto.SignatureLength {
		sig = sig[:crypto.RecoveryIDOffset]
	}
	if len(sig) != crypto.RecoveryIDOffset {
		return fmt.Errorf("invalid signature length %d", len(sig))
	}
	h := sha256.Sum256(payload)
	if !crypto.VerifySignature(pubKey, h[:], sig) {
		return errors.New("signature verification failed")
	}
	return nil
}
