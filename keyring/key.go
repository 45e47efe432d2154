package keyring

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	acc "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// NewDerivationPath returns BIP-44 derivation path of the account.
func NewDerivationPath(accountIndex uint64) string {
	// m / purpose' / coin_type' / account' / change / address_index
	// 877' is the registered coin type of Namada
	return fmt.Sprintf("m/44'/877'/%d'/0/0", accountIndex)
}

// KeyFromMnemonic derives secp256k1 private key of the account from the
// mnemonic seed phrase.
func KeyFromMnemonic(mnemonic string, accountIndex uint64) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, err
	}
	// only HDPrivateKeyID of the params is used, as the version of the extended key
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	path, err := acc.ParseDerivationPath(NewDerivationPath(accountIndex))
	if err != nil {
		return nil, err
	}
	key, err := derivePrivateKey(path, masterKey)
	if err != nil {
		return nil, fmt.Errorf("deriving account %d key: %w", accountIndex, err)
	}
	return crypto.FromECDSA(key), nil
}

func derivePrivateKey(path acc.DerivationPath, masterKey *hdkeychain.ExtendedKey) (*ecdsa.PrivateKey, error) {
	var err error
	derivedKey := masterKey
	for _, n := range path {
		if derivedKey, err = derivedKey.Derive(n); err != nil {
			return nil, err
		}
	}
	privateKey, err := derivedKey.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return privateKey.ToECDSA(), nil
}
