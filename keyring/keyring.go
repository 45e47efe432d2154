/*
Package keyring resolves wallet aliases to addresses and provides signers
for the aliases having a signing key.

Keyring file is YAML:

	addresses:
	  nam: tnam1qxgfw7myv4dh0qna4hq0xdg6lx77fzl7dcem8h7e
	keys:
	  treasury:
	    address: tnam1...
	    algorithm: secp256k1
	    privateKey: 0x...
	  grants:
	    address: tnam1...
	    mnemonic: "word word ..."
	    accountIndex: 0
	  payroll:
	    address: tnam1...
	    encryptedMnemonic: "salt-nonce-ciphertext"

Aliases are case insensitive. Encrypted keys (see Encrypt and SealFile) are
opened only when their signer is requested, using the passphrase returned
by the keyring's PassphraseFunc.
*/
package keyring

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/namada-utils/stakeaudit/types"
)

const AlgorithmSecp256k1 = "secp256k1"

type (
	Keyring struct {
		addresses  map[string]types.Address
		keys       map[string][]byte
		sealed     map[string]sealedKey
		passphrase PassphraseFunc
	}

	// PassphraseFunc returns passphrase of the encrypted key of the alias.
	PassphraseFunc func(alias string) (string, error)

	sealedKey struct {
		data         string
		mnemonic     bool
		accountIndex uint64
	}

	fileFormat struct {
		Addresses map[string]string   `yaml:"addresses,omitempty"`
		Keys      map[string]keyEntry `yaml:"keys,omitempty"`
	}

	keyEntry struct {
		Address             string `yaml:"address"`
		Algorithm           string `yaml:"algorithm,omitempty"`
		PrivateKey          string `yaml:"privateKey,omitempty"`
		Mnemonic            string `yaml:"mnemonic,omitempty"`
		EncryptedPrivateKey string `yaml:"encryptedPrivateKey,omitempty"`
		EncryptedMnemonic   string `yaml:"encryptedMnemonic,omitempty"`
		AccountIndex        uint64 `yaml:"accountIndex,omitempty"`
	}
)

func New() *Keyring {
	return &Keyring{
		addresses: map[string]types.Address{},
		keys:      map[string][]byte{},
		sealed:    map[string]sealedKey{},
	}
}

func (k *Keyring) SetPassphraseFunc(f PassphraseFunc) {
	k.passphrase = f
}

func normalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// Load reads keyring file, all problems found in the file are reported
// together.
func Load(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading keyring: %w", types.ErrManifest, err)
	}
	k, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("keyring %s: %w", path, err)
	}
	return k, nil
}

func Parse(data []byte) (*Keyring, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decoding keyring: %w", types.ErrManifest, err)
	}

	k := New()
	var errs []error
	for alias, s := range f.Addresses {
		addr, err := types.ParseAddress(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("address %q: %w", alias, err))
			continue
		}
		if err := k.AddAddress(alias, addr); err != nil {
			errs = append(errs, err)
		}
	}
	for alias, e := range f.Keys {
		if err := k.addKeyEntry(alias, e); err != nil {
			errs = append(errs, fmt.Errorf("key %q: %w", alias, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrManifest, err)
	}
	return k, nil
}

func (k *Keyring) addKeyEntry(alias string, e keyEntry) error {
	addr, err := types.ParseAddress(e.Address)
	if err != nil {
		return err
	}
	if e.Algorithm != "" && !strings.EqualFold(e.Algorithm, AlgorithmSecp256k1) {
		return fmt.Errorf("unsupported algorithm %q", e.Algorithm)
	}
	secrets := 0
	for _, v := range []string{e.PrivateKey, e.Mnemonic, e.EncryptedPrivateKey, e.EncryptedMnemonic} {
		if v != "" {
			secrets++
		}
	}
	if secrets > 1 {
		return errors.New("only one of private key, mnemonic, encrypted private key or encrypted mnemonic may be set")
	}
	var privKey []byte
	switch {
	case e.EncryptedPrivateKey != "" || e.EncryptedMnemonic != "":
		sk := sealedKey{data: e.EncryptedPrivateKey, accountIndex: e.AccountIndex}
		if e.EncryptedMnemonic != "" {
			sk.data, sk.mnemonic = e.EncryptedMnemonic, true
		}
		if strings.Count(sk.data, "-") != 2 {
			return errors.New("invalid encrypted key, expected salt-nonce-ciphertext")
		}
		if err := k.AddAddress(alias, addr); err != nil {
			return err
		}
		k.sealed[normalizeAlias(alias)] = sk
		return nil
	case e.PrivateKey != "":
		if privKey, err = hexutil.Decode(e.PrivateKey); err != nil {
			return fmt.Errorf("decoding private key: %w", err)
		}
	case e.Mnemonic != "":
		if privKey, err = KeyFromMnemonic(e.Mnemonic, e.AccountIndex); err != nil {
			return err
		}
	default:
		return errors.New("private key or mnemonic must be set")
	}
	return k.AddKey(alias, addr, privKey)
}

func (k *Keyring) AddAddress(alias string, addr types.Address) error {
	alias = normalizeAlias(alias)
	if alias == "" {
		return errors.New("empty alias")
	}
	if _, ok := k.addresses[alias]; ok {
		return fmt.Errorf("duplicate alias %q", alias)
	}
	k.addresses[alias] = addr
	return nil
}

// AddKey adds alias with signing key, the key must be valid secp256k1
// private key.
func (k *Keyring) AddKey(alias string, addr types.Address, privKey []byte) error {
	if _, err := NewSecp256k1Signer(privKey); err != nil {
		return err
	}
	if err := k.AddAddress(alias, addr); err != nil {
		return err
	}
	k.keys[normalizeAlias(alias)] = append([]byte(nil), privKey...)
	return nil
}

func (k *Keyring) FindAddress(alias string) (types.Address, bool) {
	addr, ok := k.addresses[normalizeAlias(alias)]
	return addr, ok
}

// Signer returns signer of the alias' key.
func (k *Keyring) Signer(alias string) (*Secp256k1Signer, error) {
	alias = normalizeAlias(alias)
	if _, ok := k.addresses[alias]; !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrAliasNotFound, alias)
	}
	if privKey, ok := k.keys[alias]; ok {
		return NewSecp256k1Signer(privKey)
	}
	sk, ok := k.sealed[alias]
	if !ok {
		return nil, fmt.Errorf("%w: alias %q has no signing key", types.ErrLookup, alias)
	}
	if k.passphrase == nil {
		return nil, fmt.Errorf("%w: key of %q is encrypted and no passphrase was given", types.ErrSigning, alias)
	}
	pass, err := k.passphrase(alias)
	if err != nil {
		return nil, fmt.Errorf("%w: passphrase of %q: %w", types.ErrSigning, alias, err)
	}
	plain, err := Decrypt(pass, sk.data)
	if err != nil {
		return nil, fmt.Errorf("%w: key of %q: %w", types.ErrSigning, alias, err)
	}
	privKey := plain
	if sk.mnemonic {
		if privKey, err = KeyFromMnemonic(string(plain), sk.accountIndex); err != nil {
			return nil, fmt.Errorf("%w: key of %q: %w", types.ErrSigning, alias, err)
		}
	}
	return NewSecp256k1Signer(privKey)
}

// Encrypted reports whether the signing key of the alias is encrypted.
func (k *Keyring) Encrypted(alias string) bool {
	_, ok := k.sealed[normalizeAlias(alias)]
	return ok
}

/*
SealFile encrypts every plaintext private key and mnemonic of the keyring
file with the passphrase and rewrites the file. The file must be valid
keyring, comments of the file are not preserved. Returns the number of keys
encrypted.
*/
func SealFile(path, passphrase string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: reading keyring: %w", types.ErrManifest, err)
	}
	if _, err := Parse(data); err != nil {
		return 0, fmt.Errorf("keyring %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("%w: decoding keyring: %w", types.ErrManifest, err)
	}

	sealed := 0
	for alias, e := range f.Keys {
		switch {
		case e.PrivateKey != "":
			privKey, err := hexutil.Decode(e.PrivateKey)
			if err != nil {
				return 0, fmt.Errorf("key %q: decoding private key: %w", alias, err)
			}
			if e.EncryptedPrivateKey, err = Encrypt(passphrase, privKey); err != nil {
				return 0, fmt.Errorf("key %q: %w", alias, err)
			}
			e.PrivateKey = ""
		case e.Mnemonic != "":
			if e.EncryptedMnemonic, err = Encrypt(passphrase, []byte(e.Mnemonic)); err != nil {
				return 0, fmt.Errorf("key %q: %w", alias, err)
			}
			e.Mnemonic = ""
		default:
			continue
		}
		f.Keys[alias] = e
		sealed++
	}
	if sealed == 0 {
		return 0, nil
	}
	out, err := yaml.Marshal(&f)
	if err != nil {
		return 0, fmt.Errorf("encoding keyring: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return 0, fmt.Errorf("writing keyring: %w", err)
	}
	return sealed, nil
}

// Aliases returns sorted list of known aliases.
func (k *Keyring) Aliases() []string {
	aliases := make([]string, 0, len(k.addresses))
	for a := range k.addresses {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}
