package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// DefaultHRP is the human readable part of chain addresses.
	DefaultHRP = "tnam"

	addressHashLen    = 20
	addressPayloadLen = addressHashLen + 1

	discriminantImplicit    byte = 0x00
	discriminantEstablished byte = 0x01
)

// AddressKind is the discriminant byte of the address payload. Every kind
// other than implicit and established denotes an internal (protocol owned)
// address.
type AddressKind byte

const (
	KindImplicit    = AddressKind(discriminantImplicit)
	KindEstablished = AddressKind(discriminantEstablished)
	KindPoS         AddressKind = 0x02
	KindGovernance  AddressKind = 0x05
	KindPGF         AddressKind = 0x0a
	KindIBCToken    AddressKind = 0x0d
	KindMASP        AddressKind = 0x0e
)

var (
	// GovernanceAddress is the address of the governance account.
	GovernanceAddress = NewInternalAddress(KindGovernance, [addressHashLen]byte{})
	// PGFAddress is the address of the public goods funding account.
	PGFAddress = NewInternalAddress(KindPGF, [addressHashLen]byte{})
	// MASPAddress owns the tokens in the shielded pool.
	MASPAddress = NewInternalAddress(KindMASP, [addressHashLen]byte{})
)

/*
Address is a parsed chain address (bech32m, 21 byte payload: one discriminant
byte followed by 20 byte hash).

Address is a comparable value type and may be used as a map key, two addresses
are equal iff their canonical string forms are equal.
*/
type Address struct {
	canonical string
	payload   [addressPayloadLen]byte
}

func ParseAddress(s string) (Address, error) {
	return ParseAddressWithHRP(s, DefaultHRP)
}

func ParseAddressWithHRP(s, hrp string) (Address, error) {
	gotHRP, data, version, err := bech32.DecodeGeneric(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid address %q: %w", ErrParse, s, err)
	}
	if version != bech32.VersionM {
		return Address{}, fmt.Errorf("%w: invalid address %q: expected bech32m encoding", ErrParse, s)
	}
	if gotHRP != hrp {
		return Address{}, fmt.Errorf("%w: invalid address %q: expected prefix %q, got %q", ErrParse, s, hrp, gotHRP)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid address %q: %w", ErrParse, s, err)
	}
	if len(payload) != addressPayloadLen {
		return Address{}, fmt.Errorf("%w: invalid address %q: payload length %d, expected %d", ErrParse, s, len(payload), addressPayloadLen)
	}
	a := Address{canonical: bech32ToLower(s)}
	copy(a.payload[:], payload)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. Meant for
// constants and tests only.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NewImplicitAddress returns an implicit (key derived) address with given hash.
func NewImplicitAddress(hash [addressHashLen]byte) Address {
	return newAddress(discriminantImplicit, hash)
}

// NewEstablishedAddress returns an established (on-chain created) address with given hash.
func NewEstablishedAddress(hash [addressHashLen]byte) Address {
	return newAddress(discriminantEstablished, hash)
}

// NewInternalAddress returns a protocol owned address of given kind.
func NewInternalAddress(kind AddressKind, hash [addressHashLen]byte) Address {
	return newAddress(byte(kind), hash)
}

/*
IBCTokenAddress returns the address of the token received over IBC with
given denomination trace (ie "transfer/channel-1/uosmo"). The hash part of
the address is the first 20 bytes of sha256 of the trace.
*/
func IBCTokenAddress(denom string) Address {
	h := sha256.Sum256([]byte(denom))
	var hash [addressHashLen]byte
	copy(hash[:], h[:addressHashLen])
	return NewInternalAddress(KindIBCToken, hash)
}

func newAddress(kind byte, hash [addressHashLen]byte) Address {
	a := Address{}
	a.payload[0] = kind
	copy(a.payload[1:], hash[:])
	conv, err := bech32.ConvertBits(a.payload[:], 8, 5, true)
	if err != nil {
		panic(fmt.Errorf("converting address payload: %w", err))
	}
	if a.canonical, err = bech32.EncodeM(DefaultHRP, conv); err != nil {
		panic(fmt.Errorf("encoding address: %w", err))
	}
	return a
}

func (a Address) String() string {
	return a.canonical
}

func (a Address) IsZero() bool {
	return a.canonical == ""
}

func (a Address) IsImplicit() bool {
	return !a.IsZero() && a.payload[0] == discriminantImplicit
}

func (a Address) IsEstablished() bool {
	return !a.IsZero() && a.payload[0] == discriminantEstablished
}

// IsInternal reports whether the address is owned by the protocol.
func (a Address) IsInternal() bool {
	return !a.IsZero() && !a.IsImplicit() && !a.IsEstablished()
}

func (a Address) Kind() AddressKind {
	return AddressKind(a.payload[0])
}

// Bytes returns the raw payload (discriminant + hash).
func (a Address) Bytes() []byte {
	b := make([]byte, addressPayloadLen)
	copy(b, a.payload[:])
	return b
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.canonical), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// bech32 strings are case insensitive but mixed case is rejected by the
// decoder, so lowering is enough to get the canonical form.
func bech32ToLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
