package test

import (
	"crypto/rand"
	"fmt"

	"github.com/namada-utils/stakeaudit/types"
)

func RandomBytes(len int) []byte {
	bytes := make([]byte, len)
	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}
	return bytes
}

func RandomString(len int) string {
	b := RandomBytes(len/2 + 1)
	return fmt.Sprintf("%x", b)[:len]
}

// RandomAddress returns random implicit address.
func RandomAddress() types.Address {
	var hash [20]byte
	copy(hash[:], RandomBytes(len(hash)))
	return types.NewImplicitAddress(hash)
}

// RandomAddresses returns "n" distinct random implicit addresses.
func RandomAddresses(n int) []types.Address {
	seen := make(map[types.Address]struct{}, n)
	addrs := make([]types.Address, 0, n)
	for len(addrs) < n {
		a := RandomAddress()
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		addrs = append(addrs, a)
	}
	return addrs
}

// RandomValidator returns random established address.
func RandomValidator() types.Address {
	var hash [20]byte
	copy(hash[:], RandomBytes(len(hash)))
	return types.NewEstablishedAddress(hash)
}
