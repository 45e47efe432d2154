package types

import (
	"fmt"
	"strings"
)

type RefKind uint8

const (
	RefLiteral RefKind = iota + 1
	RefAlias
)

func (k RefKind) String() string {
	switch k {
	case RefLiteral:
		return "literal"
	case RefAlias:
		return "alias"
	default:
		return fmt.Sprintf("RefKind(%d)", uint8(k))
	}
}

/*
AddressRef is a reference to an address as it appears in manifests and on
the command line: either a literal address or a keyring alias. The kind is
decided once, when the ref is created, code consuming the ref must not
re-guess it from the value.
*/
type AddressRef struct {
	Kind  RefKind
	Value string
}

func LiteralRef(addr string) AddressRef {
	return AddressRef{Kind: RefLiteral, Value: addr}
}

func AliasRef(alias string) AddressRef {
	return AddressRef{Kind: RefAlias, Value: alias}
}

/*
NewAddressRef classifies raw user input. Anything carrying the address
prefix is a literal (and will fail to resolve when malformed), everything
else is an alias.
*/
func NewAddressRef(s string) (AddressRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AddressRef{}, fmt.Errorf("%w: empty address reference", ErrParse)
	}
	if strings.HasPrefix(strings.ToLower(s), DefaultHRP+"1") {
		return LiteralRef(s), nil
	}
	return AliasRef(s), nil
}

func (r AddressRef) String() string {
	if r.Kind == RefAlias {
		return "alias:" + r.Value
	}
	return r.Value
}
