package types

import (
	"fmt"
	"strings"
)

// Category is a genesis allocation category.
type Category uint8

const (
	CategoryBacker Category = iota + 1
	CategoryCoreTeam
	CategoryRnD
	CategoryFutureAlloc
	CategoryPublicAlloc
	CategoryValidatorGrant
)

var categoryNames = map[Category]string{
	CategoryBacker:         "backer",
	CategoryCoreTeam:       "core_team",
	CategoryRnD:            "rnd",
	CategoryFutureAlloc:    "future_alloc",
	CategoryPublicAlloc:    "public_alloc",
	CategoryValidatorGrant: "validator_grant",
}

// human friendly spellings accepted in manifests in addition to the canonical names
var categoryAliases = map[string]Category{
	"backers":            CategoryBacker,
	"core team":          CategoryCoreTeam,
	"core":               CategoryCoreTeam,
	"r&d":                CategoryRnD,
	"rd":                 CategoryRnD,
	"rd_ecosystem_dev":   CategoryRnD,
	"future allocations": CategoryFutureAlloc,
	"future":             CategoryFutureAlloc,
	"public allocations": CategoryPublicAlloc,
	"public":             CategoryPublicAlloc,
	"pg validator":       CategoryValidatorGrant,
}

// AllocatedCategories are the categories carrying declared genesis balance,
// the validator grant is derived from them.
func AllocatedCategories() []Category {
	return []Category{CategoryBacker, CategoryCoreTeam, CategoryRnD, CategoryFutureAlloc, CategoryPublicAlloc}
}

func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if name == key {
			return c, nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: unknown category %q", ErrParse, s)
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// Title is the display name of the category.
func (c Category) Title() string {
	switch c {
	case CategoryBacker:
		return "Backers"
	case CategoryCoreTeam:
		return "Core team"
	case CategoryRnD:
		return "R&D ecosystems"
	case CategoryFutureAlloc:
		return "Future allocations"
	case CategoryPublicAlloc:
		return "Public allocations"
	case CategoryValidatorGrant:
		return "Validator grant"
	default:
		return c.String()
	}
}

func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("unknown category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	v, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

/*
CategorizedAccount is a genesis account belonging to a category. Name is
the grantee (R&D) or allocation name, accounts with the same name are
reported together.
*/
type CategorizedAccount struct {
	Address  Address
	Balance  Amount
	Category Category
	Name     string
	// Label is the free form category name given in the manifest.
	Label string
}
