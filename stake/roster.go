package stake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/namada-utils/stakeaudit/types"
)

type (
	RosterEntry struct {
		Name      string        `mapstructure:"name"`
		Validator types.Address `mapstructure:"address"`
	}

	// Roster is an ordered, immutable set of named anchor validators. Names
	// and validator addresses are pairwise distinct.
	Roster struct {
		entries []RosterEntry
		byName  map[string]types.Address
	}
)

var defaultRosterEntries = []struct{ name, addr string }{
	{"Unit 410 [1]", "tnam1qyctcwkgthr06k7lx38zmjka5dakmvhhyyr0zafu"},
	{"Unit 410 [2]", "tnam1q9vnysn3jj9l3rnucr0zt4jpuy224wdl7c0gezrj"},
	{"Chorus One", "tnam1qxsx2ezu89gx252kwwluqp7hadyp285tkczhaqg0"},
	{"P2P.org", "tnam1q8jrrf8s22cwd22yxhwc38tlvahplh2wyqjzl9gx"},
	{"Informal", "tnam1q9vrp45qtphed4q2vc382qrtf2gfykf50vssfe2h"},
}

/*
NewRoster validates the entries and returns roster preserving their order.
All problems found are reported together.
*/
func NewRoster(entries []RosterEntry) (*Roster, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", types.ErrManifest)
	}
	r := &Roster{
		entries: make([]RosterEntry, 0, len(entries)),
		byName:  make(map[string]types.Address, len(entries)),
	}
	seenAddr := make(map[types.Address]string, len(entries))
	var errs []error
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("roster entry %d: empty name", i))
			continue
		case e.Validator.IsZero():
			errs = append(errs, fmt.Errorf("roster entry %d (%s): validator address not set", i, name))
			continue
		}
		if _, ok := r.byName[name]; ok {
			errs = append(errs, fmt.Errorf("roster entry %d: duplicate name %q", i, name))
			continue
		}
		if other, ok := seenAddr[e.Validator]; ok {
			errs = append(errs, fmt.Errorf("roster entry %d (%s): validator %s already assigned to %q", i, name, e.Validator, other))
			continue
		}
		seenAddr[e.Validator] = name
		r.byName[name] = e.Validator
		r.entries = append(r.entries, RosterEntry{Name: name, Validator: e.Validator})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: invalid roster: %w", types.ErrManifest, err)
	}
	return r, nil
}

// DefaultRoster returns the anchor validators of the mainnet genesis.
func DefaultRoster() *Roster {
	entries := make([]RosterEntry, len(defaultRosterEntries))
	for i, e := range defaultRosterEntries {
		entries[i] = RosterEntry{Name: e.name, Validator: types.MustParseAddress(e.addr)}
	}
	r, err := NewRoster(entries)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Roster) Len() int { return len(r.entries) }

// Entries returns copy of the roster entries in roster order.
func (r *Roster) Entries() []RosterEntry {
	return append([]RosterEntry(nil), r.entries...)
}

func (r *Roster) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

func (r *Roster) Validator(name string) (types.Address, bool) {
	addr, ok := r.byName[name]
	return addr, ok
}
