package cmd

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/namada-utils/stakeaudit/audit"
	"github.com/namada-utils/stakeaudit/ledger"
	"github.com/namada-utils/stakeaudit/resolver"
	"github.com/namada-utils/stakeaudit/stake"
	"github.com/namada-utils/stakeaudit/types"
)

const defaultNativeToken = "nam"

type (
	/*
	toolConfig is the structured part of the config file:

		chain_id = "namada.5f5de2dd1b88cba30586420"
		native_token = "nam"
		ibc_tokens = ["transfer/channel-1/uosmo", "tnam1..."]
		transparent_addresses = ["my-wallet", "tnam1..."]

		[accounts]
		pgf = "tnam1..."

		[ibc_nicknames]
		"transfer/channel-1/uosmo" = "OSMO"

		[genesis]
		backer = "320364605000000"

		[[roster]]
		name = "Chorus One"
		address = "tnam1..."

		[manifests]
		backers = "config/backers.txt"
	*/
	toolConfig struct {
		ChainID       string `mapstructure:"chain_id"`
		NativeToken   string `mapstructure:"native_token"`
		TokenDecimals uint32 `mapstructure:"token_decimals"`
		// non-native tokens reported by "supply", either IBC denom traces
		// (port/channel/denom) or address references
		IBCTokens []string `mapstructure:"ibc_tokens"`
		// display names of the denom traces
		IBCNicknames map[string]string `mapstructure:"ibc_nicknames"`
		// address references reported by "balances"
		TransparentAddresses []string `mapstructure:"transparent_addresses"`
		// named accounts reported by "chain-info", governance and public
		// goods funding when not configured
		Accounts map[string]string `mapstructure:"accounts"`

		Genesis   ledger.GenesisConstants `mapstructure:"genesis"`
		Roster    []stake.RosterEntry     `mapstructure:"roster"`
		Manifests manifestFiles           `mapstructure:"manifests"`
	}

	// manifestFiles are relative from the home directory unless absolute.
	manifestFiles struct {
		Backers     string `mapstructure:"backers"`
		CoreTeam    string `mapstructure:"core_team"`
		RnD         string `mapstructure:"rnd"`
		FutureAlloc string `mapstructure:"future_alloc"`
	}
)

func defaultIBCNicknames() map[string]string {
	return map[string]string{
		"transfer/channel-1/uosmo":   "OSMO",
		"transfer/channel-2/uatom":   "ATOM",
		"transfer/channel-3/utia":    "TIA",
		"transfer/channel-0/stuosmo": "stOSMO",
		"transfer/channel-0/stuatom": "stATOM",
		"transfer/channel-0/stutia":  "stTIA",
	}
}

func defaultAccounts() map[string]string {
	return map[string]string{
		"gov": types.GovernanceAddress.String(),
		"pgf": types.PGFAddress.String(),
	}
}

func defaultToolConfig() *toolConfig {
	return &toolConfig{
		NativeToken:   defaultNativeToken,
		TokenDecimals: types.NativeDecimals,
		IBCNicknames:  defaultIBCNicknames(),
		Genesis:       ledger.DefaultGenesisConstants(),
		Manifests: manifestFiles{
			Backers:     "config/backers.txt",
			CoreTeam:    "config/core_team.txt",
			RnD:         "config/rd_ecosystem_dev.json",
			FutureAlloc: "config/public_allocations_future.json",
		},
	}
}

/*
decodeToolConfig decodes the config file values on top of the defaults, so
the file needs to contain only the values which differ from the defaults.
*/
func decodeToolConfig(v *viper.Viper) (*toolConfig, error) {
	tc := defaultToolConfig()
	hooks := mapstructure.ComposeDecodeHookFunc(
		amountHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(tc, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrParse, err)
	}
	// maps are merged by the decoder, configured accounts replace the defaults
	if len(tc.Accounts) == 0 {
		tc.Accounts = defaultAccounts()
	}
	return tc, nil
}

// amountHookFunc converts TOML integers into amounts, amount strings are
// handled by the text unmarshaller hook.
func amountHookFunc() mapstructure.DecodeHookFuncType {
	amountType := reflect.TypeOf(types.Amount{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != amountType {
			return data, nil
		}
		switch v := data.(type) {
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("negative amount %d", v)
			}
			return types.NewAmount(uint64(v)), nil
		case int:
			if v < 0 {
				return nil, fmt.Errorf("negative amount %d", v)
			}
			return types.NewAmount(uint64(v)), nil
		case uint64:
			return types.NewAmount(v), nil
		}
		return data, nil
	}
}

func (tc *toolConfig) genesisAllocation() (*ledger.GenesisAllocation, error) {
	return ledger.NewGenesisAllocation(tc.Genesis)
}

// roster returns the configured roster, the default one when the config
// doesn't have any entries.
func (tc *toolConfig) roster() (*stake.Roster, error) {
	if len(tc.Roster) == 0 {
		return stake.DefaultRoster(), nil
	}
	return stake.NewRoster(tc.Roster)
}

func (tc *toolConfig) nativeToken(r *resolver.Resolver) (types.Address, error) {
	addr, err := r.ResolveString(tc.NativeToken)
	if err != nil {
		return types.Address{}, fmt.Errorf("native token: %w", err)
	}
	return addr, nil
}

// namedAccounts resolves the configured accounts, sorted by name.
func (tc *toolConfig) namedAccounts(r *resolver.Resolver) ([]audit.NamedAddress, error) {
	names := make([]string, 0, len(tc.Accounts))
	for name := range tc.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	res := make([]audit.NamedAddress, len(names))
	for i, name := range names {
		addr, err := r.ResolveString(tc.Accounts[name])
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", name, err)
		}
		res[i] = audit.NamedAddress{Name: name, Address: addr}
	}
	return res, nil
}

// tokens returns the native token followed by the IBC tokens. Denom
// traces are named by their nickname when one is configured.
func (tc *toolConfig) tokens(r *resolver.Resolver) ([]audit.NamedAddress, error) {
	native, err := tc.nativeToken(r)
	if err != nil {
		return nil, err
	}
	res := []audit.NamedAddress{{Name: tc.NativeToken, Address: native}}
	for _, ref := range tc.IBCTokens {
		if isDenomTrace(ref) {
			res = append(res, audit.NamedAddress{Name: tc.ibcNickname(ref), Address: types.IBCTokenAddress(ref)})
			continue
		}
		addr, err := r.ResolveString(ref)
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", ref, err)
		}
		res = append(res, audit.NamedAddress{Name: ref, Address: addr})
	}
	return res, nil
}

func (tc *toolConfig) ibcNickname(trace string) string {
	if n, ok := tc.IBCNicknames[trace]; ok && n != "" {
		return n
	}
	return trace
}

func isDenomTrace(ref string) bool {
	return strings.Contains(ref, "/")
}
