package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/namada-utils/stakeaudit/audit"
	"github.com/namada-utils/stakeaudit/types"
)

// queryConfig is the configuration of the read only report commands.
type queryConfig struct {
	Base   *baseConfiguration
	Output string
}

func newQueryCmd(baseConfig *baseConfiguration, use, short string, exec func(*cobra.Command, *queryConfig) error) *cobra.Command {
	config := &queryConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(config.Output); err != nil {
				return err
			}
			return exec(cmd, config)
		},
	}
	cmd.Flags().StringVar(&config.Output, flagNameOutput, outputText, "output format, one of: text, json")
	return cmd
}

const defaultTopValidators = 25

func newChainInfoCmd(baseConfig *baseConfiguration) *cobra.Command {
	return newQueryCmd(baseConfig, "chain-info", "reports epoch, last block, total stake, rewards rates and balances of the configured accounts", execChainInfoCmd)
}

func newBalancesCmd(baseConfig *baseConfiguration) *cobra.Command {
	return newQueryCmd(baseConfig, "balances [address or alias]...", "reports balance, bonded stake and unclaimed rewards of the addresses (default is the transparent addresses in config)", execBalancesCmd)
}

func newSupplyCmd(baseConfig *baseConfiguration) *cobra.Command {
	return newQueryCmd(baseConfig, "supply", "reports total and shielded supply of the native token and the configured IBC tokens", execSupplyCmd)
}

func newTopValidatorsCmd(baseConfig *baseConfiguration) *cobra.Command {
	var count int
	cmd := newQueryCmd(baseConfig, "top-validators", "reports consensus validators with the most stake and their cumulative voting power", func(cmd *cobra.Command, config *queryConfig) error {
		return execTopValidatorsCmd(cmd, config, count)
	})
	cmd.Flags().IntVarP(&count, "count", "n", defaultTopValidators, "number of validators to report")
	return cmd
}

func execChainInfoCmd(cmd *cobra.Command, config *queryConfig) error {
	base := config.Base
	r, err := base.resolver()
	if err != nil {
		return err
	}
	token, err := base.tool.nativeToken(r)
	if err != nil {
		return err
	}
	accounts, err := base.tool.namedAccounts(r)
	if err != nil {
		return err
	}
	client, err := base.chainClient()
	if err != nil {
		return err
	}
	info, err := audit.GetChainInfo(cmd.Context(), client, token, accounts)
	if err != nil {
		return err
	}

	for _, w := range info.Warnings {
		base.log.WarnContext(cmd.Context(), w)
	}

	if config.Output == outputJSON {
		return printJSON(info)
	}
	if info.LastBlock != nil {
		printf("Last block height: %d - (time: %s)", info.LastBlock.Height, info.LastBlock.Time.UTC().Format(time.RFC3339))
	}
	printf("Current epoch: %s", info.Epoch)
	printf("Total stake: %s NAM", info.TotalStaked.StringNative())
	printf("Stake at pipeline epoch %s: %s NAM", info.Epoch+audit.PipelineLength, info.PipelineStake.StringNative())
	printf("Native token supply: %s NAM", info.NativeSupply.StringNative())
	printf("Staked ratio: %s%%", percent(info.StakedRatio))
	if info.Rates != nil {
		printf("Annual staking rewards rate: %s%%", percent(info.Rates.StakingRewardsRate))
		printf("Annual PoS inflation rate: %s%%", percent(info.Rates.InflationRate))
	}
	for _, acc := range info.Accounts {
		printf("%s balance: %s NAM", acc.Name, acc.Balance.StringNative())
	}
	return nil
}

func execBalancesCmd(cmd *cobra.Command, config *queryConfig) error {
	base := config.Base
	r, err := base.resolver()
	if err != nil {
		return err
	}
	refs := cmd.Flags().Args()
	if len(refs) == 0 {
		refs = base.tool.TransparentAddresses
	}
	if len(refs) == 0 {
		return fmt.Errorf("%w: no addresses given and transparent_addresses is not configured", types.ErrManifest)
	}
	addrs := make([]types.Address, len(refs))
	for i, ref := range refs {
		if addrs[i], err = r.ResolveString(ref); err != nil {
			return fmt.Errorf("address %q: %w", ref, err)
		}
	}
	token, err := base.tool.nativeToken(r)
	if err != nil {
		return err
	}
	client, err := base.chainClient()
	if err != nil {
		return err
	}
	res, err := audit.GetBalances(cmd.Context(), client, token, addrs)
	if err != nil {
		return err
	}

	if config.Output == outputJSON {
		return printJSON(res)
	}
	for i, acc := range res.Accounts {
		printf("Address-%d: %s", i, acc.Address)
		printf("Balance: %s NAM", acc.Balance.StringNative())
		printf("Bonded: %s NAM", acc.Bonded.StringNative())
		for _, b := range acc.Bonds {
			printf("Unclaimed rewards from %s: %s NAM", b.Validator, b.Rewards.StringNative())
		}
		printf("Unclaimed rewards: %s NAM\n", acc.Rewards.StringNative())
	}
	printf("Total balance: %s NAM", res.TotalBalance.StringNative())
	printf("Total bonded: %s NAM", res.TotalBonded.StringNative())
	printf("Total unclaimed rewards: %s NAM", res.TotalRewards.StringNative())
	printf("Total transparent tokens: %s NAM", res.Total.StringNative())
	return nil
}

func execSupplyCmd(cmd *cobra.Command, config *queryConfig) error {
	base := config.Base
	r, err := base.resolver()
	if err != nil {
		return err
	}
	tokens, err := base.tool.tokens(r)
	if err != nil {
		return err
	}
	client, err := base.chainClient()
	if err != nil {
		return err
	}
	supplies, err := audit.GetSupplies(cmd.Context(), client, tokens)
	if err != nil {
		return err
	}

	if config.Output == outputJSON {
		return printJSON(supplies)
	}
	if len(base.tool.IBCTokens) > 0 {
		printf("--- Non-native tokens in config --------")
		for i, ref := range base.tool.IBCTokens {
			// supplies[0] is the native token
			printf("%s: %s (%s)", supplies[i+1].Name, ref, supplies[i+1].Token)
		}
	}
	printf("--- Total supply in Namada --------")
	for _, s := range supplies {
		printf("%s: %s", s.Name, s.Supply.Format(base.tool.TokenDecimals))
	}
	printf("--- Total supply in the MASP --------")
	for _, s := range supplies {
		printf("%s: %s", s.Name, s.Shielded.Format(base.tool.TokenDecimals))
	}
	return nil
}

func execTopValidatorsCmd(cmd *cobra.Command, config *queryConfig, count int) error {
	client, err := config.Base.chainClient()
	if err != nil {
		return err
	}
	top, err := audit.GetTopValidators(cmd.Context(), client, count)
	if err != nil {
		return err
	}

	if config.Output == outputJSON {
		return printJSON(top)
	}
	printf("Epoch %s, %d consensus validators with %s NAM staked", top.Epoch, top.Consensus, top.TotalStake.StringNative())
	printf("Top %d validators by stake (with cumulative VP):", len(top.Validators))
	for _, v := range top.Validators {
		name := v.Name
		if name == "" {
			name = "None"
		}
		printf("%s%% (%s%%) --- %s %s", percentFixed(v.Share), percentFixed(v.CumulativeShare), name, v.Address)
	}
	return nil
}
