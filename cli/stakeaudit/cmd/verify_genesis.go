package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/namada-utils/stakeaudit/types"
)

type (
	verifyGenesisConfig struct {
		Base   *baseConfiguration
		Output string
	}

	allocationRow struct {
		Category types.Category `json:"category"`
		Balance  types.Amount   `json:"balance"`
		Share    types.Dec      `json:"share"`
	}
)

func newVerifyGenesisCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &verifyGenesisConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "verify-genesis",
		Short: "checks that the genesis allocation adds up to the total supply",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execVerifyGenesisCmd(config)
		},
	}
	cmd.Flags().StringVar(&config.Output, flagNameOutput, outputText, "output format, one of: text, json")
	return cmd
}

func execVerifyGenesisCmd(config *verifyGenesisConfig) error {
	if err := checkOutputFormat(config.Output); err != nil {
		return err
	}
	genesis, err := config.Base.tool.genesisAllocation()
	if err != nil {
		return err
	}

	categories := append(types.AllocatedCategories(), types.CategoryValidatorGrant)
	rows := make([]allocationRow, len(categories))
	for i, c := range categories {
		rows[i].Category = c
		rows[i].Balance, _ = genesis.Balance(c)
		if rows[i].Share, err = genesis.Share(c); err != nil {
			return fmt.Errorf("share of %s: %w", c, err)
		}
	}

	if config.Output == outputJSON {
		return printJSON(rows)
	}
	for _, r := range rows {
		printf("%-20s %26s NAM %12s%%", r.Category.Title(), r.Balance.StringNative(), percent(r.Share))
	}
	printf("%-20s %26s NAM", "Total supply", genesis.TotalSupply().StringNative())
	consoleWriter.Println("Genesis allocation is consistent")
	return nil
}
