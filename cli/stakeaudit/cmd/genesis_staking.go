package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namada-utils/stakeaudit/audit"
	"github.com/namada-utils/stakeaudit/ledger"
	"github.com/namada-utils/stakeaudit/manifest"
	"github.com/namada-utils/stakeaudit/resolver"
	"github.com/namada-utils/stakeaudit/stake"
	"github.com/namada-utils/stakeaudit/types"
)

const (
	outputText = "text"
	outputJSON = "json"

	flagNameOutput = "output"
)

type genesisStakingConfig struct {
	Base *baseConfiguration

	CSVFile        string
	OnQueryFailure string
	Concurrency    int
	Epoch          uint64
	Output         string
}

func newGenesisStakingCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &genesisStakingConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "genesis-staking",
		Short: "reports how the genesis allocation categories are staked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execGenesisStakingCmd(cmd, config)
		},
	}
	cmd.Flags().StringVar(&config.CSVFile, "csv", "", "write stake of every backer address and its split between the roster validators into the CSV file")
	cmd.Flags().StringVar(&config.OnQueryFailure, "on-query-failure", stake.FailFast.String(), "what to do when bonds of an address can't be queried, one of: abort, skip")
	cmd.Flags().IntVar(&config.Concurrency, "concurrency", stake.DefaultConcurrency, "number of concurrent bond queries")
	cmd.Flags().Uint64Var(&config.Epoch, "epoch", 0, "epoch to audit (default is the current epoch)")
	cmd.Flags().StringVar(&config.Output, flagNameOutput, outputText, "output format, one of: text, json")
	return cmd
}

func execGenesisStakingCmd(cmd *cobra.Command, config *genesisStakingConfig) error {
	if err := checkOutputFormat(config.Output); err != nil {
		return err
	}
	policy, err := stake.ParseFailurePolicy(config.OnQueryFailure)
	if err != nil {
		return err
	}
	base := config.Base
	genesis, err := base.tool.genesisAllocation()
	if err != nil {
		return err
	}
	roster, err := base.tool.roster()
	if err != nil {
		return err
	}
	r, err := base.resolver()
	if err != nil {
		return err
	}
	in, err := loadAuditInput(base, r)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("epoch") {
		epoch := types.Epoch(config.Epoch)
		in.Epoch = &epoch
	}

	client, err := base.chainClient()
	if err != nil {
		return err
	}
	aggregator := stake.NewAggregator(client, roster,
		stake.WithFailurePolicy(policy),
		stake.WithConcurrency(config.Concurrency),
		stake.WithLogger(base.log),
	)
	// sections are printed as soon as they are ready, what was printed
	// stays visible when a later category fails
	var printErr error
	if config.Output == outputText {
		var rosterNames []string
		in.OnStart = func(r *audit.Report) {
			rosterNames = r.RosterNames
			printAuditHeader(r)
		}
		in.OnCategory = func(c *audit.CategoryReport) {
			if printErr == nil {
				printErr = printCategoryReport(rosterNames, c)
			}
		}
	}
	report, err := audit.NewAuditor(client, aggregator, genesis, base.log).Run(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("genesis staking audit: %w", err)
	}
	if printErr != nil {
		return printErr
	}

	if config.CSVFile != "" {
		if err := writeBackersCSV(config.CSVFile, roster, report); err != nil {
			return err
		}
	}

	if config.Output == outputJSON {
		return printJSON(report)
	}
	printPublicReport(report)
	if config.CSVFile != "" {
		printf("Data written to %s", config.CSVFile)
	}
	return nil
}

// loadAuditInput reads the category manifests named in the config file.
func loadAuditInput(base *baseConfiguration, r *resolver.Resolver) (*audit.Input, error) {
	files := base.tool.Manifests
	in := &audit.Input{}
	var err error
	if in.Backers, err = loadAddressManifest(base.homePath(files.Backers), r); err != nil {
		return nil, fmt.Errorf("backers: %w", err)
	}
	if in.CoreTeam, err = loadAddressManifest(base.homePath(files.CoreTeam), r); err != nil {
		return nil, fmt.Errorf("core team: %w", err)
	}
	if in.RnD, err = manifest.LoadCategorizedAccounts(base.homePath(files.RnD), types.CategoryRnD); err != nil {
		return nil, fmt.Errorf("R&D accounts: %w", err)
	}
	if in.FutureAlloc, err = manifest.LoadCategorizedAccounts(base.homePath(files.FutureAlloc), types.CategoryFutureAlloc); err != nil {
		return nil, fmt.Errorf("future allocation accounts: %w", err)
	}
	return in, nil
}

func loadAddressManifest(path string, r *resolver.Resolver) ([]types.Address, error) {
	refs, err := manifest.LoadAddresses(path)
	if err != nil {
		return nil, err
	}
	addrs, err := r.ResolveAll(refs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return addrs, nil
}

func writeBackersCSV(name string, roster *stake.Roster, report *audit.Report) (rErr error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rErr == nil {
			rErr = fmt.Errorf("closing CSV file: %w", err)
		}
	}()
	backers := report.Category(types.CategoryBacker)
	if err := audit.WriteRosterCSV(f, roster, backers.Stake.Addresses); err != nil {
		return fmt.Errorf("writing CSV file: %w", err)
	}
	return nil
}

func printAuditHeader(r *audit.Report) {
	printf("Current epoch: %s", r.Epoch)
	printf("Total stake: %s NAM", r.TotalStaked.StringNative())
}

func printCategoryReport(rosterNames []string, c *audit.CategoryReport) error {
	printf("\n---------- %s ----------\n", c.Category.Title())
	printf("Genesis balance: %s NAM", c.GenesisBalance.StringNative())
	if c.ManifestBalance != nil {
		printf("Balance of the listed accounts: %s NAM", c.ManifestBalance.StringNative())
		for _, n := range c.Names {
			printf("  --> %s: %s NAM in %d account(s), %s NAM staked (%s%%)",
				n.Name, n.GenesisBalance.StringNative(), n.Accounts, n.Staked.StringNative(), percent(n.ShareStaked))
		}
	}
	printf("\nStaked: %s NAM", c.Staked.StringNative())
	printf("%s fraction of total stake: %s%%", c.Category.Title(), percent(c.ShareOfTotalStake))
	printf("Fraction of %s tokens staked: %s%%", strings.ToLower(c.Category.Title()), percent(c.ShareStaked))
	printf("\nFraction of stake held by the roster validators: %s%%", percent(c.RosterShare))
	for _, name := range rosterNames {
		share := types.Dec{}
		if !c.Staked.IsZero() {
			var err error
			if share, err = ledger.Ratio(c.Roster[name], c.Staked); err != nil {
				return fmt.Errorf("roster share of %s: %w", name, err)
			}
		}
		printf("  --> %s: %s%%", name, percent(share))
	}
	for _, addr := range c.Skipped {
		printf("  skipped %s", addr)
	}
	return nil
}

func printPublicReport(r *audit.Report) {
	printf("\n---------- %s ----------\n", types.CategoryPublicAlloc.Title())
	if r.Partial {
		consoleWriter.Println("NB! some addresses could not be queried, the report is partial")
	}
	printf("Genesis balance: %s NAM", r.Public.GenesisBalance.StringNative())
	printf("\nAssumed public allocations fraction of total stake: %s%%", percent(r.Public.ShareOfTotalStake))
	printf("Staked: %s NAM", r.Public.Staked.StringNative())
	printf("Fraction of public allocations staked: %s%%", percent(r.Public.ShareStaked))
	printf("\nValidator grant: %s NAM", r.ValidatorGrant.StringNative())
}

// percent formats ratio as percentage, the error is rendered in place of
// the value.
func percent(ratio types.Dec) string {
	p, err := ledger.Percentage(ratio)
	if err != nil {
		return err.Error()
	}
	return p.String()
}

func percentFixed(ratio types.Dec) string {
	p, err := ledger.Percentage(ratio)
	if err != nil {
		return err.Error()
	}
	return p.StringFixed(2)
}

func checkOutputFormat(f string) error {
	switch f {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("%w: invalid output format %q, expected one of: %s, %s", types.ErrParse, f, outputText, outputJSON)
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	consoleWriter.Println(string(b))
	return nil
}
