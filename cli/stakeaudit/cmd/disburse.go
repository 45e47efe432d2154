package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/namada-utils/stakeaudit/disburse"
	"github.com/namada-utils/stakeaudit/journal"
	"github.com/namada-utils/stakeaudit/manifest"
	"github.com/namada-utils/stakeaudit/resolver"
	"github.com/namada-utils/stakeaudit/types"
)

const flagNameJournal = "journal"

type disburseConfig struct {
	Base *baseConfiguration

	TargetsFile string
	Source      string
	Token       string
	FeePayer    string
	Signer      string
	Memo        string
	JournalFile string
	DryRun      bool
	Force       bool
	Snapshot    bool
	Yes         bool
}

// errAborted is returned when the user doesn't confirm the submission.
var errAborted = errors.New("disbursement aborted")

func newDisburseCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &disburseConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "disburse",
		Short: "sends tokens to the targets listed in a CSV file with a single batch transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execDisburseCmd(cmd, config)
		},
	}
	cmd.Flags().StringVar(&config.TargetsFile, "targets", "", "CSV file of targets, \"address,amount\" per line")
	cmd.Flags().StringVar(&config.Source, "source", "", "address or keyring alias of the account the tokens are sent from")
	cmd.Flags().StringVar(&config.Token, "token", "", "address or keyring alias of the token (default is the native token)")
	cmd.Flags().StringVar(&config.FeePayer, "fee-payer", "", "address or keyring alias of the fee payer (default is the source)")
	cmd.Flags().StringVar(&config.Signer, "signer", "", "keyring alias of the signing key (default is the source alias)")
	cmd.Flags().StringVar(&config.Memo, "memo", "", "memo attached to the batch")
	cmd.Flags().StringVar(&config.JournalFile, flagNameJournal, journal.DefaultFileName, fmt.Sprintf("journal of submitted batches. Considered absolute if starts with '/'. Otherwise relative from $%s.", envKey(keyHome)))
	cmd.Flags().BoolVar(&config.DryRun, "dry-run", false, "build and print the batch without signing and submitting it")
	cmd.Flags().BoolVar(&config.Force, "force", false, "submit even when the journal has the batch as already submitted")
	cmd.Flags().BoolVar(&config.Snapshot, "snapshot", false, "query target balances before the submission to report the balance changes")
	cmd.Flags().BoolVarP(&config.Yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().String(passwordArgCmdName, "", "passphrase of the encrypted signing key (prompted when not set)")
	_ = cmd.MarkFlagRequired("targets")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func execDisburseCmd(cmd *cobra.Command, config *disburseConfig) (rErr error) {
	base := config.Base
	kr, err := base.loadKeyring()
	if err != nil {
		return err
	}
	kr.SetPassphraseFunc(passphraseFunc(cmd))
	r := resolver.New(kr)

	plan, err := config.plan(r)
	if err != nil {
		return err
	}

	var signer disburse.Signer
	if !config.DryRun {
		alias := config.Signer
		if alias == "" {
			ref, err := types.NewAddressRef(config.Source)
			if err != nil || ref.Kind != types.RefAlias {
				return fmt.Errorf("%w: --signer must be set when the source is not a keyring alias", types.ErrLookup)
			}
			alias = ref.Value
		}
		if signer, err = kr.Signer(alias); err != nil {
			return fmt.Errorf("signer: %w", err)
		}
	}

	client, err := base.chainClient()
	if err != nil {
		return err
	}
	opts := []disburse.DisburserOption{disburse.WithLogger(base.log), disburse.WithMetrics(base.metrics)}
	if !config.DryRun {
		store, err := journal.NewBoltStore(base.homePath(config.JournalFile))
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() { rErr = errors.Join(rErr, store.Close()) }()
		opts = append(opts, disburse.WithJournal(store))
	}
	d := disburse.NewDisburser(client, signer, opts...)
	decimals := base.tool.TokenDecimals

	if !config.DryRun && !config.Yes {
		// build the batch first so that the user sees what is confirmed
		preview := *plan
		preview.DryRun = true
		res, err := d.Run(cmd.Context(), &preview)
		if err != nil {
			return err
		}
		printBatch(plan, res, decimals)
		ok, err := confirm("Submit the batch?")
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	res, err := d.Run(cmd.Context(), plan)
	if res != nil && (config.DryRun || config.Yes) {
		printBatch(plan, res, decimals)
	}
	if err != nil {
		if res != nil && res.Receipt != nil {
			printReceipt(res.Receipt)
		}
		if disburse.IsUnknownOutcome(err) {
			consoleWriter.Println("NB! it is unknown whether the batch was applied, check the balances before retrying")
		}
		return fmt.Errorf("disbursement: %w", err)
	}
	if config.DryRun {
		consoleWriter.Println("Dry run, the batch was not submitted")
		return nil
	}
	printReceipt(res.Receipt)
	printTargetBalances(res.Balances, decimals)
	return nil
}

// plan resolves the addresses given on the command line and loads targets.
func (config *disburseConfig) plan(r *resolver.Resolver) (*disburse.Plan, error) {
	tc := config.Base.tool
	plan := &disburse.Plan{
		ChainID:  tc.ChainID,
		Memo:     config.Memo,
		DryRun:   config.DryRun,
		Force:    config.Force,
		Snapshot: config.Snapshot,
	}
	var err error
	if plan.Source, err = r.ResolveString(config.Source); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if config.Token == "" {
		plan.Token, err = tc.nativeToken(r)
	} else {
		plan.Token, err = r.ResolveString(config.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	plan.FeePayer = plan.Source
	if config.FeePayer != "" {
		if plan.FeePayer, err = r.ResolveString(config.FeePayer); err != nil {
			return nil, fmt.Errorf("fee payer: %w", err)
		}
	}

	records, err := manifest.LoadTargets(config.TargetsFile, tc.TokenDecimals)
	if err != nil {
		return nil, err
	}
	plan.Targets = make([]types.TransferTarget, len(records))
	for i, rec := range records {
		dest, err := r.Resolve(rec.Destination)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", config.TargetsFile, rec.Line, err)
		}
		plan.Targets[i] = types.TransferTarget{Destination: dest, Amount: rec.Amount}
	}
	return plan, nil
}

// confirm asks the user a yes/no question, when the standard input is not
// a terminal the answer is yes.
func confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true, nil
	}
	consoleWriter.Print(question + " [y/N]: ")
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func printBatch(plan *disburse.Plan, res *disburse.Result, decimals uint32) {
	printf("Chain: %s", res.Transfer.ChainID)
	printf("Source: %s", plan.Source)
	printf("Token: %s", plan.Token)
	printf("Fee payer: %s", res.Transfer.FeePayer)
	if res.Transfer.Memo != "" {
		printf("Memo: %s", res.Transfer.Memo)
	}
	for i, leg := range res.Transfer.Legs {
		printf("  #%d %s %s", i+1, leg.Destination, leg.Amount.Format(decimals))
	}
	printf("Total debit: %s", res.TotalDebit.Format(decimals))
	printf("Batch digest: %s", hexutil.Encode(res.Digest))
}

func printReceipt(rec *types.Receipt) {
	if rec.Accepted {
		printf("Batch accepted, tx hash %s", hexutil.Encode(rec.TxHash))
		return
	}
	printf("Batch rejected: %s", rec.Reason)
	for _, ls := range rec.LegStatus {
		if !ls.Accepted {
			printf("  leg #%d: %s", ls.Index+1, ls.Reason)
		}
	}
}

func printTargetBalances(balances []disburse.TargetBalance, decimals uint32) {
	consoleWriter.Println("Target balances:")
	for _, tb := range balances {
		if tb.Err != nil {
			printf("  %s: query failed: %v", tb.Target.Destination, tb.Err)
			continue
		}
		line := fmt.Sprintf("  %s: %s", tb.Target.Destination, tb.Balance.Format(decimals))
		if delta, ok := tb.Delta(); ok {
			line += fmt.Sprintf(" (+%s)", delta.Format(decimals))
		}
		consoleWriter.Println(line)
	}
}
