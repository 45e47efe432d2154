package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/namada-utils/stakeaudit/journal"
)

type journalConfig struct {
	Base        *baseConfiguration
	JournalFile string
	Output      string
}

func newJournalCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &journalConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "lists the submitted batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execJournalCmd(config)
		},
	}
	cmd.Flags().StringVar(&config.JournalFile, flagNameJournal, journal.DefaultFileName, "journal of submitted batches")
	cmd.Flags().StringVar(&config.Output, flagNameOutput, outputText, "output format, one of: text, json")
	return cmd
}

func execJournalCmd(config *journalConfig) (rErr error) {
	if err := checkOutputFormat(config.Output); err != nil {
		return err
	}
	store, err := journal.NewBoltStore(config.Base.homePath(config.JournalFile))
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer func() { rErr = errors.Join(rErr, store.Close()) }()

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}
	if config.Output == outputJSON {
		return printJSON(records)
	}
	if len(records) == 0 {
		consoleWriter.Println("No submitted batches")
		return nil
	}
	for _, rec := range records {
		printf("%s %s %s legs=%d debit=%s source=%s",
			rec.SubmittedAt.Format(time.RFC3339), hexutil.Encode(rec.Digest), rec.Outcome, rec.Legs, rec.TotalDebit, rec.Source)
		if rec.Reason != "" {
			printf("  reason: %s", rec.Reason)
		}
	}
	return nil
}
