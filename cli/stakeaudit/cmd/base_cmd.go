package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/namada-utils/stakeaudit/observability"
)

type stakeauditApp struct {
	baseCmd    *cobra.Command
	baseConfig *baseConfiguration
}

// New creates the stakeaudit application
func New(logF LoggerFactory) *stakeauditApp {
	baseCmd, baseConfig := newBaseCmd(logF)
	return &stakeauditApp{baseCmd, baseConfig}
}

// Execute adds all child commands and runs the application
func (a *stakeauditApp) Execute(ctx context.Context) (err error) {
	defer func() {
		err = errors.Join(err, a.baseConfig.writeMetrics())
	}()

	return a.addAndExecuteCommand(ctx)
}

func (a *stakeauditApp) addAndExecuteCommand(ctx context.Context) error {
	a.baseCmd.AddCommand(newGenesisStakingCmd(a.baseConfig))
	a.baseCmd.AddCommand(newVerifyGenesisCmd(a.baseConfig))
	a.baseCmd.AddCommand(newDisburseCmd(a.baseConfig))
	a.baseCmd.AddCommand(newJournalCmd(a.baseConfig))
	a.baseCmd.AddCommand(newKeyringCmd(a.baseConfig))
	a.baseCmd.AddCommand(newServeMetricsCmd(a.baseConfig))
	a.baseCmd.AddCommand(newChainInfoCmd(a.baseConfig))
	a.baseCmd.AddCommand(newBalancesCmd(a.baseConfig))
	a.baseCmd.AddCommand(newSupplyCmd(a.baseConfig))
	a.baseCmd.AddCommand(newTopValidatorsCmd(a.baseConfig))
	return a.baseCmd.ExecuteContext(ctx)
}

func newBaseCmd(logF LoggerFactory) (*cobra.Command, *baseConfiguration) {
	config := &baseConfiguration{loggerBuilder: logF, metrics: observability.NewMetrics()}
	var baseCmd = &cobra.Command{
		Use:           "stakeaudit",
		Short:         "Namada genesis stake audit and batch disbursement tool",
		Long:          `Audits how the genesis allocation categories are staked on chain and sends batch transfers.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// subcommands without their own PersistentPreRunE use this one
			if err := initializeConfig(cmd, config); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	config.addConfigurationFlags(baseCmd)

	return baseCmd, config
}

func initializeConfig(cmd *cobra.Command, config *baseConfiguration) error {
	var errs []error

	if err := config.initializeConfig(cmd); err != nil {
		errs = append(errs, fmt.Errorf("reading configuration: %w", err))
	}

	log, err := config.initLogger(cmd, config.loggerBuilder)
	if err != nil {
		errs = append(errs, fmt.Errorf("initializing logger: %w", err))
	}
	config.log = log

	return errors.Join(errs...)
}

// initializeConfig reads in config file and ENV variables if set.
func (config *baseConfiguration) initializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	config.initConfigFileLocation()

	if config.configFileExists() {
		v.SetConfigFile(config.CfgFile)
	}

	// Missing config file is fine, the defaults are used then. A config
	// file which can't be parsed is an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	// Flag --number binds to environment variable NAMADA_UTILS_NUMBER.
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv(keyRPC, envKey(keyRPC), legacyRPCEnv); err != nil {
		return fmt.Errorf("binding env to %q: %w", keyRPC, err)
	}

	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	tc, err := decodeToolConfig(v)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", config.CfgFile, err)
	}
	config.tool = tc
	return nil
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyHome || f.Name == keyConfig {
			// "dir" and "config" are special configuration values, handled separately.
			return
		}

		// Environment variables can't have dashes in them, so bind them to their equivalent
		// keys with underscores, e.g. --rpc-timeout to NAMADA_UTILS_RPC_TIMEOUT
		if strings.Contains(f.Name, "-") {
			if err := v.BindEnv(f.Name, envKey(strings.ReplaceAll(f.Name, "-", "_"))); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}

		if f.Changed {
			return
		}
		// config file keys are snake case (rpc_timeout) but dashed keys are accepted too
		key := f.Name
		if !v.IsSet(key) {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if v.IsSet(key) {
			val := v.Get(key)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
				return
			}
		}
	})

	return errors.Join(bindFlagErr...)
}

// writeMetrics dumps the metrics collected during the run into the
// metrics file, when one was requested.
func (config *baseConfiguration) writeMetrics() error {
	if config.MetricsFile == "" {
		return nil
	}
	f, err := os.Create(config.MetricsFile)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	return errors.Join(config.metrics.WriteText(f), f.Close())
}
