package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/namada-utils/stakeaudit/chain/client"
	"github.com/namada-utils/stakeaudit/keyring"
	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/observability"
	"github.com/namada-utils/stakeaudit/resolver"
)

type (
	LoggerFactory func(cfg *logger.LogConfiguration) (*slog.Logger, error)

	baseConfiguration struct {
		// The tool home directory
		HomeDir string
		// Configuration file URL. If it's relative, then it's relative from the HomeDir.
		CfgFile string
		// Logger configuration file URL.
		LogCfgFile string
		// Keyring file URL, relative from the HomeDir unless absolute.
		KeyringFile string
		// Base URL of the chain query service.
		RPC        string
		RPCTimeout time.Duration
		// When set, metrics are written into the file when the command ends.
		MetricsFile string

		loggerBuilder LoggerFactory
		log           *slog.Logger
		metrics       *observability.Metrics
		tool          *toolConfig
	}
)

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "NAMADA_UTILS"
	// RPC address was read from this variable before the prefixed one existed.
	legacyRPCEnv = "RPC_NAMADA_UTILS"
	// The default name for config file.
	defaultConfigFile = "config/config.toml"
	// the default tool directory.
	defaultToolDir = ".namada-utils"
	// The default logger configuration file name.
	defaultLoggerConfigFile = "logger-config.yaml"
	defaultKeyringFile      = "keyring.yaml"
	// The configuration key for home directory.
	keyHome = "dir"
	// The configuration key for config file name.
	keyConfig = "config"
	keyRPC    = "rpc"

	flagNameRPCTimeout    = "rpc-timeout"
	flagNameKeyring       = "keyring"
	flagNameMetricsFile   = "metrics-file"
	flagNameLoggerCfgFile = "logger-config"
	flagNameLogOutputFile = "log-file"
	flagNameLogLevel      = "log-level"
	flagNameLogFormat     = "log-format"
)

func (r *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&r.HomeDir, keyHome, "", fmt.Sprintf("set the %s for this invocation (default is %s)", envKey(keyHome), toolHomeDir()))
	cmd.PersistentFlags().StringVar(&r.CfgFile, keyConfig, "", fmt.Sprintf("config file URL (default is $%s/%s)", envKey(keyHome), defaultConfigFile))
	cmd.PersistentFlags().StringVar(&r.RPC, keyRPC, "http://localhost:26660", "chain query service URL")
	cmd.PersistentFlags().DurationVar(&r.RPCTimeout, flagNameRPCTimeout, client.DefaultTimeout, "timeout of a single chain query")
	cmd.PersistentFlags().StringVar(&r.KeyringFile, flagNameKeyring, defaultKeyringFile, fmt.Sprintf("keyring file URL. Considered absolute if starts with '/'. Otherwise relative from $%s.", envKey(keyHome)))
	cmd.PersistentFlags().StringVar(&r.MetricsFile, flagNameMetricsFile, "", "write chain client metrics in Prometheus text format into the file")

	cmd.PersistentFlags().StringVar(&r.LogCfgFile, flagNameLoggerCfgFile, defaultLoggerConfigFile, fmt.Sprintf("logger config file URL. Considered absolute if starts with '/'. Otherwise relative from $%s.", envKey(keyHome)))
	// do not set default values for these flags as then we can easily determine whether to load the value from cfg file or not
	cmd.PersistentFlags().String(flagNameLogOutputFile, "", "log file path or one of the special values: stdout, stderr, discard")
	cmd.PersistentFlags().String(flagNameLogLevel, "", "logging level, one of: DEBUG, INFO, WARN, ERROR")
	cmd.PersistentFlags().String(flagNameLogFormat, "", "log format, one of: text, json, console, cli, ecs")
}

func (r *baseConfiguration) initConfigFileLocation() {
	// Home directory and config file are loaded before the rest of the
	// configuration: flag, then env, then default.
	if r.HomeDir == "" {
		r.HomeDir = os.Getenv(envKey(keyHome))
		if r.HomeDir == "" {
			r.HomeDir = toolHomeDir()
		}
	}

	if r.CfgFile == "" {
		r.CfgFile = os.Getenv(envKey(keyConfig))
		if r.CfgFile == "" {
			r.CfgFile = defaultConfigFile
		}
	}
	r.CfgFile = r.homePath(r.CfgFile)
}

/*
LoggerCfgFilename always returns non-empty filename - either the value
of the flag set by user or default cfg location.
*/
func (r *baseConfiguration) LoggerCfgFilename() string {
	return r.homePath(r.LogCfgFile)
}

func (r *baseConfiguration) configFileExists() bool {
	_, err := os.Stat(r.CfgFile)
	return err == nil
}

// homePath returns "name" as is when it's absolute, otherwise relative
// from the home directory.
func (r *baseConfiguration) homePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.HomeDir, name)
}

/*
initLogger creates Logger based on configuration flags in "cmd".
*/
func (r *baseConfiguration) initLogger(cmd *cobra.Command, loggerBuilder LoggerFactory) (*slog.Logger, error) {
	cfg := &logger.LogConfiguration{}

	loggerCfgFile := filepath.Clean(r.LoggerCfgFilename())
	if f, err := os.Open(loggerCfgFile); err != nil {
		defaultLoggerCfg := filepath.Join(r.HomeDir, defaultLoggerConfigFile)
		if !(errors.Is(err, os.ErrNotExist) && loggerCfgFile == defaultLoggerCfg) {
			return nil, fmt.Errorf("opening logger configuration file: %w", err)
		}
	} else {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decoding logger configuration (%s): %w", loggerCfgFile, err)
		}
	}

	getFlagValueIfSet := func(flagName string, value *string) error {
		if cmd.Flags().Changed(flagName) {
			var err error
			if *value, err = cmd.Flags().GetString(flagName); err != nil {
				return fmt.Errorf("failed to read %s flag value: %w", flagName, err)
			}
		}
		return nil
	}

	// flags override values loaded from cfg file.
	// NB! these flags mustn't have default values in Cobra cmd definition!
	if err := getFlagValueIfSet(flagNameLogLevel, &cfg.Level); err != nil {
		return nil, err
	}
	if err := getFlagValueIfSet(flagNameLogFormat, &cfg.Format); err != nil {
		return nil, err
	}
	if err := getFlagValueIfSet(flagNameLogOutputFile, &cfg.OutputPath); err != nil {
		return nil, err
	}

	l, err := loggerBuilder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

// chainClient returns client of the chain query service configured by the
// rpc flags.
func (r *baseConfiguration) chainClient() (*client.ChainClient, error) {
	c, err := client.New(r.RPC, client.WithTimeout(r.RPCTimeout), client.WithMetrics(r.metrics), client.WithLogger(r.log))
	if err != nil {
		return nil, fmt.Errorf("creating chain client: %w", err)
	}
	return c, nil
}

/*
loadKeyring loads the keyring file. Missing default keyring file is not an
error, empty keyring is returned then, addresses can still be given as
literals.
*/
func (r *baseConfiguration) loadKeyring() (*keyring.Keyring, error) {
	name := r.homePath(r.KeyringFile)
	kr, err := keyring.Load(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && name == r.homePath(defaultKeyringFile) {
			return keyring.New(), nil
		}
		return nil, fmt.Errorf("loading keyring: %w", err)
	}
	return kr, nil
}

func (r *baseConfiguration) resolver() (*resolver.Resolver, error) {
	kr, err := r.loadKeyring()
	if err != nil {
		return nil, err
	}
	return resolver.New(kr), nil
}

func envKey(key string) string {
	return strings.ToUpper(envPrefix + "_" + key)
}

func toolHomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		panic("default user home dir not defined: " + err.Error())
	}
	return filepath.Join(dir, defaultToolDir)
}
