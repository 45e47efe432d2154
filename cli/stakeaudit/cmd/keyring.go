package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/namada-utils/stakeaudit/keyring"
)

const (
	passwordPromptUsage = "passphrase (interactive from prompt)"
	passwordArgUsage    = "passphrase (non-interactive from args)"

	passwordPromptCmdName = "password"
	passwordArgCmdName    = "pn"
)

func newKeyringCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "manages the keyring file",
	}
	cmd.AddCommand(newKeyringSealCmd(baseConfig))
	return cmd
}

func newKeyringSealCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "encrypts the plaintext private keys and mnemonics of the keyring with a passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execKeyringSealCmd(cmd, baseConfig)
		},
	}
	cmd.Flags().BoolP(passwordPromptCmdName, "p", true, passwordPromptUsage)
	cmd.Flags().String(passwordArgCmdName, "", passwordArgUsage)
	return cmd
}

func execKeyringSealCmd(cmd *cobra.Command, config *baseConfiguration) error {
	pass, err := createPassphrase(cmd)
	if err != nil {
		return err
	}
	if pass == "" {
		return errors.New("passphrase is required to seal the keyring")
	}
	name := config.homePath(config.KeyringFile)
	n, err := keyring.SealFile(name, pass)
	if err != nil {
		return fmt.Errorf("sealing keyring: %w", err)
	}
	if n == 0 {
		printf("No plaintext keys in %s", name)
		return nil
	}
	printf("Encrypted %d key(s) in %s", n, name)
	return nil
}

// passphraseFunc returns keyring passphrase callback which uses the --pn
// flag when set and prompts otherwise.
func passphraseFunc(cmd *cobra.Command) keyring.PassphraseFunc {
	return func(alias string) (string, error) {
		return getPassphrase(cmd, fmt.Sprintf("Enter passphrase of %q: ", alias))
	}
}

func createPassphrase(cmd *cobra.Command) (string, error) {
	passwordFromArg, err := cmd.Flags().GetString(passwordArgCmdName)
	if err != nil {
		return "", err
	}
	if passwordFromArg != "" {
		return passwordFromArg, nil
	}
	passwordFlag, err := cmd.Flags().GetBool(passwordPromptCmdName)
	if err != nil {
		return "", err
	}
	if !passwordFlag {
		return "", nil
	}
	p1, err := readPassword("Create new passphrase: ")
	if err != nil {
		return "", err
	}
	p2, err := readPassword("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", errors.New("passphrases do not match")
	}
	return p1, nil
}

func getPassphrase(cmd *cobra.Command, promptMessage string) (string, error) {
	passwordFromArg, err := cmd.Flags().GetString(passwordArgCmdName)
	if err != nil {
		return "", err
	}
	if passwordFromArg != "" {
		return passwordFromArg, nil
	}
	return readPassword(promptMessage)
}

func readPassword(promptMessage string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for passphrase, standard input is not a terminal (use --%s)", passwordArgCmdName)
	}
	consoleWriter.Print(promptMessage)
	passwordBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	consoleWriter.Println("") // line break after reading password
	return string(passwordBytes), nil
}
