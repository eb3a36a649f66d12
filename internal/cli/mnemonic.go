package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shieldwallet/walletcore/keytree"
)

var mnemonicCmd = &cobra.Command{
	Use:   "mnemonic",
	Short: "Generate a new BIP-39 mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := keytree.NewMnemonic()
		if err != nil {
			return fmt.Errorf("failed to generate mnemonic: %w", err)
		}
		fmt.Println(m)
		logger.Debug("generated mnemonic")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mnemonicCmd)
}
