package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shieldwallet/walletcore/addresscodec"
	"github.com/shieldwallet/walletcore/keytree"
	"github.com/shieldwallet/walletcore/wallettypes"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Derive a single-key address from a mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		passphrase, _ := cmd.Flags().GetString("passphrase")
		scriptTypeFlag, _ := cmd.Flags().GetString("script-type")
		account, _ := cmd.Flags().GetUint32("account")
		chain, _ := cmd.Flags().GetUint32("chain")
		index, _ := cmd.Flags().GetUint32("index")

		if mnemonic == "" {
			return fmt.Errorf("mnemonic is required")
		}
		netName, err := networkFromConfig()
		if err != nil {
			return err
		}
		network := wallettypes.Mainnet
		if netName == "testnet" {
			network = wallettypes.Testnet
		}

		st, err := parseScriptType(scriptTypeFlag)
		if err != nil {
			return err
		}

		seed, err := keytree.SeedFromMnemonic(mnemonic, passphrase)
		if err != nil {
			return fmt.Errorf("invalid mnemonic: %w", err)
		}
		tree, err := keytree.FromSeed(seed, network)
		if err != nil {
			return fmt.Errorf("failed to derive master node: %w", err)
		}

		node, err := tree.DeriveAddressNode(st, account, chain, index)
		if err != nil {
			return fmt.Errorf("failed to derive address node: %w", err)
		}
		pub, err := node.ECPubKey()
		if err != nil {
			return fmt.Errorf("failed to materialize public key: %w", err)
		}
		addr, err := addresscodec.Encode(network, st, pub)
		if err != nil {
			return fmt.Errorf("failed to encode address: %w", err)
		}

		fmt.Println(addr.Encoded)
		logger.Debug("derived address", "network", netName, "script_type", st.String(), "account", account, "chain", chain, "index", index)
		return nil
	},
}

func parseScriptType(s string) (wallettypes.ScriptType, error) {
	switch s {
	case "p2pkh":
		return wallettypes.P2PKH, nil
	case "p2sh-p2wpkh":
		return wallettypes.P2SHP2WPKH, nil
	case "p2wpkh":
		return wallettypes.P2WPKH, nil
	default:
		return 0, fmt.Errorf("unsupported script type %q (want p2pkh, p2sh-p2wpkh or p2wpkh)", s)
	}
}

func init() {
	addressCmd.Flags().StringP("mnemonic", "m", "", "BIP-39 mnemonic phrase (required)")
	addressCmd.Flags().String("passphrase", "", "BIP-39 passphrase")
	addressCmd.Flags().String("script-type", "p2wpkh", "script type: p2pkh, p2sh-p2wpkh or p2wpkh")
	addressCmd.Flags().Uint32("account", 0, "account index")
	addressCmd.Flags().Uint32("chain", 0, "chain: 0=receive, 1=change")
	addressCmd.Flags().Uint32("index", 0, "address index")
	_ = addressCmd.MarkFlagRequired("mnemonic")
	rootCmd.AddCommand(addressCmd)
}
