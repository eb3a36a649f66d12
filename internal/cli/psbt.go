package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shieldwallet/walletcore/psbtengine"
	"github.com/shieldwallet/walletcore/wallettypes"
)

var psbtCmd = &cobra.Command{
	Use:   "psbt",
	Short: "Inspect and transport PSBTs",
}

var psbtChunkCmd = &cobra.Command{
	Use:   "chunk <base64-psbt>",
	Short: "Split a base64-encoded PSBT into QR-transportable chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxBytes, _ := cmd.Flags().GetInt("max-bytes")
		netName, err := networkFromConfig()
		if err != nil {
			return err
		}
		network := wallettypes.Mainnet
		if netName == "testnet" {
			network = wallettypes.Testnet
		}
		imported, err := psbtengine.Import(args[0], nil, network)
		if err != nil {
			return fmt.Errorf("failed to parse PSBT for chunking: %w", err)
		}
		chunks, err := psbtengine.Chunk(args[0], imported.Txid, maxBytes)
		if err != nil {
			return fmt.Errorf("failed to chunk PSBT: %w", err)
		}
		for _, c := range chunks {
			fmt.Println(c)
		}
		logger.Debug("chunked PSBT", "chunks", len(chunks), "max_bytes", maxBytes, "txid", imported.Txid)
		return nil
	},
}

var psbtReassembleCmd = &cobra.Command{
	Use:   "reassemble",
	Short: "Reassemble PSBT chunks read one-per-line from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var chunks []string
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			chunks = append(chunks, line)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read chunks: %w", err)
		}
		b64, err := psbtengine.Reassemble(chunks)
		if err != nil {
			return fmt.Errorf("failed to reassemble PSBT: %w", err)
		}
		fmt.Println(b64)
		return nil
	},
}

func init() {
	psbtChunkCmd.Flags().Int("max-bytes", 2500, "maximum payload bytes per chunk")
	psbtCmd.AddCommand(psbtChunkCmd, psbtReassembleCmd)
	rootCmd.AddCommand(psbtCmd)
}
