package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
	logger  hclog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "walletctl",
	Short:   "Bitcoin wallet cryptographic core CLI",
	Long:    "walletctl drives mnemonic generation, key derivation, address encoding and PSBT chunking/reassembly against the wallet cryptographic core, without holding a persistent keystore of its own.",
	Version: version,
}

// Execute runs the CLI; callers get a plain error back rather than a
// process exit so it stays testable.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.walletctl.yaml)")
	rootCmd.PersistentFlags().String("network", "testnet", "network: mainnet or testnet")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose logging")

	_ = viper.BindPFlag("network", rootCmd.PersistentFlags().Lookup("network"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".walletctl")
	}
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	level := hclog.Info
	if viper.GetBool("verbose") {
		level = hclog.Debug
	}
	logger = hclog.New(&hclog.LoggerOptions{
		Name:  "walletctl",
		Level: level,
	})
}

func networkFromConfig() (string, error) {
	net := viper.GetString("network")
	if net != "mainnet" && net != "testnet" {
		return "", fmt.Errorf("invalid network %q: must be mainnet or testnet", net)
	}
	return net, nil
}
