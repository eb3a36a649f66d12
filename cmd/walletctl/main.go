// Command walletctl is a thin command-line front end over the core
// packages: it generates mnemonics, derives single-key addresses, and
// splits and reassembles PSBTs for QR transport; it does not build or
// sign transactions. It exercises the core the way Jasonyou1995's skms CLI demonstrates its own
// wallet package's API — the cobra/viper wiring here is adapted
// directly from that project's internal/cli/root.go.
package main

import (
	"fmt"
	"os"

	"github.com/shieldwallet/walletcore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
