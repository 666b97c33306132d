// Command screenwatch watches a game client and keeps a death ledger.
package main

import (
	"os"

	"github.com/screenwatch/screenwatch/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
