package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rl1809/inventory-ledger/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}
