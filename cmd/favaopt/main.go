// Package main is the entry point for the favaopt CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/ledger-options/cmd/favaopt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
