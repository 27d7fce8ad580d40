// Package main is the entry point for the mail-in buyback server.
package main

import (
	"os"

	"github.com/donaldgifford/mailin-buyback/cmd/buyback-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
