// Package main is the entry point for the bbctl CLI client.
package main

import (
	"github.com/donaldgifford/mailin-buyback/cmd/bbctl/cmd"
)

func main() {
	cmd.Execute()
}
