// Command ocrprovctl is the operator CLI for the provenance engine: schema
// migration, backup inspection, ad hoc search, document ingestion, and log
// tailing against a database file on disk.
package main

import (
	"fmt"
	"os"

	"github.com/ocrprov/engine/cmd/ocrprovctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
