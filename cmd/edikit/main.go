// Command edikit converts EDIFACT interchanges of the German energy market to
// and from BO4E JSON and validates them against MIG and AHB rules.
package main

import (
	"fmt"
	"os"

	"github.com/enermsg/edikit/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
