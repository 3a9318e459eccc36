// Command shapesdemo is the classic DDS "Shapes" demo (§8 scenario 1):
// one process publishes moving colored squares on the "Square" topic,
// another subscribes and renders what it receives.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/dittofs/cmd/shapesdemo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
