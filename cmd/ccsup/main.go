// Command ccsup is the Session Supervisor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/ccsup/ccsup/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
