// Command pgguard checks PostgreSQL migrations for unsafe operations.
package main

import (
	"os"

	"github.com/leapstack-labs/pgguard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
