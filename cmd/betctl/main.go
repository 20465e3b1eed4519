// cmd/betctl/main.go is an operator CLI that runs ledger operations directly
// against a LevelDB ledger directory.
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
