package main

import (
	"os"

	"github.com/nahidhasan98/perfbudget/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
