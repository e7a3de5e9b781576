package main

import (
	"fmt"
	"os"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
