package main

import (
	"os"

	"github.com/hasna/convo/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
