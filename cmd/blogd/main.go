package main

import (
	"os"

	"github.com/funyblog/funyblog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
