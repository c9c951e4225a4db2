package main

import (
	"os"

	"github.com/katalvlaran/qbfdp/cmd/qbfdp/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
