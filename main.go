package main

import (
	"os"

	"github.com/coinwatch/newsrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
