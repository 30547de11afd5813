package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rustyeddy/candletrades/cmd/candletrades/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
