package main

import (
	"os"

	"github.com/jjenkins/regwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
