package main

import (
	"fmt"
	"os"

	"github.com/projecteru2/hive/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hive: %v\n", err)
		os.Exit(1)
	}
}
