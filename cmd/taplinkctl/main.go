package main

import (
	"fmt"
	"os"

	"github.com/sunbay-developer/taplink-sdk-go/internal/cliapp"
)

func main() {
	if err := cliapp.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
