package main

import (
	"fmt"
	"os"

	"github.com/sunbay-developer/taplink-sdk-go/internal/monitorapp"
)

func main() {
	if err := monitorapp.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
