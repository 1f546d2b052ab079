package main

import (
	"fmt"
	"os"

	"github.com/rahulclufox/EpubViewerKit/internal/cli"
)

// version is set via ldflags.
var version = "dev"

func main() {
	root := cli.NewRootCommand()
	root.Version = version

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "readmark: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
