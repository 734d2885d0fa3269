package main

import (
	"fmt"
	"os"

	"github.com/standardbeagle/lspcached/internal/version"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "lspcached",
		Usage:   "content-addressed LSP response caching and symbol graph daemon",
		Version: version.Version,
		Commands: []*cli.Command{
			serveCommand,
			queryCommand,
			cacheCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
