package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/extractor"
	"github.com/standardbeagle/lspcached/internal/ipc"
	"github.com/standardbeagle/lspcached/internal/lspclient"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the caching daemon, serving IPC requests over stdio",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "default workspace root; individual requests may still resolve other roots",
			Value:   ".",
		},
	},
	Action: func(c *cli.Context) error {
		root, err := filepath.Abs(c.String("root"))
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}

		cfg, err := config.Load(root)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// No concrete language extractors or LSP spawners are wired into
		// this build: analysis degrades to name-only symbols and queries
		// fall through to the cache's last-known answer, per spec.md §7.
		reg := extractor.NewRegistry()
		var spawner lspclient.Spawner

		server := ipc.NewServer(cfg, reg, spawner)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return server.Run(ctx, &mcp.StdioTransport{})
	},
}
