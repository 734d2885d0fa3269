package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/extractor"
	"github.com/standardbeagle/lspcached/internal/ipc"
	"github.com/standardbeagle/lspcached/internal/lspclient"
)

// openServer loads the config for root and builds a one-shot IPC server,
// the same plumbing serve uses, for CLI commands that never start a
// transport loop.
func openServer(root string) (*ipc.Server, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var spawner lspclient.Spawner
	return ipc.NewServer(cfg, extractor.NewRegistry(), spawner), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var cacheCommand = &cli.Command{
	Name:  "cache",
	Usage: "inspect and maintain the workspace cache and symbol store",
	Subcommands: []*cli.Command{
		{
			Name:  "stats",
			Usage: "report symbol/edge store and LSP cache statistics",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "root", Value: ".", Usage: "workspace root"},
				&cli.BoolFlag{Name: "detailed", Usage: "include per-language symbol counts"},
				&cli.BoolFlag{Name: "git-stats", Usage: "include git-derived hot-spot statistics"},
			},
			Action: func(c *cli.Context) error {
				server, err := openServer(c.String("root"))
				if err != nil {
					return err
				}
				defer server.Close()

				stats, err := server.CacheGetStats(ipc.CacheGetStatsParams{
					Root:     c.String("root"),
					Detailed: c.Bool("detailed"),
					GitStats: c.Bool("git-stats"),
				})
				if err != nil {
					return err
				}
				return printJSON(stats)
			},
		},
		{
			Name:  "clear",
			Usage: "clear cache entries matching a filter",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "root", Value: ".", Usage: "workspace root"},
				&cli.BoolFlag{Name: "all", Usage: "clear every cache entry"},
				&cli.IntFlag{Name: "older-than-days", Usage: "clear entries older than N days"},
				&cli.StringFlag{Name: "file-path", Usage: "clear entries for a single file"},
			},
			Action: func(c *cli.Context) error {
				server, err := openServer(c.String("root"))
				if err != nil {
					return err
				}
				defer server.Close()

				result, err := server.CacheClear(ipc.CacheClearParams{
					Root:          c.String("root"),
					All:           c.Bool("all"),
					OlderThanDays: c.Int("older-than-days"),
					FilePath:      c.String("file-path"),
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			},
		},
		{
			Name:  "export",
			Usage: "export the workspace's symbols and call hierarchy to a JSON document",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "root", Value: ".", Usage: "workspace root"},
				&cli.StringFlag{Name: "path", Required: true, Usage: "destination file path"},
				&cli.BoolFlag{Name: "compress", Usage: "gzip-compress the export"},
			},
			Action: func(c *cli.Context) error {
				server, err := openServer(c.String("root"))
				if err != nil {
					return err
				}
				defer server.Close()

				result, err := server.CacheExport(ipc.CacheExportParams{
					Root:     c.String("root"),
					Path:     c.String("path"),
					Compress: c.Bool("compress"),
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			},
		},
		{
			Name:  "import",
			Usage: "import a previously exported document",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "root", Value: ".", Usage: "workspace root"},
				&cli.StringFlag{Name: "path", Required: true, Usage: "source file path"},
				&cli.BoolFlag{Name: "merge", Usage: "merge with the current store instead of replacing it"},
			},
			Action: func(c *cli.Context) error {
				server, err := openServer(c.String("root"))
				if err != nil {
					return err
				}
				defer server.Close()

				result, err := server.CacheImport(ipc.CacheImportParams{
					Root:  c.String("root"),
					Path:  c.String("path"),
					Merge: c.Bool("merge"),
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			},
		},
		{
			Name:  "compact",
			Usage: "rewrite the workspace's persistent store to reclaim space",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "root", Value: ".", Usage: "workspace root"},
				&cli.BoolFlag{Name: "clean-expired", Usage: "drop expired cache entries while compacting"},
				&cli.IntFlag{Name: "target-size-mb", Usage: "target size hint in megabytes, best-effort"},
			},
			Action: func(c *cli.Context) error {
				server, err := openServer(c.String("root"))
				if err != nil {
					return err
				}
				defer server.Close()

				dest, err := server.CacheCompact(ipc.CacheCompactParams{
					Root:         c.String("root"),
					CleanExpired: c.Bool("clean-expired"),
					TargetSizeMB: c.Int("target-size-mb"),
				})
				if err != nil {
					return err
				}
				return printJSON(map[string]string{"compacted_to": dest})
			},
		},
	},
}
