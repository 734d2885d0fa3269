package main

import (
	"context"
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

var queryCommand = &cli.Command{
	Name:  "query",
	Usage: "answer a single Definition/References/Hover/CallHierarchy/Implementations query",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "op", Usage: "definition, references, hover, call_hierarchy, or implementations", Required: true},
		&cli.StringFlag{Name: "file", Usage: "path to the file containing the position", Required: true},
		&cli.IntFlag{Name: "line", Usage: "0-based line number", Required: true},
		&cli.IntFlag{Name: "col", Usage: "0-based column number", Required: true},
		&cli.StringFlag{Name: "extra", Usage: "operation-specific disambiguator, rarely needed"},
	},
	Action: func(c *cli.Context) error {
		file, err := filepath.Abs(c.String("file"))
		if err != nil {
			return fmt.Errorf("resolve file path: %w", err)
		}

		root := filepath.Dir(file)
		cfg, err := config.Load(root)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var spawner lspclient.Spawner
		server := ipc.NewServer(cfg, extractor.NewRegistry(), spawner)
		defer server.Close()

		result, err := server.Query(context.Background(), ipc.QueryParams{
			Operation: c.String("op"),
			File:      file,
			Line:      c.Int("line"),
			Col:       c.Int("col"),
			Extra:     c.String("extra"),
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}
