package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// configFileName is the workspace-local config file, checked at the
// workspace root before falling back to Default.
const configFileName = ".lspcached.kdl"

// Load reads configFileName under root, merging it over Default(root).
// A missing file is not an error: Default(root) is returned unchanged.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, configFileName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(root), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configFileName, err)
	}

	cfg := Default(root)
	if err := parseKDL(string(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFileName, err)
	}

	if cfg.Project.Root != "" && !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(root, cfg.Project.Root))
	}
	if cfg.Project.Root == "" {
		cfg.Project.Root = root
	}

	return cfg, cfg.Validate()
}

// parseKDL walks the document and overlays values onto cfg, which the
// caller has already seeded with defaults.
func parseKDL(content string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return err
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "memory_capacity":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.MemoryCapacity = v
					}
				case "ttl_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.TTLSeconds = v
					}
				case "eviction_interval_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.EvictionInterval = v
					}
				case "eviction_policy":
					if s, ok := firstStringArg(cn); ok {
						cfg.Cache.EvictionPolicy = s
					}
				case "disk_enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Cache.DiskEnabled = b
					}
				}
			}
		case "detector":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "ignore":
					if args := collectStringArgs(cn); len(args) > 0 {
						cfg.Detector.IgnoreGlobs = args
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Detector.MaxDepth = v
					}
				case "max_file_size":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Detector.MaxFileSize = sz
						}
					} else if v, ok := firstIntArg(cn); ok {
						cfg.Detector.MaxFileSize = int64(v)
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Detector.RespectGitignore = b
					}
				case "hash_algorithm":
					if s, ok := firstStringArg(cn); ok {
						cfg.Detector.HashAlgorithm = s
					}
				case "allowed_extensions":
					if args := collectStringArgs(cn); len(args) > 0 {
						cfg.Detector.AllowedExtensions = args
					}
				}
			}
		case "watcher":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "poll_interval_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watcher.PollIntervalMs = v
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watcher.DebounceMs = v
					}
				case "batch_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watcher.BatchSize = v
					}
				case "max_files_per_workspace":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watcher.MaxFilesPerWorkspace = v
					}
				case "fsnotify_early_wake":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watcher.UseFsnotifyEarlyWake = b
					}
				}
			}
		case "analysis":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "worker_count":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.WorkerCount = v
					}
				case "queue_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.QueueSize = v
					}
				case "retry_limit":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.RetryLimit = v
					}
				case "task_timeout_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.TaskTimeoutSec = v
					}
				case "backpressure_max":
					if v, ok := firstIntArg(cn); ok {
						cfg.Analysis.BackpressureMax = v
					}
				}
			}
		case "store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "data_dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.DataDir = s
					}
				case "flush_interval_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Store.FlushIntervalMs = v
					}
				case "compact_on_startup":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Store.CompactOnStartup = b
					}
				}
			}
		case "ipc":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "socket_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.Ipc.SocketPath = s
					}
				case "transport":
					if s, ok := firstStringArg(cn); ok {
						cfg.Ipc.Transport = s
					}
				}
			}
		}
	}

	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
