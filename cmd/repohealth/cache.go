package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/repohealth/internal/cache"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the analysis cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache statistics",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached analyses",
				Action: runCacheClear,
			},
		},
	}
}

// openCacheDir opens the configured cache directory even when caching is
// disabled for reports.
func openCacheDir(c *cli.Context) (*cache.Cache, string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, "", err
	}
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
	return store, cfg.Cache.Dir, err
}

func runCacheStats(c *cli.Context) error {
	store, dir, err := openCacheDir(c)
	if err != nil {
		return err
	}

	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Cache directory: %s\n", dir)
	fmt.Fprintf(w, "Entries:         %d\n", stats.Entries)
	fmt.Fprintf(w, "Total size:      %d bytes\n", stats.TotalSize)
	if stats.Entries > 0 {
		fmt.Fprintf(w, "Oldest entry:    %s ago\n", stats.OldestAge.Round(time.Second))
		fmt.Fprintf(w, "Newest entry:    %s ago\n", stats.NewestAge.Round(time.Second))
	}
	return nil
}

func runCacheClear(c *cli.Context) error {
	store, dir, err := openCacheDir(c)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Cleared %s\n", dir)
	return nil
}
