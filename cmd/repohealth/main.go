package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "repohealth",
		Usage:   "Health reports for hosted repositories",
		Version: version,
		Description: `repohealth reads a repository through its hosting API and scores it on
nine metrics: complexity, duplication, style consistency, tests, open
issues, dependency freshness, documentation, commit frequency and
branching. Each report ends with concrete suggestions for the weakest areas.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"REPOHEALTH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, yaml (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Access token used to read repositories",
				EnvVars: []string{"GITHUB_TOKEN", "GH_TOKEN"},
			},
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Remote client: github or git (default from config)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "API base URL, for GitHub Enterprise",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c)
			return nil
		},
		Commands: []*cli.Command{
			reportCmd(),
			configCmd(),
			cacheCmd(),
			mcpCmd(),
		},
	}
}
