package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/repohealth/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start the MCP server over stdio",
		Description: `Exposes the repository_health tool to LLM clients. Configure your client with:

  {"mcpServers": {"repohealth": {"command": "repohealth", "args": ["mcp"]}}}

The token from --token or GITHUB_TOKEN is used unless a call supplies its own.`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest",
				Action: runMCPManifest,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openCache(cfg)
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(version, engineFactory(cfg, store, c.String("token")))
	return server.Run(c.Context)
}

func runMCPManifest(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
