package main

import (
	"errors"
	"fmt"

	toml "github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/repohealth/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and validate configuration",
		Subcommands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[path]",
				Action:    runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: runConfigShow,
			},
		},
	}
}

func configPath(c *cli.Context) string {
	if c.Args().Present() {
		return c.Args().First()
	}
	if path := c.String("config"); path != "" {
		return path
	}
	return config.FindConfigFile()
}

func runConfigValidate(c *cli.Context) error {
	path := configPath(c)
	if path == "" {
		return errors.New("no config file found")
	}

	if err := config.ValidateFile(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(c.App.Writer, "%s is valid\n", path)
	return nil
}

func runConfigShow(c *cli.Context) error {
	result, err := config.LoadConfig(config.WithPath(configPath(c)))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if result.Source != "" {
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
		fmt.Fprintln(c.App.Writer)
	}

	data, err := toml.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = c.App.Writer.Write(data)
	return err
}
