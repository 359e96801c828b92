package main

import (
	"context"
	"fmt"
	"os"

	"github.com/elee1766/stepwise/src/config"
)

// ConfigCmd represents configuration commands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"show" help:"Show the effective configuration"`
	Validate ConfigValidateCmd `cmd:"validate" help:"Validate the effective configuration"`
	Path     ConfigPathCmd     `cmd:"path" help:"Show where configuration is read from"`
}

// ConfigShowCmd prints the merged configuration with the API key redacted
type ConfigShowCmd struct {
	Format string `short:"f" enum:"yaml,json" default:"yaml" help:"Output format"`
}

func (c *ConfigShowCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, path, err := cli.loadConfigFrom()
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg.Redacted(), c.Format)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(os.Stderr, "# loaded from %s\n", path)
	}
	_, err = os.Stdout.Write(data)
	return err
}

type ConfigValidateCmd struct{}

func (c *ConfigValidateCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}

type ConfigPathCmd struct{}

func (c *ConfigPathCmd) Run(ctx context.Context, cli *CLI) error {
	if cli.Config != "" {
		fmt.Println(cli.Config)
		return nil
	}
	if path, ok := config.SearchConfigFile(); ok {
		fmt.Println(path)
		return nil
	}
	fmt.Printf("%s (not found)\n", config.DefaultConfigPath())
	return nil
}
