package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loomrt/loom/pkg/config"
)

// ValidateCmd validates a configuration file and optionally prints the
// expanded descriptor tree (defaults applied, env vars resolved),
// mirroring the teacher's "hector validate" command.
type ValidateCmd struct {
	ConfigPath  string `arg:"" optional:"" name:"config" help:"Configuration file path; falls back to --config, then zero-config defaults." type:"path"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	path := firstNonEmpty(c.ConfigPath, cli.Config)

	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: load error: %v\n", describeConfigSource(path), err)
		return fmt.Errorf("config load failed")
	}

	report := config.Validate(cfg, nil)
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}

	if !report.IsValid() {
		return fmt.Errorf("%s: invalid", describeConfigSource(path))
	}

	if c.PrintConfig {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}

	fmt.Printf("%s: valid\n", describeConfigSource(path))
	return nil
}

func describeConfigSource(path string) string {
	if path == "" {
		return "(zero-config)"
	}
	return path
}
