// Command loomctl is the CLI front-end for the loom runtime.
//
// Usage:
//
//	loomctl validate --config loom.yaml
//	loomctl run assistant "hello" --config loom.yaml
//	loomctl chat assistant --config loom.yaml
//	loomctl workflow support "my server won't start" --config loom.yaml
//	loomctl schema
package main

import (
	"github.com/alecthomas/kong"

	"github.com/loomrt/loom/pkg/logger"
)

// CLI defines the top-level command-line interface.
type CLI struct {
	Config   string `short:"c" help:"Path to config file (loom.yaml or loom.toml)." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`

	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Print the JSON Schema for the configuration format."`
	Run      RunCmd      `cmd:"" help:"Run a single agent turn."`
	Chat     ChatCmd     `cmd:"" help:"Start an interactive chain-call session with an agent."`
	Workflow WorkflowCmd `cmd:"" help:"Run a configured workflow."`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("loomctl"),
		kong.Description("loomctl - runnable front-end for the loom agent runtime"),
		kong.UsageOnError(),
	)

	logger.SetLevel(cli.LogLevel)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
