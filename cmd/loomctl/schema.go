package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/loomrt/loom/pkg/config"
)

// SchemaCmd generates a JSON Schema for config.Config, grounded on the
// teacher's "hector schema" command, which serves the same purpose for
// its own config builder UI.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	s := reflector.Reflect(&config.Config{})
	s.ID = "https://loomrt.dev/schemas/config.json"
	s.Title = "loom Configuration Schema"
	s.Description = "Configuration schema for the loom agent runtime"
	s.Version = "http://json-schema.org/draft-07/schema#"

	enc := json.NewEncoder(os.Stdout)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
