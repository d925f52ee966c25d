package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/loomrt/loom/pkg/loomerr"
)

// Load reads path, auto-detects its Format from the file extension,
// parses it, expands ${VAR}/$VAR environment references, and decodes
// the result into a Config. Unrecognized fields are silently ignored
// by the decoder (§6: "unrecognized fields are warnings, not errors");
// Validate is what surfaces anything that actually matters.
func Load(path string) (*Config, error) {
	format, ok := detectFromPath(path)
	if !ok {
		return nil, loomerr.New(loomerr.Validation, "config.Load",
			fmt.Errorf("cannot detect config format from extension of %q; use LoadAs", path))
	}
	return LoadAs(path, format)
}

// LoadAs reads path and parses it as format, bypassing extension
// auto-detection — for files with a non-standard extension or when the
// caller names the format explicitly.
func LoadAs(path string, format Format) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loomerr.New(loomerr.NotFound, "config.LoadAs", err)
	}
	return ParseAs(data, format)
}

// ParseAs decodes data as format into a Config. Format detection is
// always by file extension or an explicit tag (§6) — never by
// sniffing content, since YAML and TOML don't stand in a subset
// relationship the way YAML and JSON do.
func ParseAs(data []byte, format Format) (*Config, error) {
	raw, err := unmarshalToMap(data, format)
	if err != nil {
		return nil, loomerr.New(loomerr.Validation, "config.ParseAs", err)
	}

	expanded := expandEnvVars(raw)

	cfg := &Config{}
	if err := decode(expanded, cfg); err != nil {
		return nil, loomerr.New(loomerr.Validation, "config.ParseAs", err)
	}
	return cfg, nil
}

// AutoDetect looks for a `loom.yaml`, `loom.yml`, or `loom.toml` file
// in the current directory and loads the first one found, matching
// the original implementation's ConfigLoader::auto_detect convention.
func AutoDetect() (*Config, error) {
	for _, name := range []string{"loom.yaml", "loom.yml", "loom.toml"} {
		if _, err := os.Stat(name); err == nil {
			return Load(name)
		}
	}
	return nil, loomerr.New(loomerr.NotFound, "config.AutoDetect",
		fmt.Errorf("no loom.yaml, loom.yml, or loom.toml found in the current directory"))
}

func unmarshalToMap(data []byte, format Format) (map[string]any, error) {
	var out map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	return out, nil
}

// decode maps a generic YAML/TOML-shaped map onto a Config using the
// same "yaml" struct tag for both formats, following the teacher's
// pkg/config/loader.go pattern of parsing to a map first and decoding
// through mapstructure rather than maintaining two separate decode
// paths (one per format library's native struct tag).
func decode(input map[string]any, out *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// expandEnvVars recursively expands ${VAR}, ${VAR:-default}, and $VAR
// references in every string value of a parsed config map.
func expandEnvVars(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = expandValue(v)
	}
	return out
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return expandEnvVars(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx != -1 {
				name, def := inner[:idx], inner[idx+2:]
				if val := os.Getenv(name); val != "" {
					return val
				}
				return def
			}
			return os.Getenv(inner)
		}
		return os.Getenv(match[1:])
	})
}
