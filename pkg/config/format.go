package config

import "strings"

// Format is one of the two text syntaxes §4.11 accepts.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromExtension maps a bare file extension (with or without a leading
// dot, case-insensitive) to a Format, or ("", false) if unrecognized.
func FormatFromExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "yaml", "yml":
		return FormatYAML, true
	case "toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// Extension returns the canonical file extension for f.
func (f Format) Extension() string {
	return string(f)
}

// detectFromPath infers a Format from path's extension.
func detectFromPath(path string) (Format, bool) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", false
	}
	return FormatFromExtension(path[idx+1:])
}
