package library

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Export formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export writes the books to w in the requested format
func Export(w io.Writer, books []Book, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(books); err != nil {
			return fmt.Errorf("encoding JSON export: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		if err := enc.Encode(books); err != nil {
			return fmt.Errorf("encoding YAML export: %w", err)
		}
	default:
		return fmt.Errorf("unknown export format: %q", format)
	}
	return nil
}
