package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

func writeOutput(w io.Writer, format string, value any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", outputYAML:
		data, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("unifiedauth: encode yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	default:
		return fmt.Errorf("unifiedauth: unsupported output format %q", format)
	}
}
