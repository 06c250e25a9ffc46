package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// FileConfigLoader reads raw configuration from a YAML or TOML file. A missing
// file yields an empty map so defaults apply.
type FileConfigLoader struct {
	Path     string
	Optional bool
}

func NewFileConfigLoader(path string) FileConfigLoader {
	return FileConfigLoader{Path: strings.TrimSpace(path), Optional: true}
}

func (l FileConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && l.Optional {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config %s: %w", path, err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("core: decode toml config %s: %w", path, err)
		}
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("core: decode yaml config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("core: unsupported config format %q", filepath.Ext(path))
	}
	return raw, nil
}

var _ RawConfigLoader = FileConfigLoader{}
