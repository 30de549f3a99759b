package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml"

	ncerr "lanshare/internal/errors"
)

// ReadFile parses a flat settings file into name/value pairs.  The
// format follows the extension: .toml, or .yaml/.yml.
//
//	# lanshare.toml
//	TransferPort = 50000
func ReadFile(path string) (map[string]interface{}, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		tree, err := toml.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load TOML: %s: %w", path, err)
		}
		return tree.ToMap(), nil

	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		values := map[string]interface{}{}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %s: %w", path, err)
		}
		return values, nil
	}

	return nil, &ncerr.ConfigError{
		Field:   "settings",
		Value:   path,
		Message: "unsupported settings file format",
		Hint:    "use a .toml, .yaml or .yml file",
	}
}
