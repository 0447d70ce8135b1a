package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const appDir = "sysnotifd"

// DefaultPath is $XDG_CONFIG_HOME/sysnotifd/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, "config.yaml")
}

// Load reads and validates the config at path.
//
// An empty path means DefaultPath; if that file does not exist the built-in
// defaults are used. An explicitly named file must exist.
// The returned string is the path actually read, or "" for built-in defaults.
func Load(path string) (*Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, "", cfg.Validate()
		}
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes data on top of Default. The format follows the file extension.
func Parse(path string, data []byte) (*Config, error) {
	jb, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}
