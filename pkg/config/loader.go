package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decodeFunc func([]byte, any) error

var decoders = map[string]decodeFunc{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
}

// FromFile reads a .yaml, .yml or .json document. A missing file surfaces
// as an error wrapping os.ErrNotExist.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parse(decode, raw, ext)
}

// FromYAML decodes a YAML document.
func FromYAML(data []byte) (Config, error) { return parse(yaml.Unmarshal, data, ".yaml") }

// FromJSON decodes a JSON document.
func FromJSON(data []byte) (Config, error) { return parse(json.Unmarshal, data, ".json") }

func parse(decode decodeFunc, data []byte, ext string) (Config, error) {
	var doc map[string]any
	if err := decode(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse %s config: %w", strings.TrimPrefix(ext, "."), err)
	}
	return New(doc), nil
}
