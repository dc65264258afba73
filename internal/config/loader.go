package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"
)

//go:embed infero.schema.json
var embeddedSchema []byte

const embeddedSchemaURL = "https://infero.local/schemas/infero.v1.schema.json"

// Error definitions for the config package.
var (
	ErrNotFound = errors.New("configuration file not found")
	ErrNoRoute  = errors.New("no route configured")
)

// Exists reports whether a configuration file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load loads and validates path against the embedded schema.
func Load(path string) (*File, error) {
	return LoadAndValidate(path, "")
}

// LoadAndValidate loads and validates the configuration. An empty
// schemaPath selects the embedded schema.
func LoadAndValidate(path, schemaPath string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("config: failed to read config: %w", err)
	}

	return Parse(data, schemaPath)
}

// Parse decodes and validates raw YAML.
func Parse(data []byte, schemaPath string) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: invalid YAML: %w", err)
	}

	schema, err := compileSchema(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into File struct: %w", err)
	}
	file.applyDefaults()

	return &file, nil
}

func compileSchema(schemaPath string) (*jsonschema.Schema, error) {
	if schemaPath != "" {
		return jsonschema.Compile(schemaPath)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(embeddedSchemaURL, bytes.NewReader(embeddedSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(embeddedSchemaURL)
}

// Save writes f to path as YAML, creating parent directories.
func (f *File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}

	return nil
}

// Route returns the configured route.
func (f *File) Route() (*RouteConfig, error) {
	if f.Infero.Server.Route == nil || f.Infero.Server.Route.Predictor == "" {
		return nil, ErrNoRoute
	}
	return f.Infero.Server.Route, nil
}

// Dir returns the absolute directory holding path.
func Dir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	return filepath.Dir(abs)
}
