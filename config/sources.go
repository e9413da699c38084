package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names understood by SourceDefinition.
const (
	BackendDir    = "dir"
	BackendBlob   = "blob"
	BackendHTTP   = "http"
	BackendRedis  = "redis"
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

var (
	ErrInvalidSourceDefinition = errors.New("invalid source definition")
	ErrUnknownBackend          = errors.New("unknown source backend")
)

// SourceDefinition describes one named file source in a sources file.
//
//	sources:
//	  - name: toolkit
//	    locales: [pl, en-US]
//	    template: "toolkit/{locale}"
//	    backend: dir
//	    location: ./l10n
type SourceDefinition struct {
	Name     string   `yaml:"name"`
	Locales  []string `yaml:"locales"`
	Template string   `yaml:"template"`
	Backend  string   `yaml:"backend"`
	Location string   `yaml:"location"`
	// Prefix is prepended to resource paths by the store backends.
	Prefix string `yaml:"prefix,omitempty"`
	// Index optionally lists every resource id the source holds.
	Index []string `yaml:"index,omitempty"`
}

// Validate reports the first problem with the definition.
func (d SourceDefinition) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidSourceDefinition)
	case len(d.Locales) == 0:
		return fmt.Errorf("%w: %s: no locales", ErrInvalidSourceDefinition, d.Name)
	case !strings.Contains(d.Template, "{locale}"):
		return fmt.Errorf("%w: %s: template %q lacks {locale}", ErrInvalidSourceDefinition, d.Name, d.Template)
	}

	switch d.Backend {
	case BackendDir, BackendBlob, BackendHTTP, BackendRedis, BackendValkey, BackendMemory:
	default:
		return fmt.Errorf("%w: %s: %q", ErrUnknownBackend, d.Name, d.Backend)
	}

	if d.Backend != BackendMemory && d.Location == "" {
		return fmt.Errorf("%w: %s: backend %s needs a location", ErrInvalidSourceDefinition, d.Name, d.Backend)
	}

	return nil
}

type sourcesFile struct {
	Locales []string           `yaml:"locales"`
	Sources []SourceDefinition `yaml:"sources"`
}

// ParseSources decodes a YAML sources document. Locales listed at the top
// level are returned alongside the definitions and may be empty.
func ParseSources(data []byte) ([]string, []SourceDefinition, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidSourceDefinition, err)
	}

	seen := make(map[string]struct{}, len(f.Sources))
	for _, def := range f.Sources {
		if err := def.Validate(); err != nil {
			return nil, nil, err
		}
		if _, dup := seen[def.Name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidSourceDefinition, def.Name)
		}
		seen[def.Name] = struct{}{}
	}

	return f.Locales, f.Sources, nil
}

// LoadSources reads and parses a YAML sources file from disk.
func LoadSources(path string) ([]string, []SourceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseSources(data)
}
