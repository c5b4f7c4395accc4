// Package definition validates layout configurations, loads named layouts
// from JSON and YAML files, and serves them from a registry with atomic
// pointer swap. A Watcher reloads the registry when files change.
package definition

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pitabwire/designer/model"
)

// Loader scans directories for layout files, parses and validates them, and
// computes SHA-256 checksums.
type Loader struct{}

// NewLoader creates a new layout Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// IsLayoutFile reports whether path has an extension the loader reads.
func IsLayoutFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// LoadAll recursively scans directories for *.json, *.yaml and *.yml files
// and loads each into a LayoutDefinition. The first failing file aborts the
// scan.
func (l *Loader) LoadAll(directories []string) ([]model.LayoutDefinition, error) {
	var defs []model.LayoutDefinition

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !IsLayoutFile(path) {
				return nil
			}

			def, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return defs, nil
}

// LoadFile loads a single layout file. The layout name is the file name
// without its extension.
func (l *Loader) LoadFile(path string) (model.LayoutDefinition, error) {
	name := LayoutName(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return model.LayoutDefinition{}, model.NewConfigLoadError(name, err)
	}

	cfg, err := l.Parse(path, data)
	if err != nil {
		return model.LayoutDefinition{}, err
	}

	return model.LayoutDefinition{
		Name:       name,
		Config:     cfg,
		Checksum:   fmt.Sprintf("%x", sha256.Sum256(data)),
		SourceFile: path,
	}, nil
}

// Parse decodes data according to the extension of path. Syntax errors
// become CONFIG_LOAD_FAILED; structural problems stay CONFIG_VALIDATION.
func (l *Loader) Parse(path string, data []byte) (*model.Configuration, error) {
	var (
		cfg *model.Configuration
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = ParseYAML(data)
	default:
		cfg, err = Parse(data)
	}
	if err != nil && !model.HasCode(err, model.ErrConfigValidation) {
		return nil, model.NewConfigLoadError(LayoutName(path), err)
	}
	return cfg, err
}

// LayoutName derives the registry name of a layout file.
func LayoutName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
