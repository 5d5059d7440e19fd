// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package buildenv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/mediablock/internal/fsutil"
	"github.com/ManuGH/mediablock/internal/log"
)

// ManifestFile is the name of the manifest written next to the patches.
const ManifestFile = "plugin.yaml"

// VariableFilter rewrites the template variables of the build.
type VariableFilter func([]Variable) []Variable

// Registry collects what a plugin contributes to the build environment.
type Registry struct {
	name     string
	patches  []Patch
	defaults []Variable
	filters  []VariableFilter
}

// NewRegistry creates an empty registry for the named plugin.
func NewRegistry(name string) *Registry {
	return &Registry{name: name}
}

// AddPatches registers environment patches.
func (r *Registry) AddPatches(p ...Patch) { r.patches = append(r.patches, p...) }

// AddDefaults registers configuration defaults.
func (r *Registry) AddDefaults(v ...Variable) { r.defaults = append(r.defaults, v...) }

// AddVariableFilter registers a template variable filter.
func (r *Registry) AddVariableFilter(f VariableFilter) { r.filters = append(r.filters, f) }

// Patches returns the registered patches.
func (r *Registry) Patches() []Patch { return r.patches }

// Defaults returns the registered configuration defaults.
func (r *Registry) Defaults() []Variable { return r.defaults }

// Variables runs base through every filter in registration order.
func (r *Registry) Variables(base []Variable) []Variable {
	vars := append([]Variable(nil), base...)
	for _, f := range r.filters {
		vars = f(vars)
	}
	return vars
}

// Load registers the block plugin: defaults, the patches from source and
// the requirement filter.
func Load(source []Patch) *Registry {
	r := NewRegistry("mediacms")
	r.AddDefaults(ConfigDefaults()...)
	r.AddPatches(source...)
	r.AddVariableFilter(AddRequirement)
	return r
}

// Manifest is the plugin.yaml document.
type Manifest struct {
	Name      string     `yaml:"name"`
	Defaults  []Variable `yaml:"defaults"`
	Variables []Variable `yaml:"variables"`
	Patches   []string   `yaml:"patches"`
}

// WriteEnv materializes the registry under dir: every patch at its target
// path, plus a manifest with defaults, filtered variables and patch list.
// Each file is replaced atomically.
func (r *Registry) WriteEnv(dir string, base []Variable) (*Manifest, error) {
	logger := log.WithComponent("buildenv")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create env dir: %w", err)
	}

	m := &Manifest{
		Name:      r.name,
		Defaults:  r.defaults,
		Variables: r.Variables(base),
		Patches:   make([]string, 0, len(r.patches)),
	}
	for _, p := range r.patches {
		target, err := fsutil.ConfineRelPath(dir, p.Target)
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", p.Target, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return nil, fmt.Errorf("patch %s: %w", p.Target, err)
		}
		if err := renameio.WriteFile(target, []byte(p.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write patch %s: %w", p.Target, err)
		}
		m.Patches = append(m.Patches, p.Target)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, ManifestFile), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logger.Info().
		Str(log.FieldEvent, "buildenv.written").
		Str(log.FieldPath, dir).
		Int("patches", len(m.Patches)).
		Msg("build environment written")
	return m, nil
}
