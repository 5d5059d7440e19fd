// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package buildenv injects the block into an Open edX image build: it turns
// the block's source tree into environment patches, adds the pip requirement
// that installs it, and declares the plugin's configuration defaults.
package buildenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"unicode/utf8"

	"github.com/ManuGH/mediablock/internal/log"
)

const (
	// RequirementsVar is the template variable listing extra pip requirements.
	RequirementsVar = "OPENEDX_EXTRA_PIP_REQUIREMENTS"
	// Requirement installs the injected block source in editable mode.
	Requirement = "-e ./requirements/mediacms-xblock"
	// DefaultTargetPrefix is where patches land inside the build environment.
	DefaultTargetPrefix = "openedx/requirements/mediacms-xblock"
	// DefaultMediaCMSBaseURL is the plugin's MEDIACMS_BASE_URL default.
	DefaultMediaCMSBaseURL = "https://deic.mediacms.io"
)

// Patch is one file to materialize in the build environment.
type Patch struct {
	Target  string `yaml:"target"`
	Content string `yaml:"-"`
}

// Variable is one template variable. Value is usually a string or a list.
type Variable struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// ConfigDefaults returns the configuration defaults the plugin registers.
func ConfigDefaults() []Variable {
	return []Variable{{Key: "MEDIACMS_BASE_URL", Value: DefaultMediaCMSBaseURL}}
}

// CollectDir collects patches from the directory tree at dir. A missing
// directory yields no patches.
func CollectDir(dir, targetPrefix string) ([]Patch, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", dir)
	}
	return CollectPatches(os.DirFS(dir), targetPrefix)
}

// CollectPatches reads every regular file of fsys and maps it to
// targetPrefix/<relative path>. Files that are not valid UTF-8 are skipped.
func CollectPatches(fsys fs.FS, targetPrefix string) ([]Patch, error) {
	if targetPrefix == "" {
		targetPrefix = DefaultTargetPrefix
	}
	logger := log.WithComponent("buildenv")

	var patches []Patch
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := fs.Stat(fsys, p)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if !utf8.Valid(data) {
			logger.Debug().Str(log.FieldEvent, "buildenv.skip_binary").Str(log.FieldPath, p).Msg("skipping non-text file")
			return nil
		}
		patches = append(patches, Patch{Target: path.Join(targetPrefix, p), Content: string(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patches, nil
}

// AddRequirement appends Requirement to a fresh copy of the first
// RequirementsVar list, leaving the caller's backing array untouched. An entry with any other value is left alone.
// Without an entry, one holding a single-element list is appended.
func AddRequirement(vars []Variable) []Variable {
	for i := range vars {
		if vars[i].Key != RequirementsVar {
			continue
		}
		switch v := vars[i].Value.(type) {
		case []string:
			vars[i].Value = append(slices.Clip(v), Requirement)
		case []any:
			vars[i].Value = append(slices.Clip(v), Requirement)
		}
		return vars
	}
	return append(vars, Variable{Key: RequirementsVar, Value: []string{Requirement}})
}
