// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/mediablock/internal/block"
	"github.com/ManuGH/mediablock/internal/buildenv"
)

// runBuildenvCLI writes the block's build-environment patches and manifest.
// Without --source the assets embedded in the binary are used.
func runBuildenvCLI(args []string) int {
	fs := flag.NewFlagSet("mediablock buildenv", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	source := fs.String("source", "", "block source directory (default: embedded assets)")
	out := fs.String("out", "env", "build environment output directory")
	prefix := fs.String("prefix", buildenv.DefaultTargetPrefix, "target path prefix inside the environment")
	var requirements multiFlag
	fs.Var(&requirements, "requirement", "existing extra pip requirement (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		patches []buildenv.Patch
		err     error
	)
	if src := strings.TrimSpace(*source); src != "" {
		patches, err = buildenv.CollectDir(src, *prefix)
	} else {
		patches, err = buildenv.CollectPatches(block.Static(), *prefix)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to collect patches: %v\n", err)
		return 1
	}

	var base []buildenv.Variable
	if len(requirements) > 0 {
		base = append(base, buildenv.Variable{Key: buildenv.RequirementsVar, Value: []string(requirements)})
	}

	m, err := buildenv.Load(patches).WriteEnv(*out, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write build environment: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %d patches to %s\n", len(m.Patches), *out)
	return 0
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
