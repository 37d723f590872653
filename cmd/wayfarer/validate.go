// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/wayfarer/internal/scenario"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Validates each scenario file against the scenario JSON Schema and
then semantically (version, routes, NPC names, speeds, events).
Does NOT start the engine. Exits with code 0 when every file is valid.

Useful in CI pipelines to catch scenario errors early:
  wayfarer validate scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args)
		},
	}
}

func runValidate(out io.Writer, paths []string) error {
	invalid := 0
	for _, path := range paths {
		doc, err := scenario.Load(path)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d npcs, %d routes, %d events)\n", path, len(doc.NPCs), len(doc.Routes), len(doc.Events))
	}

	if invalid > 0 {
		return oops.Code("VALIDATION_FAILED").
			With("invalid", invalid).
			With("total", len(paths)).
			Errorf("validation failed: %d of %d scenarios invalid", invalid, len(paths))
	}
	return nil
}
