// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the wayfarer CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wayfarer",
		Short: "wayfarer - NPC waypoint traversal engine",
		Long: `wayfarer drives NPCs along waypoint routes through a region-loaded
world, simulating their travel while their region is unloaded and
respawning them where they would have been.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/wayfarer/config.yaml)")

	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
