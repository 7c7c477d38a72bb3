package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sessionwatch/sessionwatch/config"
	"github.com/sessionwatch/sessionwatch/snapshot"
)

func buildSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect persisted snapshots",
	}
	cmd.AddCommand(buildSnapshotShowCmd(), buildSnapshotDeleteCmd())
	return cmd
}

func buildSnapshotShowCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the persisted snapshot for a session id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := snapshot.NewFileStore(cfg.SnapshotDir)
			if err != nil {
				return err
			}
			wire, ok, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no snapshot found for session %q under %s", args[0], cfg.SnapshotDir)
			}
			if asJSON {
				data, err := json.MarshalIndent(wire, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			data, err := yaml.Marshal(wire)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to TOML configuration file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON instead of YAML")

	return cmd
}

func buildSnapshotDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete the persisted snapshot for a session id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := snapshot.NewFileStore(cfg.SnapshotDir)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to TOML configuration file")
	return cmd
}
