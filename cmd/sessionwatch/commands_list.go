package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionwatch/sessionwatch/config"
)

func buildListCmd() *cobra.Command {
	var (
		configPath string
		provider   string
	)

	cmd := &cobra.Command{
		Use:   "list <workspace>",
		Short: "List discoverable sessions for a workspace, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			adp, err := resolveAdapter(provider, cfg)
			if err != nil {
				return err
			}
			refs := adp.FindAllSessions(args[0])
			if len(refs) == 0 {
				fmt.Println("no sessions found")
				return nil
			}
			for _, ref := range refs {
				id := adp.GetSessionID(ref)
				label := adp.ExtractSessionLabel(ref)
				if label == "" {
					label = "(no label)"
				}
				fmt.Printf("%s\t%s\t%s\n", id, ref.ModifiedAt.Format("2006-01-02T15:04:05"), label)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to TOML configuration file")
	cmd.Flags().StringVarP(&provider, "provider", "p", "claude-code", "Producer adapter (claude-code, opencode)")

	return cmd
}
