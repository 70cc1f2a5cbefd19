package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chronicle/internal/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull changes from remote sources",
}

var syncGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Poll the configured GitHub repository once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		s := service.NewGitHubSync(cmd.Context(), a.cfg.GitHubSync, a.store, a.materializer, a.logger)
		res, err := s.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncGitHubCmd)
}
