package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicle/internal/service"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Backfill the timeline from local history",
}

var importChangelogCmd = &cobra.Command{
	Use:   "changelog <file>",
	Short: "Import a CHANGELOG.md, one event per dated section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		svc := &service.ImportService{Store: a.store, Materializer: a.materializer, Logger: a.logger}
		res, err := svc.ImportChangelog(cmd.Context(), string(raw))
		if err != nil {
			return err
		}
		printSourceImport(cmd, res)
		return nil
	},
}

var gitLimit int

var importGitCmd = &cobra.Command{
	Use:   "git <repo-path>",
	Short: "Import commits from a local git repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		svc := &service.ImportService{Store: a.store, Materializer: a.materializer, Logger: a.logger}
		res, err := svc.ImportGit(cmd.Context(), args[0], gitLimit)
		if err != nil {
			return err
		}
		printSourceImport(cmd, res)
		return nil
	},
}

func init() {
	importGitCmd.Flags().IntVar(&gitLimit, "limit", 500, "maximum number of commits to read")
	importCmd.AddCommand(importChangelogCmd, importGitCmd)
}

func printSourceImport(cmd *cobra.Command, res service.SourceImportResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "parsed %d, created %d, already present %d\n", res.Parsed, res.Created, res.Existing)
}
