package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicle/internal/models"
	"chronicle/internal/service"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write or restore JSON backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a backup file to backup.dir",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		b, err := a.backups().Create(cmd.Context(), models.BackupManual)
		if err != nil {
			return err
		}
		counts := b.Counts.Data()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d events, %d templates, %d webhook logs\n",
			b.Path, counts.Events, counts.Templates, counts.WebhookLogs)
		return nil
	},
}

var restoreClear bool

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var snap service.Snapshot
		if err := json.Unmarshal(body, &snap); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		res, err := a.backups().Restore(cmd.Context(), snap, service.RestoreOptions{ClearExisting: restoreClear})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d events, %d templates, %d webhook logs\n",
			res.EventsRestored, res.TemplatesRestored, res.WebhookLogsRestored)
		for _, e := range res.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), e)
		}
		return nil
	},
}

func init() {
	backupRestoreCmd.Flags().BoolVar(&restoreClear, "clear", false, "delete events and custom templates first")
	backupCmd.AddCommand(backupCreateCmd, backupRestoreCmd)
}
