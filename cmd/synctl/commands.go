package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/models/reports"
	"github.com/jonassync/licensing_backend/search"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/jonassync/licensing_backend/workflow"
	"github.com/spf13/cobra"
)

var (
	seedUsername string
	seedPassword string
	seedName     string
	seedEmail    string
	exportOut    string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		if err := models.MigrateTable(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create a user (or reset its password) and seed the starter templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		ctx := context.Background()

		user, err := models.SetUserPassword(ctx, seedUsername, seedPassword)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			input := &models.NewUser{Username: seedUsername, Name: seedName, Password: seedPassword}
			if seedEmail != "" {
				input.Email = &seedEmail
			}
			user, err = models.CreateUser(ctx, input)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			}
		} else if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "reset password of %s (id %d)\n", user.Username, user.ID)
		}
		if err != nil {
			return err
		}

		templates, err := models.CreateDefaultTemplates(ctx, user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d templates\n", len(templates))
		return nil
	},
}

var importDealsCmd = &cobra.Command{
	Use:   "import-deals <file.xlsx|file.csv>",
	Short: "Import deals from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		ctx, err := ownerContext(context.Background())
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := workflow.ImportDeals(ctx, filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var exportIncomeCmd = &cobra.Command{
	Use:   "export-income",
	Short: "Write the income report workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		ctx, err := ownerContext(context.Background())
		if err != nil {
			return err
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		if err := reports.ExportIncome(ctx, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportOut)
		return nil
	},
}

var sweepRemindersCmd = &cobra.Command{
	Use:   "sweep-reminders",
	Short: "Reconcile air-date reminders for every active user",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		ctx := context.Background()
		if config.RedisConfigured() {
			config.ConnectRedisWithRetry(ctx)
		}
		sweeper := workflow.NewReminderSweeper(config.GetLogger(), config.ReminderSweepInterval())
		result, err := sweeper.SweepOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "owners=%d deals=%d reminders=%d failed=%d\n",
			result.Owners, result.Deals, result.Reminders, result.Failed)
		return nil
	},
}

var reindexSongsCmd = &cobra.Command{
	Use:   "reindex-songs",
	Short: "Push a user's songs to Meilisearch",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		ctx, err := ownerContext(context.Background())
		if err != nil {
			return err
		}
		svc := search.NewServiceFromEnv(config.GetLogger())
		defer svc.Close()
		if !svc.Enabled() {
			return errors.New("meilisearch is not configured or not reachable")
		}
		n, err := svc.ReindexSongs(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d songs\n", n)
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedUsername, "username", "", "login name")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "password (at least 8 characters)")
	seedAdminCmd.Flags().StringVar(&seedName, "name", "", "display name")
	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "email address")
	seedAdminCmd.MarkFlagRequired("username")
	seedAdminCmd.MarkFlagRequired("password")

	exportIncomeCmd.Flags().StringVar(&exportOut, "out", "income.xlsx", "output file")

	for _, cmd := range []*cobra.Command{importDealsCmd, exportIncomeCmd, reindexSongsCmd} {
		addOwnerFlag(cmd)
	}

	rootCmd.AddCommand(migrateCmd, seedAdminCmd, importDealsCmd, exportIncomeCmd, sweepRemindersCmd, reindexSongsCmd)
}
