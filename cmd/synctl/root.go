package main

import (
	"context"
	"errors"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/spf13/cobra"
)

var ownerFlag int

var rootCmd = &cobra.Command{
	Use:           "synctl",
	Short:         "Admin tasks for the sync licensing backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func connect() {
	config.ConnectDatabaseWithRetry()
}

// ownerContext resolves --owner to an existing user and scopes ctx to it.
func ownerContext(ctx context.Context) (context.Context, error) {
	if ownerFlag <= 0 {
		return nil, errors.New("--owner is required")
	}
	user, err := models.GetUser(ctx, ownerFlag)
	if err != nil {
		return nil, err
	}
	ctx = utils.SetOwnerIdInContext(ctx, user.ID)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUsernameInContext(ctx, user.Username)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	return ctx, nil
}

func addOwnerFlag(cmd *cobra.Command) {
	cmd.Flags().IntVar(&ownerFlag, "owner", 0, "id of the user that owns the data")
}
