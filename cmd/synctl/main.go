// synctl is the admin CLI for the licensing backend: migrations, the first
// user, bulk deal import, income export and the reminder sweep.
//
// Usage (same DB_* / REDIS_* env as the server):
//
//	go run ./cmd/synctl migrate
//	go run ./cmd/synctl seed-admin --username jonas --password '...' --name 'Jonas'
//	go run ./cmd/synctl import-deals --owner 1 deals.xlsx
package main

import (
	"os"

	"github.com/jonassync/licensing_backend/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		config.GetLogger().WithError(err).Error("synctl failed")
		os.Exit(1)
	}
}
