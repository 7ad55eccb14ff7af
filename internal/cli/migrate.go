package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/depositverifier/internal/infra/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|status|version]",
	Short:     "Manage the ledger database schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "status", "version"},
	Run:       runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	action := "up"
	if len(args) == 1 {
		action = args[0]
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	switch action {
	case "up":
		err = db.Migrate(ctx)
		if err == nil {
			slog.Info("Migrations applied")
		}
	case "status":
		err = db.MigrationStatus(ctx)
	case "version":
		var version int64
		version, err = db.MigrationVersion(ctx)
		if err == nil {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", version)
		}
	}
	if err != nil {
		slog.Error("Migration failed", "action", action, "error", err)
		os.Exit(1)
	}
}
