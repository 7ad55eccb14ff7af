package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/depositverifier/internal/infra/storage/postgres"
)

var (
	balanceUser  string
	balanceLimit int
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show a user's balance and recent credited deposits",
	Run:   runBalance,
}

func init() {
	balanceCmd.Flags().StringVar(&balanceUser, "user", "", "user id")
	balanceCmd.Flags().IntVar(&balanceLimit, "limit", 20, "number of ledger entries to show")
	_ = balanceCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
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

	repo := postgres.NewLedgerRepo(db)
	balance, err := repo.GetBalance(ctx, balanceUser)
	if err != nil {
		slog.Error("Failed to query balance", "error", err)
		os.Exit(1)
	}
	entries, err := repo.ListEntries(ctx, balanceUser, balanceLimit)
	if err != nil {
		slog.Error("Failed to query ledger", "error", err)
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	if balance == nil {
		_, _ = fmt.Fprintf(out, "User %s has no balance record\n", balanceUser)
	} else {
		_, _ = fmt.Fprintf(out, "User:            %s\nBalance:         %s %s\nTotal deposited: %s %s\n\n",
			balance.UserID,
			balance.Balance.String(), cfg.Chain.TokenSymbol,
			balance.TotalDeposited.String(), cfg.Chain.TokenSymbol,
		)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TX HASH\tBLOCK\tFROM\tAMOUNT\tCREDITED")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			e.TxHash, e.BlockNumber, e.FromAddress, e.Amount.String(), e.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
