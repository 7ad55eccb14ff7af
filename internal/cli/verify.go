package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/depositverifier/internal/control"
	"github.com/vietddude/depositverifier/internal/deposit"
)

var (
	verifyUser     string
	verifyFrom     string
	verifyLookback uint64
	verifyMinConf  uint64
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run one deposit verification for a user and print the result",
	Run:   runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyUser, "user", "", "user id to credit")
	verifyCmd.Flags().StringVar(&verifyFrom, "from", "", "sender wallet address")
	verifyCmd.Flags().Uint64Var(&verifyLookback, "lookback", 0, "blocks to scan back from head (0 = configured default)")
	verifyCmd.Flags().Uint64Var(&verifyMinConf, "min-confirmations", 0, "required confirmations (0 = configured default)")
	_ = verifyCmd.MarkFlagRequired("user")
	_ = verifyCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(verifyCmd)
}

type verifyFunc func(ctx context.Context, req deposit.VerifyRequest) (*deposit.VerifyResult, error)

func runVerify(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{AutoMigrate: true})
	if err != nil {
		slog.Error("Failed to initialize verifier", "error", err)
		os.Exit(1)
	}

	req := deposit.VerifyRequest{
		UserID:      verifyUser,
		FromAddress: verifyFrom,
	}
	if verifyLookback > 0 {
		req.LookbackBlocks = &verifyLookback
	}
	if verifyMinConf > 0 {
		req.MinConfirmations = &verifyMinConf
	}

	if err := verifyAndClose(ctx, app.Verifier().Verify, app.Close, req, cmd.OutOrStdout()); err != nil {
		slog.Error("Verification failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

// verifyAndClose runs one verification, prints the result as JSON and
// releases the app's connections whatever the outcome.
func verifyAndClose(
	ctx context.Context,
	verify verifyFunc,
	closeFn func() error,
	req deposit.VerifyRequest,
	out io.Writer,
) (err error) {
	defer func() {
		if cerr := closeFn(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", cerr))
		}
	}()

	res, err := verify(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
