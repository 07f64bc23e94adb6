// Command payments ingests a CSV of transaction records and prints the
// final balance table. Malformed or rejected records are logged and
// skipped; a single bad record never aborts the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/payments/internal/csvio"
	"github.com/MarkoPoloResearchLab/payments/internal/journal"
	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagOutput        = "output"
	flagLockedPolicy  = "locked-policy"
	flagDatabaseURL   = "database-url"
	flagJournalDriver = "journal-driver"
	envPrefix         = "PAYMENTS"

	journalSourceCSV = "csv"
)

type runtimeConfig struct {
	InputPath     string
	OutputPath    string
	LockedPolicy  engine.LockedAccountPolicy
	DatabaseURL   string
	JournalDriver string
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "payments: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "payments <input.csv>",
		Short:         "Apply a transaction batch and print the balance table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, args, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String(flagOutput, "", "output file path (default stdout)")
	cmd.Flags().String(flagLockedPolicy, string(engine.LockedAccountsAcceptAll), "locked account policy: accept or reject-debits")
	cmd.Flags().String(flagDatabaseURL, "", "optional journal database url (postgres:// or sqlite path)")
	cmd.Flags().String(flagJournalDriver, journal.DriverAuto, "journal driver: auto, gorm, or pgx")

	return cmd
}

func loadConfig(cmd *cobra.Command, args []string, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagOutput, flagLockedPolicy, flagDatabaseURL, flagJournalDriver} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	policy, err := engine.ParseLockedAccountPolicy(v.GetString(flagLockedPolicy))
	if err != nil {
		return fmt.Errorf("%s: %w", flagLockedPolicy, err)
	}

	cfg.InputPath = args[0]
	cfg.OutputPath = strings.TrimSpace(v.GetString(flagOutput))
	cfg.LockedPolicy = policy
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.JournalDriver = strings.TrimSpace(v.GetString(flagJournalDriver))
	return nil
}

func run(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	recorder, cleanup, err := journal.Open(ctx, cfg.DatabaseURL, cfg.JournalDriver)
	if err != nil {
		return fmt.Errorf("journal open: %w", err)
	}
	if cleanup != nil {
		defer func() { _ = cleanup() }()
	}

	options := []engine.EngineOption{engine.WithLockedAccountPolicy(cfg.LockedPolicy)}
	if recorder != nil {
		options = append(options, engine.WithOperationLogger(journal.NewOperationRecorder(recorder, logger, journalSourceCSV)))
	}
	ledgerEngine := engine.NewEngine(options...)

	input, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	if err := ingest(ctx, ledgerEngine, input, logger); err != nil {
		return err
	}

	balances := ledgerEngine.Balances()
	if recorder != nil {
		snapshots := journal.SnapshotsFromBalances(balances, time.Now().UTC().Unix())
		if err := recorder.SaveSnapshot(ctx, snapshots); err != nil {
			logger.Warn("snapshot save failed", zap.Error(err))
		}
	}

	output, closeOutput, err := openOutput(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer closeOutput()

	return csvio.WriteBalances(output, balances)
}

func ingest(ctx context.Context, ledgerEngine *engine.Engine, input io.Reader, logger *zap.Logger) error {
	reader, err := csvio.NewReader(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	for {
		inputRecord, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			logger.Warn("record skipped", zap.Error(err))
			continue
		}
		transaction, err := inputRecord.Transaction()
		if err != nil {
			logger.Warn("transaction skipped",
				zap.Uint32("tx", uint32(inputRecord.Tx)),
				zap.Error(err),
			)
			continue
		}
		if err := ledgerEngine.Accept(ctx, transaction); err != nil {
			logger.Warn("transaction rejected",
				zap.Uint32("tx", uint32(transaction.TransactionID())),
				zap.Error(err),
			)
		}
	}
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return file, file.Close, nil
}
