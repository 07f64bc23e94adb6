// Command paymentsd serves the ledger engine over HTTP for interactive
// ingestion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/payments/internal/httpapi"
	"github.com/MarkoPoloResearchLab/payments/internal/journal"
	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"
	flagLockedPolicy   = "locked-policy"
	flagDatabaseURL    = "database-url"
	flagJournalDriver  = "journal-driver"
	envPrefix          = "PAYMENTSD"

	defaultListenAddr = ":8080"
	journalSourceHTTP = "http"
)

type runtimeConfig struct {
	ListenAddr     string
	AllowedOrigins []string
	LockedPolicy   engine.LockedAccountPolicy
	DatabaseURL    string
	JournalDriver  string
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "paymentsd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "paymentsd",
		Short:         "HTTP ingestion API for the payments ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagLockedPolicy, string(engine.LockedAccountsAcceptAll), "locked account policy: accept or reject-debits")
	cmd.Flags().String(flagDatabaseURL, "", "optional journal database url (postgres:// or sqlite path)")
	cmd.Flags().String(flagJournalDriver, journal.DriverAuto, "journal driver: auto, gorm, or pgx")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagListenAddr, flagAllowedOrigins, flagLockedPolicy, flagDatabaseURL, flagJournalDriver} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	policy, err := engine.ParseLockedAccountPolicy(v.GetString(flagLockedPolicy))
	if err != nil {
		return fmt.Errorf("%s: %w", flagLockedPolicy, err)
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.AllowedOrigins = parseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.LockedPolicy = policy
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.JournalDriver = strings.TrimSpace(v.GetString(flagJournalDriver))
	return nil
}

func parseAllowedOrigins(raw string) []string {
	origins := []string{}
	for _, origin := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
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
		options = append(options, engine.WithOperationLogger(journal.NewOperationRecorder(recorder, logger, journalSourceHTTP)))
	}
	ledgerEngine := engine.NewEngine(options...)

	return httpapi.Run(ctx, httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, ledgerEngine, logger)
}
