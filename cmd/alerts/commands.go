package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/app"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/benchmark"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/config"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/intelligence"
)

// opener builds services for a command; replaced in tests.
type opener func(cmd *cobra.Command) (*app.Services, func(), error)

func rootCmd() *cobra.Command {
	var useMemory bool
	var logLevel string

	open := func(cmd *cobra.Command) (*app.Services, func(), error) {
		cfg, err := loadConfig(cmd, useMemory, logLevel)
		if err != nil {
			return nil, nil, err
		}
		logger := log.With().Str("component", "cli").Logger()
		stores, cleanup, err := app.OpenStores(cmd.Context(), cfg, nil, &logger)
		if err != nil {
			return nil, nil, err
		}
		svc, err := app.NewServices(cfg, stores, nil, nil, &logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return svc, cleanup, nil
	}

	root := &cobra.Command{
		Use:          "alerts",
		Short:        "Trade anomaly alerts: generate, analyze and manage",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "Use in-memory storage (overrides USE_MEMORY)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	root.AddCommand(
		generateCmd(open),
		analyzeCmd(open),
		statsCmd(open),
		resolveCmd(open),
		clearCmd(open),
		detectCmd(open),
		migrateCmd(func(cmd *cobra.Command) (*config.Config, error) {
			return loadConfig(cmd, useMemory, logLevel)
		}),
	)
	return root
}

func loadConfig(cmd *cobra.Command, useMemory bool, logLevel string) (*config.Config, error) {
	// Flags override the environment, which config.Load reads.
	if cmd.Flags().Changed("use-memory") {
		os.Setenv("USE_MEMORY", strconv.FormatBool(useMemory))
	}
	if logLevel != "" {
		os.Setenv("LOG_LEVEL", logLevel)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(cfg.Level())
	return cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func generateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run all detectors and create alerts for new anomalies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res := svc.Generator.GenerateAllAlerts(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("generation failed: %d errors", len(res.Errors))
			}
			return nil
		},
	}
}

func analyzeCmd(open opener) *cobra.Command {
	var window int
	var sector string
	cmd := &cobra.Command{
		Use:   "analyze <alert-id>",
		Short: "Show connected intelligence for an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ci, err := svc.Analyzer.Analyze(cmd.Context(), args[0], window)
			if err != nil {
				return err
			}
			if ci == nil {
				return fmt.Errorf("alert %s not found", args[0])
			}
			return printJSON(cmd.OutOrStdout(), benchmark.Enrich(ci, sector))
		},
	}
	cmd.Flags().IntVar(&window, "window", intelligence.DefaultWindowDays, "Trailing window in days")
	cmd.Flags().StringVar(&sector, "sector", "", "Sector for benchmarking (default: primary product category)")
	return cmd
}

func statsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count alerts by status, severity and type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return printJSON(cmd.OutOrStdout(), svc.Generator.GetAlertStatistics(cmd.Context()))
		},
	}
}

func resolveCmd(open opener) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Move an alert to viewed or resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Generator.UpdateAlertStatus(cmd.Context(), args[0], domain.AlertStatus(status)); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "status": status})
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.AlertStatusResolved), "Target status (viewed, resolved)")
	return cmd
}

func clearCmd(open opener) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete resolved alerts older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.Generator.ClearOldAlerts(cmd.Context(), days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Resolution age in days")
	return cmd
}

func migrateCmd(load func(cmd *cobra.Command) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			applied, err := app.Migrate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if applied == nil {
				applied = []string{}
			}
			return printJSON(cmd.OutOrStdout(), map[string][]string{"applied": applied})
		},
	}
}
