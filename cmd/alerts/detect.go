package main

import (
	"github.com/spf13/cobra"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/app"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/detection"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// detectOutput is what the single-entity detect commands print.
// Alerts lists the alerts --create stored.
type detectOutput struct {
	Anomalies []*domain.AnomalyResult `json:"anomalies"`
	Alerts    []*domain.AlertRecord   `json:"alerts,omitempty"`
	Skipped   int                     `json:"skipped,omitempty"`
}

func detectCmd(open opener) *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run one detector variant against a single entity",
	}
	cmd.PersistentFlags().BoolVar(&create, "create", false, "Persist findings as alerts (deduplicated)")

	run := func(detect func(cmd *cobra.Command, svc *app.Services, args []string) ([]*domain.AnomalyResult, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := detect(cmd, svc, args)
			if err != nil {
				return err
			}
			out := detectOutput{Anomalies: results}
			if out.Anomalies == nil {
				out.Anomalies = []*domain.AnomalyResult{}
			}
			if create {
				for _, r := range results {
					rec, err := svc.Generator.CreateAnomalyAndAlert(cmd.Context(), r.Type, r.ProductID, r.Severity, r.Details)
					if err != nil {
						return err
					}
					if rec == nil {
						out.Skipped++
						continue
					}
					out.Alerts = append(out.Alerts, rec)
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		}
	}

	var short, long int
	var maPct float64
	priceMA := &cobra.Command{
		Use:   "price-ma <product-id>",
		Short: "Compare short and long moving averages of a product price",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, svc *app.Services, args []string) ([]*domain.AnomalyResult, error) {
			r, err := svc.Detectors.Price.DetectMovingAverage(cmd.Context(), args[0], short, long, maPct)
			return single(r), err
		}),
	}
	priceMA.Flags().IntVar(&short, "short", detection.DefaultMAShortWindow, "Short window in points")
	priceMA.Flags().IntVar(&long, "long", detection.DefaultMALongWindow, "Long window in points")
	priceMA.Flags().Float64Var(&maPct, "threshold", detection.DefaultMAThresholdPct, "Gap between averages in percent")

	var within int
	var tariffPct float64
	tariffRecent := &cobra.Command{
		Use:   "tariff-recent",
		Short: "Tariff changes whose effective date is within --days",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, svc *app.Services, _ []string) ([]*domain.AnomalyResult, error) {
			return svc.Detectors.Tariff.DetectRecent(cmd.Context(), within, tariffPct)
		}),
	}
	tariffRecent.Flags().IntVar(&within, "days", 30, "Effective date window in days")
	tariffRecent.Flags().Float64Var(&tariffPct, "threshold", detection.DefaultTariffThresholdPct, "Rate change in percent")

	var trendDays int
	freightTrend := &cobra.Command{
		Use:   "freight-trend <route>",
		Short: "Compare the first and last week of a route's freight index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			trend, err := svc.Detectors.Freight.AnalyzeTrend(cmd.Context(), args[0], trendDays)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), trend)
		},
	}
	freightTrend.Flags().IntVar(&trendDays, "days", detection.DefaultLookbackDays, "Lookback in days")

	var spikeDays int
	var spikePct float64
	fxSpike := &cobra.Command{
		Use:   "fx-spike <pair>",
		Short: "Compare the oldest and newest rate in a short window",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, svc *app.Services, args []string) ([]*domain.AnomalyResult, error) {
			r, err := svc.Detectors.FX.DetectSpike(cmd.Context(), args[0], spikeDays, spikePct)
			return single(r), err
		}),
	}
	fxSpike.Flags().IntVar(&spikeDays, "days", detection.DefaultFXSpikeWindowDays, "Window in points")
	fxSpike.Flags().Float64Var(&spikePct, "threshold", detection.DefaultFXSpikeThresholdPct, "Rate change in percent")

	var level float64
	var direction string
	fxThreshold := &cobra.Command{
		Use:   "fx-threshold <pair>",
		Short: "Flag a rate beyond an absolute level",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, svc *app.Services, args []string) ([]*domain.AnomalyResult, error) {
			r, err := svc.Detectors.FX.CheckThreshold(cmd.Context(), args[0], level, direction)
			return single(r), err
		}),
	}
	fxThreshold.Flags().Float64Var(&level, "level", 0, "Absolute rate level")
	fxThreshold.Flags().StringVar(&direction, "direction", detection.DirectionAbove, "above or below")
	_ = fxThreshold.MarkFlagRequired("level")

	cmd.AddCommand(priceMA, tariffRecent, freightTrend, fxSpike, fxThreshold)
	return cmd
}

func single(r *domain.AnomalyResult) []*domain.AnomalyResult {
	if r == nil {
		return nil
	}
	return []*domain.AnomalyResult{r}
}
