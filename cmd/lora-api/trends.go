package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/service"
	"github.com/lorahealth/lora/backend/pkg/gemini"
)

var trendsCmd = &cobra.Command{
	Use:   "trends <samples.json>",
	Short: "Print a weekly trend report for a sample export",
	Long: `Compare the 7 days ending on --as-of with the 7 days before for steps, sleep and
resting heart rate. With --insight and GEMINI_API_KEY set, a one-line insight is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrends,
}

var trendsOpts struct {
	timezone string
	asOf     string
	insight  bool
}

func init() {
	trendsCmd.Flags().StringVar(&trendsOpts.timezone, "tz", "Local", "Timezone whose midnights split days")
	trendsCmd.Flags().StringVar(&trendsOpts.asOf, "as-of", "", "Last day of the current week (YYYY-MM-DD, default today)")
	trendsCmd.Flags().BoolVar(&trendsOpts.insight, "insight", false, "Generate the insight with Gemini")
}

func runTrends(cmd *cobra.Command, args []string) error {
	loc, err := loadLocation(trendsOpts.timezone)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(trendsOpts.asOf, loc)
	if err != nil {
		return err
	}

	samples, _, err := loadSampleFile(args[0])
	if err != nil {
		return err
	}

	var generator service.TextGenerator
	if trendsOpts.insight {
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return fmt.Errorf("--insight requires GEMINI_API_KEY")
		}
		generator = gemini.NewClient("", key, "", 30*time.Second)
	}

	aggregator := service.NewAggregator(loc)
	window := models.DaysWindow(asOf, 2*service.TrendWindowDays, loc)
	byKind := func(kind models.SampleKind) models.DailyAggregate {
		var ofKind []models.HealthSample
		for _, s := range samples {
			if s.Kind == kind {
				ofKind = append(ofKind, s)
			}
		}
		return aggregator.ComputeDailyAggregate(ofKind, kind, window)
	}

	trends := service.NewTrendService(nil, aggregator, generator, nil)
	summary := trends.BuildWeeklyTrends(cmd.Context(),
		byKind(models.SampleKindSteps),
		byKind(models.SampleKindSleep),
		byKind(models.SampleKindHeartRate),
		asOf,
	)

	fmt.Fprintln(cmd.OutOrStdout(), renderTrends(summary))
	return nil
}
