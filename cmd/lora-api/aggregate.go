package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/service"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <samples.json>",
	Short: "Print the daily aggregate of a sample export",
	Long: `Read samples in the upload format ({"samples": [...]}) and print one value per
local day. Sleep is merged across overlapping stages and credited to the day it ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runAggregate,
}

var aggregateOpts struct {
	kind     string
	days     int
	timezone string
	asOf     string
}

func init() {
	aggregateCmd.Flags().StringVarP(&aggregateOpts.kind, "kind", "k", "sleep", "Sample kind to aggregate")
	aggregateCmd.Flags().IntVarP(&aggregateOpts.days, "days", "d", 0, "Limit to the last N days (0 = all)")
	aggregateCmd.Flags().StringVar(&aggregateOpts.timezone, "tz", "Local", "Timezone whose midnights split days")
	aggregateCmd.Flags().StringVar(&aggregateOpts.asOf, "as-of", "", "Last day of the range (YYYY-MM-DD, default today)")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	kind, err := models.ParseSampleKind(aggregateOpts.kind)
	if err != nil {
		return err
	}
	loc, err := loadLocation(aggregateOpts.timezone)
	if err != nil {
		return err
	}

	samples, skipped, err := loadSampleFile(args[0])
	if err != nil {
		return err
	}

	var window *models.Window
	if aggregateOpts.days > 0 {
		asOf, err := parseAsOf(aggregateOpts.asOf, loc)
		if err != nil {
			return err
		}
		window = models.DaysWindow(asOf, aggregateOpts.days, loc)
	}

	ofKind := make([]models.HealthSample, 0, len(samples))
	for _, s := range samples {
		if s.Kind == kind {
			ofKind = append(ofKind, s)
		}
	}

	agg := service.NewAggregator(loc).ComputeDailyAggregate(ofKind, kind, window)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderAggregate(kind, agg))
	if skipped > 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d invalid samples skipped", skipped)))
	}
	return nil
}
