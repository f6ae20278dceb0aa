package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakhrymubarak/weather-compare/internal/model"
	"github.com/fakhrymubarak/weather-compare/internal/service"
)

var (
	compareStart string
	compareEnd   string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Print per-city averages for a date range",
	Long: `Fetches every configured city for the inclusive range and prints the mean of
each daily variable. Without --start and --end the range ends two days ago and
spans the preceding thirty days.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareStart, "start", "", "first day (YYYY-MM-DD)")
	compareCmd.Flags().StringVar(&compareEnd, "end", "", "last day (YYYY-MM-DD)")
	rootCmd.AddCommand(compareCmd)
}

// resolveRange applies the same rules as the HTTP API: both flags or neither.
func resolveRange(rawStart, rawEnd string, now time.Time) (start, end model.Date, err error) {
	switch {
	case rawStart == "" && rawEnd == "":
		start, end = service.DefaultRange(now)
		return start, end, nil
	case rawStart == "" || rawEnd == "":
		return start, end, service.ErrMissingDateRange
	}
	if start, err = model.ParseDate(rawStart); err != nil {
		return start, end, fmt.Errorf("--start: %w", err)
	}
	if end, err = model.ParseDate(rawEnd); err != nil {
		return start, end, fmt.Errorf("--end: %w", err)
	}
	return start, end, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	start, end, err := resolveRange(compareStart, compareEnd, time.Now())
	if err != nil {
		return err
	}

	rdb := connectCache(cmd.Context())
	if rdb != nil {
		defer rdb.Close()
	}
	svc := newWeatherService(rdb)

	cmp, err := svc.CompareCities(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("comparing cities: %w", err)
	}
	writeComparison(cmd.OutOrStdout(), svc.Cities(), cmp)
	return nil
}

func formatMean(m model.Measurement, unit string) string {
	if m.IsMissing() {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%s", m.Float64(), unit)
}

func writeComparison(w io.Writer, cities []model.City, cmp *model.Comparison) {
	names := make(map[string]string, len(cities))
	for _, c := range cities {
		names[c.Key] = c.DisplayName()
	}

	fmt.Fprintf(w, "Weather comparison %s to %s\n", cmp.StartDate, cmp.EndDate)
	for _, avg := range cmp.Averages {
		name, ok := names[avg.City]
		if !ok {
			name = model.City{Key: avg.City}.DisplayName()
		}
		fmt.Fprintf(w, "\n%s (%d days)\n", name, avg.Days)
		fmt.Fprintf(w, "Avg Max Temp: %s\n", formatMean(avg.TemperatureMax, "°C"))
		fmt.Fprintf(w, "Avg Min Temp: %s\n", formatMean(avg.TemperatureMin, "°C"))
		fmt.Fprintf(w, "Avg Precipitation: %s\n", formatMean(avg.Precipitation, "mm"))
		fmt.Fprintf(w, "Avg Max Wind Speed: %s\n", formatMean(avg.WindspeedMax, "km/h"))
		fmt.Fprintf(w, "Avg Max Humidity: %s\n", formatMean(avg.HumidityMax, "%"))
		if avg.MissingDays > 0 {
			fmt.Fprintf(w, "Some data points are missing (%d of %d days). The visualization may be incomplete.\n", avg.MissingDays, avg.Days)
		}
	}
}
