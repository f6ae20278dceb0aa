package service

import (
	"fmt"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/model"
)

// alignSeries zips the archive arrays onto dates. Short arrays are padded
// at the tail with the missing sentinel; anything longer than dates, or a
// time index that disagrees with dates, is rejected.
func alignSeries(dates []model.Date, resp *model.ArchiveResponse) ([]model.DailyWeatherRecord, error) {
	n := len(dates)

	if len(resp.Time) > n {
		return nil, fmt.Errorf("%w: time index has %d entries for %d days", ErrSeriesMisaligned, len(resp.Time), n)
	}
	for i, d := range resp.Time {
		if !d.Equal(dates[i]) {
			return nil, fmt.Errorf("%w: position %d is %s, expected %s", ErrSeriesMisaligned, i, d, dates[i])
		}
	}

	records := make([]model.DailyWeatherRecord, n)
	for i, d := range dates {
		records[i] = model.NewEmptyRecord(d)
	}

	for _, v := range model.DailyVariables {
		values := resp.Values(v)
		if len(values) > n {
			return nil, fmt.Errorf("%w: %s has %d values for %d days", ErrSeriesMisaligned, v, len(values), n)
		}
		if len(values) < n {
			config.GetLogger().Debugw("Padding short archive array", "variable", string(v), "have", len(values), "want", n)
		}
		padded := model.PadMissing(values, n)
		for i := range records {
			records[i].Set(v, padded[i])
		}
	}

	return records, nil
}
