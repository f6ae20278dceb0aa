package service

import "github.com/fakhrymubarak/weather-compare/internal/model"

// ComputeAverages returns the mean of every daily variable of s, skipping
// missing values.
func ComputeAverages(city string, s *model.WeatherSeries) model.CityAverages {
	avg := model.CityAverages{
		City:           city,
		Days:           s.Len(),
		TemperatureMax: model.Mean(s.Values(model.TemperatureMax)),
		TemperatureMin: model.Mean(s.Values(model.TemperatureMin)),
		Precipitation:  model.Mean(s.Values(model.Precipitation)),
		WindspeedMax:   model.Mean(s.Values(model.WindspeedMax)),
		HumidityMax:    model.Mean(s.Values(model.HumidityMax)),
	}
	for _, r := range s.Records {
		if r.HasMissing() {
			avg.MissingDays++
		}
	}
	return avg
}
