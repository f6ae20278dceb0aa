package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/model"
	"github.com/fakhrymubarak/weather-compare/internal/repository"
)

var validate = validator.New()

// defaultWindowDays and defaultLagDays define the range used when the
// caller selects none: the last 30 days ending two days ago, since the
// archive lags behind real time.
const (
	defaultWindowDays = 30
	defaultLagDays    = 2
)

// archiveFirstDay is the earliest day the archive holds observations for.
var archiveFirstDay = model.NewDate(1940, time.January, 1)

// SeriesRequest asks for one coordinate over an inclusive date range.
type SeriesRequest struct {
	Latitude  float64
	Longitude float64
	StartDate model.Date
	EndDate   model.Date
}

type requestCheck struct {
	Latitude  float64   `validate:"gte=-90,lte=90"`
	Longitude float64   `validate:"gte=-180,lte=180"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required,gtefield=Start"`
}

func validateRequest(req SeriesRequest) error {
	err := validate.Struct(requestCheck{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Start:     req.StartDate.Time,
		End:       req.EndDate.Time,
	})
	if err != nil {
		return translateValidation(err)
	}
	if req.StartDate.Before(archiveFirstDay) {
		return fmt.Errorf("%w: start date %s is before %s", ErrInvalidDateRange, req.StartDate, archiveFirstDay)
	}
	return nil
}

// WeatherServiceInterface is what the presentation layer depends on.
type WeatherServiceInterface interface {
	FetchSeries(ctx context.Context, req SeriesRequest) (*model.WeatherSeries, error)
	SeriesForCity(ctx context.Context, cityKey string, start, end model.Date) (*model.WeatherSeries, error)
	CompareCities(ctx context.Context, start, end model.Date) (*model.Comparison, error)
	Cities() []model.City
}

type WeatherService struct {
	ArchiveRepo repository.ArchiveRepository
	CityList    []model.City
}

var _ WeatherServiceInterface = (*WeatherService)(nil)

func NewWeatherService(repo repository.ArchiveRepository, cities []model.City) *WeatherService {
	return &WeatherService{
		ArchiveRepo: repo,
		CityList:    cities,
	}
}

func (s *WeatherService) Cities() []model.City {
	return s.CityList
}

// FetchSeries retrieves the daily table for one coordinate. The range is
// validated before any network call; the result always has one record
// per day of the inclusive range.
func (s *WeatherService) FetchSeries(ctx context.Context, req SeriesRequest) (*model.WeatherSeries, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	tz := s.ArchiveRepo.Timezone()

	resp, err := s.ArchiveRepo.GetDaily(ctx, model.ArchiveQuery{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Variables: model.DailyVariables,
		Timezone:  tz,
	})
	if err != nil {
		return nil, err
	}

	// the index is built only once the archive has accepted the range
	records, err := alignSeries(model.DateRange(req.StartDate, req.EndDate), resp)
	if err != nil {
		config.GetLogger().Errorw("Archive response rejected", "latitude", req.Latitude, "longitude", req.Longitude, "error", err)
		return nil, err
	}

	series := &model.WeatherSeries{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timezone:  tz,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Records:   records,
		Cached:    resp.Cached,
	}
	for _, r := range records {
		if r.HasMissing() {
			series.HasMissing = true
			break
		}
	}
	return series, nil
}

func (s *WeatherService) lookupCity(key string) (model.City, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, c := range s.CityList {
		if c.Key == key {
			return c, nil
		}
	}
	return model.City{}, fmt.Errorf("%w: %q", ErrUnknownCity, key)
}

// SeriesForCity is FetchSeries for a configured city key.
func (s *WeatherService) SeriesForCity(ctx context.Context, cityKey string, start, end model.Date) (*model.WeatherSeries, error) {
	city, err := s.lookupCity(cityKey)
	if err != nil {
		return nil, err
	}
	series, err := s.FetchSeries(ctx, SeriesRequest{
		Latitude:  city.Latitude,
		Longitude: city.Longitude,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, err
	}
	series.City = city.Key
	return series, nil
}

// CompareCities fetches every configured city concurrently and computes
// per-city averages. Output keeps configured city order. Any city failing
// fails the comparison.
func (s *WeatherService) CompareCities(ctx context.Context, start, end model.Date) (*model.Comparison, error) {
	if err := validateRequest(SeriesRequest{StartDate: start, EndDate: end}); err != nil {
		return nil, err
	}
	if len(s.CityList) == 0 {
		return nil, ErrNoCities
	}

	results := make([]*model.WeatherSeries, len(s.CityList))
	g, gctx := errgroup.WithContext(ctx)
	for i, city := range s.CityList {
		i, city := i, city
		g.Go(func() error {
			series, err := s.SeriesForCity(gctx, city.Key, start, end)
			if err != nil {
				return fmt.Errorf("%s: %w", city.Key, err)
			}
			results[i] = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		config.GetLogger().Errorw("City comparison failed", "start_date", start.String(), "end_date", end.String(), "error", err)
		return nil, err
	}

	cmp := &model.Comparison{
		StartDate: start,
		EndDate:   end,
		Series:    results,
		Averages:  make([]model.CityAverages, len(results)),
	}
	for i, series := range results {
		cmp.Averages[i] = ComputeAverages(series.City, series)
	}

	config.GetLogger().Infow("Compared cities", "cities", len(results), "start_date", start.String(), "end_date", end.String())
	return cmp, nil
}

// DefaultRange returns the range used when the caller selects none.
func DefaultRange(now time.Time) (start, end model.Date) {
	end = model.DateOf(now).AddDays(-defaultLagDays)
	start = end.AddDays(-defaultWindowDays)
	return start, end
}
