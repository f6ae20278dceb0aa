package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakhrymubarak/weather-compare/internal/model"
	"github.com/fakhrymubarak/weather-compare/internal/repository"
	"github.com/fakhrymubarak/weather-compare/internal/service"
)

// Mock service for testing
type mockWeatherService struct {
	err        error
	hasMissing bool

	gotCity  string
	gotStart model.Date
	gotEnd   model.Date
	calls    int
}

func (m *mockWeatherService) series(city string, start, end model.Date) *model.WeatherSeries {
	s := &model.WeatherSeries{City: city, StartDate: start, EndDate: end, HasMissing: m.hasMissing}
	for _, d := range model.DateRange(start, end) {
		r := model.NewEmptyRecord(d)
		r.TemperatureMax = 20
		s.Records = append(s.Records, r)
	}
	return s
}

func (m *mockWeatherService) FetchSeries(ctx context.Context, req service.SeriesRequest) (*model.WeatherSeries, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.series("", req.StartDate, req.EndDate), nil
}

func (m *mockWeatherService) SeriesForCity(ctx context.Context, cityKey string, start, end model.Date) (*model.WeatherSeries, error) {
	m.calls++
	m.gotCity, m.gotStart, m.gotEnd = cityKey, start, end
	if m.err != nil {
		return nil, m.err
	}
	return m.series(cityKey, start, end), nil
}

func (m *mockWeatherService) CompareCities(ctx context.Context, start, end model.Date) (*model.Comparison, error) {
	m.calls++
	m.gotStart, m.gotEnd = start, end
	if m.err != nil {
		return nil, m.err
	}
	s := m.series("dallas", start, end)
	return &model.Comparison{
		StartDate: start,
		EndDate:   end,
		Series:    []*model.WeatherSeries{s},
		Averages:  []model.CityAverages{service.ComputeAverages("dallas", s)},
	}, nil
}

func (m *mockWeatherService) Cities() []model.City {
	return []model.City{{Key: "dallas", Latitude: 32.7767, Longitude: -96.7970}}
}

// Ensure mockWeatherService implements WeatherServiceInterface
var _ service.WeatherServiceInterface = (*mockWeatherService)(nil)

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Error    *string         `json:"error"`
	Message  string          `json:"message"`
	Warnings []string        `json:"warnings"`
}

func newTestHandler(svc *mockWeatherService) *WeatherHandler {
	h := NewWeatherHandler(svc)
	h.now = func() time.Time { return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return h
}

func serve(t *testing.T, h *WeatherHandler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return rr, env
}

func TestNewWeatherHandler(t *testing.T) {
	handler := NewWeatherHandler(&mockWeatherService{})
	require.NotNil(t, handler)
	assert.NotNil(t, handler.WeatherService)
	assert.NotNil(t, handler.now)
}

func TestWeatherHandler_HandleSeries(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		svcErr         error
		hasMissing     bool
		expectedStatus int
		expectedError  string
		expectCall     bool
	}{
		{
			name:           "Missing city parameter",
			target:         "/series?start_date=2024-01-01&end_date=2024-01-03",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing 'city' query parameter",
		},
		{
			name:           "Only one date selected",
			target:         "/series?city=dallas&start_date=2024-01-01",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Please select both start and end dates.",
		},
		{
			name:           "Malformed date",
			target:         "/series?city=dallas&start_date=01/01/2024&end_date=2024-01-03",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "dates must use the YYYY-MM-DD format: start_date \"01/01/2024\"",
		},
		{
			name:           "Year one is not an unset date",
			target:         "/series?city=dallas&start_date=0001-01-01&end_date=2024-01-03",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "dates must use the YYYY-MM-DD format: start_date \"0001-01-01\"",
		},
		{
			name:           "Inverted range",
			target:         "/series?city=dallas&start_date=2024-01-03&end_date=2024-01-01",
			svcErr:         service.ErrInvalidDateRange,
			expectedStatus: http.StatusBadRequest,
			expectedError:  service.ErrInvalidDateRange.Error(),
			expectCall:     true,
		},
		{
			name:           "Unknown city",
			target:         "/series?city=paris&start_date=2024-01-01&end_date=2024-01-03",
			svcErr:         service.ErrUnknownCity,
			expectedStatus: http.StatusBadRequest,
			expectedError:  service.ErrUnknownCity.Error(),
			expectCall:     true,
		},
		{
			name:           "Remote failure",
			target:         "/series?city=dallas&start_date=2024-01-01&end_date=2024-01-03",
			svcErr:         &repository.RemoteFetchError{StatusCode: 500},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Failed to fetch weather data",
			expectCall:     true,
		},
		{
			name:           "Successful series request",
			target:         "/series?city=dallas&start_date=2024-01-01&end_date=2024-01-03",
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "Series with missing values warns",
			target:         "/series?city=dallas&start_date=2024-01-01&end_date=2024-01-03",
			hasMissing:     true,
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWeatherService{err: tt.svcErr, hasMissing: tt.hasMissing}
			rr, env := serve(t, newTestHandler(svc), http.MethodGet, tt.target)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.expectCall {
				assert.Equal(t, 1, svc.calls)
			} else {
				assert.Equal(t, 0, svc.calls)
			}

			if tt.expectedError != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.expectedError, *env.Error)
				assert.Equal(t, "Error", env.Message)
				return
			}

			assert.Nil(t, env.Error)
			assert.Equal(t, "Success", env.Message)

			var series model.WeatherSeries
			require.NoError(t, json.Unmarshal(env.Data, &series))
			assert.Equal(t, "dallas", series.City)
			require.Len(t, series.Records, 3)
			assert.Equal(t, "2024-01-01", series.Records[0].Date.String())
			assert.Equal(t, model.Measurement(20), series.Records[0].TemperatureMax)
			assert.True(t, series.Records[0].TemperatureMin.IsMissing())

			if tt.hasMissing {
				require.Len(t, env.Warnings, 1)
				assert.Contains(t, env.Warnings[0], "dallas")
			} else {
				assert.Empty(t, env.Warnings)
			}
		})
	}
}

func TestWeatherHandler_HandleSeries_DefaultRange(t *testing.T) {
	svc := &mockWeatherService{}
	rr, _ := serve(t, newTestHandler(svc), http.MethodGet, "/series?city=omaha")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "omaha", svc.gotCity)
	assert.Equal(t, "2024-02-07", svc.gotStart.String())
	assert.Equal(t, "2024-03-08", svc.gotEnd.String())
}

func TestWeatherHandler_HandleCompare(t *testing.T) {
	svc := &mockWeatherService{}
	rr, env := serve(t, newTestHandler(svc), http.MethodGet, "/compare?start_date=2024-01-01&end_date=2024-01-05")

	require.Equal(t, http.StatusOK, rr.Code)
	var cmp model.Comparison
	require.NoError(t, json.Unmarshal(env.Data, &cmp))
	require.Len(t, cmp.Series, 1)
	require.Len(t, cmp.Averages, 1)
	assert.Equal(t, 5, cmp.Series[0].Len())
	assert.Equal(t, model.Measurement(20), cmp.Averages[0].TemperatureMax)
	assert.True(t, cmp.Averages[0].HumidityMax.IsMissing())
	assert.Equal(t, "2024-01-05", svc.gotEnd.String())
}

func TestWeatherHandler_HandleCompare_Errors(t *testing.T) {
	svc := &mockWeatherService{}
	rr, env := serve(t, newTestHandler(svc), http.MethodGet, "/compare?end_date=2024-01-05")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Please select both start and end dates.", *env.Error)
	assert.Equal(t, 0, svc.calls)

	svc = &mockWeatherService{err: service.ErrSeriesMisaligned}
	rr, _ = serve(t, newTestHandler(svc), http.MethodGet, "/compare")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestWeatherHandler_HandleCities(t *testing.T) {
	rr, env := serve(t, newTestHandler(&mockWeatherService{}), http.MethodGet, "/cities")
	require.Equal(t, http.StatusOK, rr.Code)

	var cities []model.City
	require.NoError(t, json.Unmarshal(env.Data, &cities))
	require.Len(t, cities, 1)
	assert.Equal(t, "dallas", cities[0].Key)
}

func TestWeatherHandler_MethodNotAllowed(t *testing.T) {
	for _, target := range []string{"/series?city=dallas", "/compare", "/cities"} {
		rr, env := serve(t, newTestHandler(&mockWeatherService{}), http.MethodPost, target)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, target)
		assert.Equal(t, http.MethodGet, rr.Header().Get("Allow"))
		require.NotNil(t, env.Error)
	}
}

func TestWeatherHandler_HandleHealth(t *testing.T) {
	rr, env := serve(t, newTestHandler(&mockWeatherService{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", env.Message)
}

func BenchmarkWeatherHandler_HandleSeries(b *testing.B) {
	h := newTestHandler(&mockWeatherService{})
	mux := h.Routes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/series?city=dallas&start_date=2024-01-01&end_date=2024-01-31", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
	}
}
