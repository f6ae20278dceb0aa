package integrationtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/alicebob/miniredis/v2"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/handler"
	"github.com/fakhrymubarak/weather-compare/internal/middleware"
	"github.com/fakhrymubarak/weather-compare/internal/model"
	"github.com/fakhrymubarak/weather-compare/internal/redis"
	"github.com/fakhrymubarak/weather-compare/internal/repository"
	"github.com/fakhrymubarak/weather-compare/internal/service"

	redisv9 "github.com/redis/go-redis/v9"
)

// omahaLatitude selects the city whose archive answer lags behind the
// requested range.
const omahaLatitude = "41.2565"

// mockArchive is a stand-in for the Open-Meteo archive endpoint.
type mockArchive struct {
	server *httptest.Server
	calls  atomic.Int32

	mu         sync.Mutex
	failStatus int
	failBody   string
	lagDays    int
}

func (m *mockArchive) setFailure(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus, m.failBody = status, body
}

func (m *mockArchive) reset() {
	m.setFailure(0, "")
	m.mu.Lock()
	m.lagDays = 2
	m.mu.Unlock()
	m.calls.Store(0)
}

func (m *mockArchive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.calls.Add(1)

	m.mu.Lock()
	failStatus, failBody, lagDays := m.failStatus, m.failBody, m.lagDays
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failStatus != 0 {
		w.WriteHeader(failStatus)
		_, _ = w.Write([]byte(failBody))
		return
	}

	q := r.URL.Query()
	start, err1 := model.ParseDate(q.Get("start_date"))
	end, err2 := model.ParseDate(q.Get("end_date"))
	if err1 != nil || err2 != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Invalid date"}`))
		return
	}

	dates := model.DateRange(start, end)
	daily := map[string]interface{}{}
	timeIndex := make([]string, len(dates))
	for i, d := range dates {
		timeIndex[i] = d.String()
	}
	daily["time"] = timeIndex

	n := len(dates)
	if q.Get("latitude") == omahaLatitude && n > lagDays {
		n -= lagDays
	}
	for vi, v := range strings.Split(q.Get("daily"), ",") {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(vi*10 + i%7)
		}
		daily[v] = values
	}

	lat, _ := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, _ := strconv.ParseFloat(q.Get("longitude"), 64)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"latitude":  lat,
		"longitude": lon,
		"timezone":  q.Get("timezone"),
		"daily":     daily,
	})
}

func newMockArchive() *mockArchive {
	m := &mockArchive{lagDays: 2}
	m.server = httptest.NewServer(m)
	return m
}

func createMockRedisServer() *miniredis.Miniredis {
	mr := miniredis.NewMiniRedis()
	if err := mr.StartAddr(config.GetTestRedisMockPort()); err != nil {
		// fall back to a random port when the configured one is taken
		mr = miniredis.NewMiniRedis()
		if err := mr.Start(); err != nil {
			panic(err)
		}
	}
	return mr
}

// setupIntegrationTestServer wires the full stack against the mock archive
// and the given Redis address.
func setupIntegrationTestServer(redisAddr, archiveURL string) (*httptest.Server, *redisv9.Client) {
	rdb := redis.NewClient(redisAddr)

	cfg := repository.LoadArchiveConfig()
	cfg.BaseURL = archiveURL
	repo := repository.NewArchiveRepository(cfg, rdb)
	weatherService := service.NewWeatherService(repo, config.GetCities())

	weatherHandler := handler.NewWeatherHandler(weatherService)
	return httptest.NewServer(middleware.RateLimitMiddleware(weatherHandler.Routes())), rdb
}
