package repository

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/model"
)

const cacheKeyPrefix = "archive:"

// ArchiveConfig configures the archive client. It is built once and passed
// in; nothing here is read from globals at request time.
type ArchiveConfig struct {
	BaseURL       string
	Timezone      string
	Timeout       time.Duration
	CacheTTL      time.Duration
	Retries       int
	BackoffFactor time.Duration
	MaxBackoff    time.Duration
}

// LoadArchiveConfig reads ArchiveConfig from the application config.
func LoadArchiveConfig() ArchiveConfig {
	retries, factor, maxBackoff := config.GetArchiveRetryConfig()
	return ArchiveConfig{
		BaseURL:       config.GetArchiveApiUrl(),
		Timezone:      config.GetArchiveTimezone(),
		Timeout:       config.GetArchiveTimeout(),
		CacheTTL:      config.GetCacheTTL(),
		Retries:       retries,
		BackoffFactor: factor,
		MaxBackoff:    maxBackoff,
	}
}

// CacheClient is the subset of the Redis client the repository uses.
type CacheClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// ArchiveRepository defines the interface for archive data access
type ArchiveRepository interface {
	GetDaily(ctx context.Context, q model.ArchiveQuery) (*model.ArchiveResponse, error)
	Timezone() string
}

// archiveRepository implements ArchiveRepository
type archiveRepository struct {
	cfg        ArchiveConfig
	cache      CacheClient
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewArchiveRepository creates a new archive repository instance. A nil
// cache disables response caching.
func NewArchiveRepository(cfg ArchiveConfig, cache CacheClient, httpClient ...*http.Client) ArchiveRepository {
	client := &http.Client{Timeout: cfg.Timeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &archiveRepository{
		cfg:        cfg,
		cache:      cache,
		httpClient: client,
		breaker:    newArchiveBreaker(cfg.Retries),
	}
}

func (r *archiveRepository) Timezone() string {
	return r.cfg.Timezone
}

// GetDaily retrieves the daily arrays for q, checking the cache first,
// then the archive endpoint.
func (r *archiveRepository) GetDaily(ctx context.Context, q model.ArchiveQuery) (*model.ArchiveResponse, error) {
	if q.Timezone == "" {
		q.Timezone = r.cfg.Timezone
	}
	if len(q.Variables) == 0 {
		q.Variables = model.DailyVariables
	}
	values := buildQuery(q)
	key := cacheKey(values)

	if body, err := r.getFromCache(ctx, key); err == nil {
		resp, decodeErr := model.DecodeArchiveResponse(body, q.Variables)
		if decodeErr == nil {
			resp.Cached = true
			return resp, nil
		}
		config.GetLogger().Warnw("Discarding undecodable cached archive response", "key", key, "error", decodeErr)
	}

	body, err := r.fetchWithRetry(ctx, r.cfg.BaseURL+"?"+values.Encode())
	if err != nil {
		config.GetLogger().Errorw("Archive request failed", "latitude", q.Latitude, "longitude", q.Longitude,
			"start_date", q.StartDate.String(), "end_date", q.EndDate.String(), "error", err)
		return nil, err
	}

	resp, err := model.DecodeArchiveResponse(body, q.Variables)
	if err != nil {
		fetchErr := &RemoteFetchError{Err: err}
		if errors.Is(err, model.ErrArchiveRejected) {
			fetchErr.Reason = upstreamReason(body)
		}
		return nil, fetchErr
	}

	r.cacheResponse(ctx, key, body)
	return resp, nil
}

// getFromCache retrieves a raw archive body from Redis
func (r *archiveRepository) getFromCache(ctx context.Context, key string) ([]byte, error) {
	if r.cache == nil {
		return nil, redisv9.Nil
	}
	body, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redisv9.Nil) {
			config.GetLogger().Warnw("Cache read failed, falling back to archive", "key", key, "error", err)
		}
		return nil, err
	}
	return body, nil
}

// cacheResponse stores a raw archive body in Redis
func (r *archiveRepository) cacheResponse(ctx context.Context, key string, body []byte) {
	if r.cache == nil || r.cfg.CacheTTL <= 0 {
		return
	}
	if err := r.cache.Set(ctx, key, body, r.cfg.CacheTTL).Err(); err != nil {
		config.GetLogger().Warnw("Cache write failed", "key", key, "error", err)
	}
}

func buildQuery(q model.ArchiveQuery) url.Values {
	names := make([]string, len(q.Variables))
	for i, v := range q.Variables {
		names[i] = string(v)
	}
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', 4, 64))
	values.Set("start_date", q.StartDate.String())
	values.Set("end_date", q.EndDate.String())
	values.Set("daily", strings.Join(names, ","))
	values.Set("timezone", q.Timezone)
	return values
}

// cacheKey is stable for equal queries since Encode sorts by parameter name.
func cacheKey(values url.Values) string {
	return cacheKeyPrefix + values.Encode()
}
