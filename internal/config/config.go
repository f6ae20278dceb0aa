package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/weather-compare/internal/model"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// Defaults used when a key is missing from config.yaml.
const (
	defaultArchiveAPIURL = "https://archive-api.open-meteo.com/v1/archive"
	defaultTimezone      = "America/Chicago"
	defaultRetries       = 5
	defaultBackoffFactor = 200 * time.Millisecond
	defaultMaxBackoff    = 5 * time.Second
	defaultCacheTTL      = time.Hour
)

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			viper.AddConfigPath(root)
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error merging test config file", "error", err)
			}
		}
	})
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func getDuration(key string, def time.Duration) time.Duration {
	initConfig()
	raw := viper.GetString(key)
	if raw == "" {
		return def
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		GetLogger().Warnw("Invalid duration in config, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return dur
}

func GetArchiveApiUrl() string {
	initConfig()
	if u := viper.GetString("archive.api_url"); u != "" {
		return u
	}
	return defaultArchiveAPIURL
}

// GetArchiveTimezone returns the timezone used for day boundaries of every request.
func GetArchiveTimezone() string {
	initConfig()
	if tz := viper.GetString("archive.timezone"); tz != "" {
		return tz
	}
	return defaultTimezone
}

func GetArchiveTimeout() time.Duration {
	return getDuration("archive.timeout", 20*time.Second)
}

// GetArchiveRetryConfig returns the retry count and backoff settings for the archive transport.
func GetArchiveRetryConfig() (retries int, backoffFactor, maxBackoff time.Duration) {
	initConfig()
	retries = defaultRetries
	if viper.IsSet("archive.retries") {
		retries = viper.GetInt("archive.retries")
	}
	backoffFactor = getDuration("archive.backoff_factor", defaultBackoffFactor)
	maxBackoff = getDuration("archive.max_backoff", defaultMaxBackoff)
	return
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func GetServerPort() string {
	initConfig()
	serverPort := viper.GetString("server.port")
	return serverPort
}

func GetCacheExpiration() string {
	initConfig()
	return viper.GetString("cache.expiration")
}

// GetCacheTTL returns the cache expiration as a time.Duration. Defaults to 1h.
func GetCacheTTL() time.Duration {
	return getDuration("cache.expiration", defaultCacheTTL)
}

func GetServerTimeout(key string) string {
	initConfig()
	return viper.GetString("server." + key)
}

// GetServerTimeoutDuration is GetServerTimeout parsed, falling back to def.
func GetServerTimeoutDuration(key string, def time.Duration) time.Duration {
	return getDuration("server."+key, def)
}

func GetTestRedisMockPort() string {
	initConfig()
	return viper.GetString("test.redis_mock_port")
}

func GetTestServerPort() string {
	initConfig()
	return viper.GetString("test.server_port")
}

type cityConfig struct {
	Key       string  `mapstructure:"key"`
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// GetCities returns the configured city list in file order.
func GetCities() []model.City {
	initConfig()
	var raw []cityConfig
	if err := viper.UnmarshalKey("cities", &raw); err != nil {
		GetLogger().Errorw("Error reading cities from config", "error", err)
		return nil
	}
	cities := make([]model.City, 0, len(raw))
	for _, c := range raw {
		if c.Key == "" {
			GetLogger().Warnw("Skipping city without key", "latitude", c.Latitude, "longitude", c.Longitude)
			continue
		}
		cities = append(cities, model.City{
			Key:       strings.ToLower(c.Key),
			Name:      c.Name,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		})
	}
	return cities
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	return getDuration("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the per-city rate limiter.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}
