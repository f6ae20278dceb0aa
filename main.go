package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/redis"
	"github.com/fakhrymubarak/weather-compare/internal/repository"
	"github.com/fakhrymubarak/weather-compare/internal/service"

	redisv9 "github.com/redis/go-redis/v9"
)

var noCache bool

var rootCmd = &cobra.Command{
	Use:   "weather-compare",
	Short: "Compare historical daily weather across cities",
	Long: `weather-compare fetches daily archive observations from Open-Meteo for the
configured cities, aligns them onto a contiguous calendar and serves or prints
the resulting series together with per-city averages.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "skip the Redis response cache")
}

// newWeatherService wires the archive repository and city list. A nil
// client disables the response cache.
func newWeatherService(rdb *redisv9.Client) *service.WeatherService {
	var cache repository.CacheClient
	if rdb != nil {
		cache = rdb
	}
	repo := repository.NewArchiveRepository(repository.LoadArchiveConfig(), cache)
	return service.NewWeatherService(repo, config.GetCities())
}

// connectCache returns a Redis client, or nil when caching is disabled or
// the server cannot be reached.
func connectCache(ctx context.Context) *redisv9.Client {
	if noCache {
		return nil
	}
	rdb := redis.NewClientFromConfig()
	if err := redis.Ping(ctx, rdb, 2*time.Second); err != nil {
		config.GetLogger().Warnw("Redis unavailable, continuing without cache", "addr", config.GetRedisAddr(), "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
