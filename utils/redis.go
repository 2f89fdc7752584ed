package utils

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	redis "github.com/redis/go-redis/v9"
)

// RedisClient is an optional shared client used for the leaderboard cache
// and JWT revocation. Nil when REDIS_ADDR is not configured; callers must
// treat Redis outages as cache misses, never as request failures.
var RedisClient *redis.Client

func init() {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return
	}
	opts := &redis.Options{Addr: addr}
	if p := os.Getenv("REDIS_PASS"); p != "" {
		opts.Password = p
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			opts.DB = n
		}
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(context.Background()).Err(); err != nil {
		log.Printf("warning: redis ping failed: %v", err)
		return
	}
	RedisClient = rc
}
