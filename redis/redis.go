package redis

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

var (
	Client *redis.Client
	Ctx    = context.Background()
)

// InitRedis connects the cache client. The cache is optional: without
// REDIS_ADDR the service runs uncached.
func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("REDIS_ADDR not set, running without cache")
		return
	}

	Client = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	if _, err := Client.Ping(Ctx).Result(); err != nil {
		log.Printf("Failed to connect to Redis: %v, running without cache", err)
		Client = nil
		return
	}
	log.Println("✅ Connected to Redis")
}
