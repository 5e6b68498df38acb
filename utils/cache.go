// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"bottlebank/config"
)

// WalletCacheClient is the dedicated client for the local wallet blob store.
var WalletCacheClient *redis.Client

// InitWalletCache initializes the Redis client backing local wallet persistence.
func InitWalletCache() {
	WalletCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisWalletDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := WalletCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Wallet): %v", err)
	}
}

// GetWalletCacheClient returns the Redis client for wallet persistence.
func GetWalletCacheClient() *redis.Client {
	if WalletCacheClient == nil {
		InitWalletCache()
	}
	return WalletCacheClient
}
