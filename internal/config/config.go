package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all settings for the client binaries.
type Config struct {
	Socket SocketConfig
	API    APIConfig
	Store  StoreConfig
	Proxy  ProxyConfig
}

// SocketConfig holds settings for the real-time connection handle.
type SocketConfig struct {
	URL            string
	MaxRetries     int
	BackoffBaseMs  int
	BackoffCapMs   int
	DialTimeoutSec int
}

// APIConfig holds settings for the REST API client.
type APIConfig struct {
	BaseURL string
	Token   string
}

// StoreConfig selects the local persistence backend.
// Backend is "sqlite" (default, local file) or "redis" (shared deployments).
type StoreConfig struct {
	Backend   string
	DBPath    string
	RedisAddr string
}

// ProxyConfig holds settings for the offline shell proxy.
type ProxyConfig struct {
	Addr        string
	Upstream    string
	RedisAddr   string
	ImageMaxAge time.Duration
	APIMaxAge   time.Duration
}

// Load returns configuration from the environment with fallback to defaults.
func Load() *Config {
	return &Config{
		Socket: SocketConfig{
			URL:            getEnv("CHAT_SOCKET_URL", "https://api.tools.gavago.fr"),
			MaxRetries:     getEnvAsInt("CHAT_SOCKET_MAX_RETRIES", 5),
			BackoffBaseMs:  getEnvAsInt("CHAT_SOCKET_BACKOFF_BASE_MS", 500),
			BackoffCapMs:   getEnvAsInt("CHAT_SOCKET_BACKOFF_CAP_MS", 10000),
			DialTimeoutSec: getEnvAsInt("CHAT_SOCKET_DIAL_TIMEOUT", 10),
		},
		API: APIConfig{
			BaseURL: getEnv("CHAT_API_URL", "https://api.tools.gavago.fr/socketio/api"),
			Token:   getEnv("CHAT_API_TOKEN", ""),
		},
		Store: StoreConfig{
			Backend:   getEnv("CHAT_STORE_BACKEND", "sqlite"),
			DBPath:    getEnv("CHAT_STORE_PATH", "pwa-chat.db"),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Proxy: ProxyConfig{
			Addr:        getEnv("PROXY_ADDR", ":8090"),
			Upstream:    getEnv("PROXY_UPSTREAM", "https://api.tools.gavago.fr"),
			RedisAddr:   getEnv("REDIS_ADDR", ""),
			ImageMaxAge: time.Duration(getEnvAsInt("PROXY_IMAGE_MAX_AGE_SEC", 30*24*60*60)) * time.Second,
			APIMaxAge:   time.Duration(getEnvAsInt("PROXY_API_MAX_AGE_SEC", 24*60*60)) * time.Second,
		},
	}
}

// Helper function to get an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get an environment variable as an integer
func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("⚠️ Invalid integer for %s=%q, using default %d", key, value, fallback)
	}
	return fallback
}
