package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tombury59/PWA-CHAT/internal/config"
	"github.com/tombury59/PWA-CHAT/internal/proxy"
)

const shutdownTimeout = 30 * time.Second

// caches groups the per-category stores, named after the worker's caches.
type caches struct {
	pages  proxy.CacheStore
	assets proxy.CacheStore
	images proxy.CacheStore
	api    proxy.CacheStore
}

func (c *caches) clearAll(ctx context.Context) {
	for _, s := range []proxy.CacheStore{c.pages, c.assets, c.images, c.api} {
		if err := s.Clear(ctx); err != nil {
			log.Printf("⚠️ Cache flush failed: %v", err)
		}
	}
}

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", "", "proxy listen address (overrides PROXY_ADDR)")
	flag.Parse()

	cfg := config.Load().Proxy
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.Upstream == "" {
		log.Fatal("❌ PROXY_UPSTREAM is not set")
	}

	// 2. Cache stores (Redis when shared, in-memory otherwise)
	var stores caches
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := client.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis")
		stores = caches{
			pages:  proxy.NewRedisStore(client, "pages-cache:", 0),
			assets: proxy.NewRedisStore(client, "assets-cache:", 0),
			images: proxy.NewRedisStore(client, "images-cache:", cfg.ImageMaxAge),
			api:    proxy.NewRedisStore(client, "api-cache:", cfg.APIMaxAge),
		}
	} else {
		stores = caches{
			pages:  proxy.NewMemoryStore(0),
			assets: proxy.NewMemoryStore(0),
			images: proxy.NewMemoryStore(50),
			api:    proxy.NewMemoryStore(32),
		}
	}

	fetch, err := proxy.NewFetch(cfg.Upstream, nil)
	if err != nil {
		log.Fatalf("❌ Bad upstream URL: %v", err)
	}

	// 3. Strategies per request category, matching the worker's routes
	apiHandler := proxy.NetworkFirst(stores.api, cfg.APIMaxAge, fetch)
	pageHandler := proxy.NetworkFirst(stores.pages, 0, fetch)
	imageHandler := proxy.CacheFirst(stores.images, cfg.ImageMaxAge, fetch)
	assetHandler := proxy.StaleWhileRevalidate(stores.assets, fetch)

	// 4. Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/socketio/api/*", apiHandler)
	r.Handle("/api/*", apiHandler)

	// The skip-waiting control message: flush everything and start fresh.
	r.Post("/control/skip-waiting", func(w http.ResponseWriter, req *http.Request) {
		stores.clearAll(req.Context())
		log.Println("✅ Caches flushed (skip-waiting)")
		w.WriteHeader(http.StatusOK)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		switch categorize(req.URL.Path) {
		case "image":
			imageHandler.ServeHTTP(w, req)
		case "asset":
			assetHandler.ServeHTTP(w, req)
		default:
			pageHandler.ServeHTTP(w, req)
		}
	})

	instance := uuid.New().String()[:8]
	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		log.Printf("🚀 Proxy %s serving %s in front of %s", instance, cfg.Addr, cfg.Upstream)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe: %v", err)
		}
	}()

	// 5. Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return srv.Shutdown(ctx)
			},
		},
	)
	exitCode := <-wait
	log.Printf("Proxy exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// categorize maps a request path to its caching category the way the worker
// matches request destinations.
func categorize(path string) string {
	lower := strings.ToLower(path)
	switch {
	case hasAnySuffix(lower, ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".svg"):
		return "image"
	case hasAnySuffix(lower, ".js", ".css", ".mjs", ".map", ".woff", ".woff2"):
		return "asset"
	default:
		return "page"
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
