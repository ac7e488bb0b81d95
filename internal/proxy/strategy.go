package proxy

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetch performs the network half of a strategy: it forwards the request
// upstream and returns the response as a cacheable entry.
type Fetch func(r *http.Request) (*Entry, error)

// NewFetch builds a Fetch forwarding to the upstream origin.
func NewFetch(upstream string, client *http.Client) (Fetch, error) {
	base, err := url.Parse(strings.TrimSuffix(upstream, "/"))
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return func(r *http.Request) (*Entry, error) {
		target := *base
		target.Path = base.Path + r.URL.Path
		target.RawQuery = r.URL.RawQuery

		req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header = r.Header.Clone()
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &Entry{
			Status:   resp.StatusCode,
			Header:   resp.Header.Clone(),
			Body:     body,
			StoredAt: time.Now(),
		}, nil
	}, nil
}

func cacheKey(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

func writeEntry(w http.ResponseWriter, e *Entry) {
	for k, vals := range e.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}

// cacheable mirrors the worker's response plugin: only plain 200s go in.
func cacheable(e *Entry) bool {
	return e.Status == http.StatusOK
}

// NetworkFirst tries the network and falls back to a fresh-enough cached
// copy when it fails. Used for navigations and the API origin.
func NetworkFirst(store CacheStore, maxAge time.Duration, fetch Fetch) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(r)
		e, err := fetch(r)
		if err == nil {
			if cacheable(e) {
				if err := store.Set(r.Context(), key, e); err != nil {
					log.Printf("⚠️ Cache write failed for %s: %v", key, err)
				}
			}
			writeEntry(w, e)
			return
		}

		cached, ok, _ := store.Get(r.Context(), key)
		if ok && !cached.Expired(maxAge, time.Now()) {
			writeEntry(w, cached)
			return
		}
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})
}

// CacheFirst serves a fresh cached copy when present and only then goes to
// the network. Used for images and static assets.
func CacheFirst(store CacheStore, maxAge time.Duration, fetch Fetch) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(r)
		cached, ok, _ := store.Get(r.Context(), key)
		if ok && !cached.Expired(maxAge, time.Now()) {
			writeEntry(w, cached)
			return
		}
		if ok {
			store.Delete(r.Context(), key)
		}

		e, err := fetch(r)
		if err != nil {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		if cacheable(e) {
			store.Set(r.Context(), key, e)
		}
		writeEntry(w, e)
	})
}

// StaleWhileRevalidate serves whatever the cache holds immediately and
// refreshes it in the background. Used for scripts and styles.
func StaleWhileRevalidate(store CacheStore, fetch Fetch) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(r)
		cached, ok, _ := store.Get(r.Context(), key)
		if ok {
			writeEntry(w, cached)
			revalidate(store, key, fetch, r)
			return
		}

		e, err := fetch(r)
		if err != nil {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		if cacheable(e) {
			store.Set(r.Context(), key, e)
		}
		writeEntry(w, e)
	})
}

// revalidate refreshes a cache slot off the request path. The background
// request gets its own context so the client disconnecting does not cancel
// the refresh midway.
func revalidate(store CacheStore, key string, fetch Fetch, r *http.Request) {
	clone := r.Clone(context.Background())
	go func() {
		e, err := fetch(clone)
		if err != nil || !cacheable(e) {
			return
		}
		store.Set(context.Background(), key, e)
	}()
}
