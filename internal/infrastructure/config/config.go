package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr     string
	LogLevel string

	// Target scenario
	Target     string
	Users      int
	Iterations int

	// Redirect policy
	FollowRedirects bool
	MaxRedirects    int
	Strict302       bool

	// Protocol caching (permanent redirects + response content)
	CacheEnabled    bool
	CacheMaxEntries int
	CacheTTL        time.Duration

	// Proxy
	Proxy           string
	ProxyExceptions []string

	SendReferer     bool
	SilentResources bool
	ResourceWorkers int

	// TraceDumps dumps every request/response at trace level; without it
	// dumps appear at debug level on failure only.
	TraceDumps bool

	RequestTimeout time.Duration
	InsecureTLS    bool
	StatsBuffer    int
}

func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("ADDR", ":9290"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Target:          getEnv("TARGET", ""),
		Users:           getEnvInt("USERS", 1),
		Iterations:      getEnvInt("ITERATIONS", 1),
		MaxRedirects:    getEnvInt("MAX_REDIRECTS", 20),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),
		CacheTTL:        getEnvDuration("CACHE_TTL", time.Hour),
		Proxy:           getEnv("PROXY", ""),
		ResourceWorkers: getEnvInt("RESOURCE_WORKERS", 32),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		StatsBuffer:     getEnvInt("STATS_BUFFER", 4096),
	}
	cfg.FollowRedirects = getEnvBool("FOLLOW_REDIRECTS", true)
	cfg.Strict302 = getEnvBool("STRICT_302", false)
	cfg.CacheEnabled = getEnvBool("CACHE_ENABLED", true)
	cfg.SendReferer = getEnvBool("SEND_REFERER", true)
	cfg.SilentResources = getEnvBool("SILENT_RESOURCES", true)
	cfg.TraceDumps = getEnvBool("TRACE_DUMPS", false)
	cfg.InsecureTLS = getEnvBool("INSECURE_TLS", false)
	if v := strings.TrimSpace(os.Getenv("PROXY_EXCEPTIONS")); v != "" {
		cfg.ProxyExceptions = splitCSV(v)
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splitCSV splits comma-separated tokens trimming whitespace and skipping empties.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
