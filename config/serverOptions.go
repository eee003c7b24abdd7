package config

import (
	"os"
	"strings"
	"time"
)

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// SecurityHeaderPolicy lists the response headers set on every request.
// An empty value disables the corresponding header.
type SecurityHeaderPolicy struct {
	FrameOptions          string
	ContentTypeOptions    string
	ReferrerPolicy        string
	ContentSecurityPolicy string
	HSTSMaxAge            time.Duration
	PermissionsPolicy     string
}

// ServerOptions is the single place where request-pipeline options are read.
//
// Env:
//   - PORT (default 8080)
//   - GO_ENV (production enables the strict CORS allow-list and hides error detail)
//   - RATE_LIMIT_ENABLED (default true), RATE_LIMIT_WINDOW_SECONDS (default 900),
//     RATE_LIMIT_MAX_REQUESTS (default 1000), RATE_LIMIT_STORE (memory|redis)
//   - CORS_ALLOWED_ORIGINS (comma-separated)
//   - SECURITY_FRAME_OPTIONS, SECURITY_REFERRER_POLICY, SECURITY_CSP,
//     SECURITY_HSTS_MAX_AGE_SECONDS, SECURITY_PERMISSIONS_POLICY
//   - MAX_UPLOAD_SIZE_MB (default 10)
type ServerOptions struct {
	Port        string
	Environment string

	RateLimitEnabled bool
	RateLimitWindow  time.Duration
	RateLimitMax     int64
	RateLimitStore   string

	CORSAllowedOrigins []string
	SecurityHeaders    SecurityHeaderPolicy

	MaxUploadBytes int64
}

func (o ServerOptions) IsProduction() bool {
	return strings.EqualFold(o.Environment, "production")
}

// LoadServerOptions reads ServerOptions from the environment.
func LoadServerOptions() ServerOptions {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	store := strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_STORE")))
	if store != RateLimitStoreRedis {
		store = RateLimitStoreMemory
	}

	opts := ServerOptions{
		Port:        port,
		Environment: strings.TrimSpace(os.Getenv("GO_ENV")),

		RateLimitEnabled: boolFromEnv("RATE_LIMIT_ENABLED", true),
		RateLimitWindow:  time.Duration(positiveIntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 900)) * time.Second,
		RateLimitMax:     int64(positiveIntFromEnv("RATE_LIMIT_MAX_REQUESTS", 1000)),
		RateLimitStore:   store,

		CORSAllowedOrigins: SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		SecurityHeaders: SecurityHeaderPolicy{
			FrameOptions:          stringFromEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions:    "nosniff",
			ReferrerPolicy:        stringFromEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
			ContentSecurityPolicy: stringFromEnv("SECURITY_CSP", "default-src 'self'"),
			HSTSMaxAge:            time.Duration(intFromEnv("SECURITY_HSTS_MAX_AGE_SECONDS", 31536000)) * time.Second,
			PermissionsPolicy:     stringFromEnv("SECURITY_PERMISSIONS_POLICY", "camera=(), microphone=(), geolocation=()"),
		},

		MaxUploadBytes: int64(positiveIntFromEnv("MAX_UPLOAD_SIZE_MB", 10)) << 20,
	}
	return opts
}

func stringFromEnv(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func positiveIntFromEnv(key string, def int) int {
	n := intFromEnv(key, def)
	if n <= 0 {
		return def
	}
	return n
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
