package reports

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	reportPipeline = "pipeline"
	reportSummary  = "summary"
)

var cachedReports = []string{reportPipeline, reportSummary}

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// REPORT_CACHE_TTL_SECONDS, default 120s
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	ownerId, _ := utils.GetOwnerIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"owner_id":       ownerId,
		"correlation_id": cid,
	}).Warn("slow_report")
}

func reportCacheKey(ownerId int, name string) string {
	return fmt.Sprintf("report:%d:%s", ownerId, name)
}

// cachedReport serves name from redis when the report cache is enabled and
// falls back to build, storing its result.
func cachedReport[T any](ctx context.Context, ownerId int, name string, build func() (T, error)) (T, error) {
	started := time.Now()
	defer logSlowReport(ctx, name, started)

	key := reportCacheKey(ownerId, name)
	if reportCacheEnabled() {
		var cached T
		if ok, err := config.GetRedisObject(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	result, err := build()
	if err != nil {
		return result, err
	}
	if reportCacheEnabled() {
		if err := config.SetRedisObject(ctx, key, result, reportCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "reports", "cachedReport", "cache set", key, err)
		}
	}
	return result, nil
}

// InvalidateReports drops the owner's cached analytics after deal, pitch or
// payment writes.
func InvalidateReports(ctx context.Context, ownerId int) error {
	keys := make([]string, len(cachedReports))
	for i, name := range cachedReports {
		keys[i] = reportCacheKey(ownerId, name)
	}
	return config.RemoveRedisKey(ctx, keys...)
}
