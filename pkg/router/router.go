package router

import (
	"strconv"
	"strings"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/env"
)

var BaseURL, CORSOrigin string
var GZipLevel int
var CacheTTLSeconds int
var bodyLimitBytes int

func init() {
	BaseURL = normalizeBaseURL(env.GetEnvStringOrDefault("HTTP_BASE_URL", ""))
	CORSOrigin = env.GetEnvStringOrDefault("HTTP_CORS_ORIGIN", "*")
	bodyLimitBytes = parseBodyLimit(env.GetEnvStringOrDefault("HTTP_BODY_LIMIT_SIZE", "1M"))
	GZipLevel = env.GetEnvIntOrDefault("HTTP_GZIP_LEVEL", 1)
	CacheTTLSeconds = env.GetEnvIntOrDefault("HTTP_CACHE_TTL_SECONDS", 2)
}

func BodyLimitBytes() int {
	return bodyLimitBytes
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return "/" + strings.TrimLeft(base, "/")
}

func parseBodyLimit(limit string) int {
	const defaultLimit = 1024 * 1024
	limit = strings.TrimSpace(strings.ToUpper(limit))
	if limit == "" {
		return defaultLimit
	}
	multiplier := 1
	for suffix, m := range map[string]int{"K": 1 << 10, "M": 1 << 20, "G": 1 << 30} {
		if strings.HasSuffix(limit, suffix) {
			multiplier = m
			limit = strings.TrimSuffix(limit, suffix)
			break
		}
	}
	value, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || value <= 0 {
		return defaultLimit
	}
	return value * multiplier
}
