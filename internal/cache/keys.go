package cache

import (
	"strconv"
	"time"
)

// namespace prefixes every key so the service can share a Redis database.
const namespace = "triage:"

// RunKey is where a finished run record is cached.
func RunKey(runID string) string {
	return namespace + "run:" + runID
}

// RateLimitKey names the request counter of one API key prefix for the
// window starting at windowStart. Each window gets its own key, so counts
// never leak across windows even if an expiry is missed.
func RateLimitKey(keyPrefix string, windowStart time.Time) string {
	return namespace + "ratelimit:" + keyPrefix + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}
