package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	LoginMaxAttempts = 5
	LoginWindow      = 5 * time.Minute

	PhotoUploadMaxRequests = 20
	PhotoUploadWindow      = time.Hour

	AlbumOpsMaxRequests = 50
	AlbumOpsWindow      = time.Hour
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

/*
Store tracks per-identifier attempt counts within fixed windows. The default
backing is an in-process map, which is only correct for single-instance
deployments; the sqlite store exists for anything scaled past that.
*/
type Store interface {
	/* Check counts a request against the window and reports whether it is allowed. */
	Check(key string, max int, window time.Duration) (Result, error)

	/* Peek returns the current count and reset time without counting anything. */
	Peek(key string) (int, time.Time, error)

	/* Increment records an attempt and returns the new count. */
	Increment(key string, window time.Duration) (int, time.Time, error)

	Clear(key string) error
}

/*
Identifier derives the rate-limit key for a request. Proxy headers win over
the socket address so limits follow the real client.
*/
func Identifier(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		return strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
