package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback freshness when neither Cache-Control nor Expires is usable
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry converts an HTTP response to an Entry.
// It reads the response body and restores it for the caller.
func ResponseToEntry(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Data:     body,
		ETag:     resp.Header.Get("ETag"),
		CachedAt: time.Now(),
		Expires:  parseExpires(resp.Header),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// parseExpires derives the freshness deadline from response headers.
// Cache-Control max-age wins over Expires; no-store and no-cache mark the
// response stale immediately. Missing or invalid headers fall back to DefaultTTL.
func parseExpires(headers http.Header) time.Time {
	now := time.Now()

	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			switch {
			case directive == "no-store" || directive == "no-cache":
				return now
			case strings.HasPrefix(directive, "max-age="):
				if secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}

	if expires.Before(now) {
		return now
	}

	return expires
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.Revalidatable()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}

	// Prefer ETag over Last-Modified
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// Refresh extends a revalidated entry using the headers of a 304 response.
func Refresh(entry *Entry, headers http.Header) {
	entry.Expires = parseExpires(headers)
	if etag := headers.Get("ETag"); etag != "" {
		entry.ETag = etag
	}
}
