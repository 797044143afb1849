package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// trackingParams are query parameters that never change which thread a URL
// points at.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"ref":      true,
	"ref_src":  true,
	"ref_url":  true,
	"s":        true,
	"t":        true,
	"share_id": true,
	"context":  true,
	"si":       true,
	"mibextid": true,
	"rdt":      true,
	"__cft__":  true,
	"__tn__":   true,
}

// NormalizeURL lower-cases rawURL and strips its fragment and tracking
// query parameters. Remaining parameters are re-encoded in sorted order.
func NormalizeURL(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for key := range q {
		if trackingParams[key] || strings.HasPrefix(key, "utm_") || strings.HasPrefix(key, "__cft__") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.ForceQuery = false
	return u.String()
}

// GenerateCacheKey derives the key for a (URL, tone) pair. It is a pure
// function of NormalizeURL(rawURL) and tone, stable across restarts.
func GenerateCacheKey(rawURL, tone string) string {
	sum := xxhash.Sum64String(NormalizeURL(rawURL) + ":" + tone)
	return strconv.FormatUint(sum, 36)
}
