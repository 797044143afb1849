package domain

// CacheEntry is a stored AI result. Timestamps are epoch milliseconds.
type CacheEntry struct {
	CacheKey      string       `json:"cacheKey"`
	ThreadURL     string       `json:"threadUrl"`
	Tone          string       `json:"tone"`
	Suggestions   []Suggestion `json:"suggestions"`
	ThreadSummary string       `json:"threadSummary"`
	CreatedAt     int64        `json:"createdAt"`
	ExpiresAt     int64        `json:"expiresAt"`
}

// Expired reports whether the entry is past its expiry at nowMillis.
// An entry is still valid at exactly ExpiresAt.
func (e *CacheEntry) Expired(nowMillis int64) bool {
	return nowMillis > e.ExpiresAt
}

// CacheIndex tracks the live keys and a running size estimate.
type CacheIndex struct {
	Keys         []string `json:"keys"`
	TotalSize    int64    `json:"totalSize"`
	LastEviction int64    `json:"lastEviction"`
}

// Contains reports whether key is indexed.
func (i *CacheIndex) Contains(key string) bool {
	for _, k := range i.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Remove drops key from the index. It reports whether the key was present.
func (i *CacheIndex) Remove(key string) bool {
	for n, k := range i.Keys {
		if k == key {
			i.Keys = append(i.Keys[:n], i.Keys[n+1:]...)
			return true
		}
	}
	return false
}
