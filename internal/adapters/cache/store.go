// Package cache stores AI results keyed by (normalized URL, tone) with TTL
// expiry, a size-bounded index and percentage-based eviction.
package cache

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"replykit/internal/domain"
	"replykit/pkg/json"
	"replykit/pkg/log"
)

// Storage keys.
const (
	EntryPrefix = "cache_"
	IndexKey    = "cacheIndex"
)

// Defaults applied to zero Options fields.
const (
	DefaultTTL           = 24 * time.Hour
	DefaultEntryMaxBytes = 100 * 1024
	DefaultMaxBytes      = 8 * 1024 * 1024
	DefaultPrunePercent  = 0.2
)

// KV is the key/value store behind the cache. Implementations must be safe
// for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Options configures a Store.
type Options struct {
	TTL           time.Duration
	EntryMaxBytes int64
	MaxBytes      int64
	PrunePercent  float64
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.EntryMaxBytes <= 0 {
		o.EntryMaxBytes = DefaultEntryMaxBytes
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.PrunePercent <= 0 || o.PrunePercent > 1 {
		o.PrunePercent = DefaultPrunePercent
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stats describes the cache for diagnostics.
type Stats struct {
	Entries      int   `json:"entries"`
	TotalSize    int64 `json:"totalSize"`
	MaxBytes     int64 `json:"maxBytes"`
	LastEviction int64 `json:"lastEviction"`
}

// Store is the cache. Every operation holds the store mutex because lazy
// expiry on Get rewrites the index as well.
type Store struct {
	kv   KV
	opts Options
	mu   sync.Mutex
}

// NewStore returns a Store over kv.
func NewStore(kv KV, opts Options) *Store {
	return &Store{kv: kv, opts: opts.withDefaults()}
}

// Key derives the cache key for url and tone.
func (s *Store) Key(url, tone string) string { return GenerateCacheKey(url, tone) }

// TTL returns the default entry lifetime.
func (s *Store) TTL() time.Duration { return s.opts.TTL }

func (s *Store) nowMillis() int64 { return s.opts.Now().UnixMilli() }

// NewEntry builds an entry for url and tone created now. A non-positive ttl
// uses the store default.
func (s *Store) NewEntry(url, tone string, suggestions []domain.Suggestion, summary string, ttl time.Duration) *domain.CacheEntry {
	if ttl <= 0 {
		ttl = s.opts.TTL
	}
	now := s.opts.Now()
	return &domain.CacheEntry{
		CacheKey:      GenerateCacheKey(url, tone),
		ThreadURL:     url,
		Tone:          tone,
		Suggestions:   suggestions,
		ThreadSummary: summary,
		CreatedAt:     now.UnixMilli(),
		ExpiresAt:     now.Add(ttl).UnixMilli(),
	}
}

// Get returns the entry stored under key, or nil when there is none. An
// expired entry is deleted and reported as absent.
func (s *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, size, err := s.loadEntry(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	if !entry.Expired(s.nowMillis()) {
		return entry, nil
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Delete(ctx, EntryPrefix+key); err != nil {
		return nil, fmt.Errorf("delete expired entry: %w", err)
	}
	if idx.Remove(key) {
		idx.TotalSize = max(0, idx.TotalSize-size)
		if err := s.saveIndex(ctx, idx); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Save upserts entry. An entry whose encoding exceeds the per-entry cap is
// rejected with domain.ErrCacheWriteRejected. When the running total then
// exceeds the budget the cache is pruned.
func (s *Store) Save(ctx context.Context, entry *domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	size := int64(len(data))
	if size > s.opts.EntryMaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrCacheWriteRejected, size, s.opts.EntryMaxBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	_, oldSize, err := s.loadEntry(ctx, entry.CacheKey)
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, EntryPrefix+entry.CacheKey, data); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	if !idx.Contains(entry.CacheKey) {
		idx.Keys = append(idx.Keys, entry.CacheKey)
	}
	idx.TotalSize = max(0, idx.TotalSize-oldSize+size)
	if err := s.saveIndex(ctx, idx); err != nil {
		return err
	}

	if idx.TotalSize > s.opts.MaxBytes {
		removed, err := s.prune(ctx)
		if err != nil {
			return err
		}
		log.GlobalInfo("cache over budget, pruned", "removed", removed, "max_bytes", s.opts.MaxBytes)
	}
	return nil
}

type liveEntry struct {
	key       string
	createdAt int64
	size      int64
}

// Prune drops expired entries, then the oldest PrunePercent of the rest by
// creation time, rounding up. It returns how many entries were removed.
func (s *Store) Prune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune(ctx)
}

func (s *Store) prune(ctx context.Context) (int, error) {
	idx, live, removed, err := s.sweep(ctx)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(live, func(i, j int) bool { return live[i].createdAt < live[j].createdAt })
	n := int(math.Ceil(float64(len(live)) * s.opts.PrunePercent))

	victims := make([]string, 0, n)
	for _, e := range live[:n] {
		victims = append(victims, EntryPrefix+e.key)
		idx.Remove(e.key)
		idx.TotalSize -= e.size
	}
	if len(victims) > 0 {
		if err := s.kv.Delete(ctx, victims...); err != nil {
			return removed, fmt.Errorf("evict cache entries: %w", err)
		}
	}

	idx.TotalSize = max(0, idx.TotalSize)
	idx.LastEviction = s.nowMillis()
	if err := s.saveIndex(ctx, idx); err != nil {
		return removed, err
	}
	return removed + len(victims), nil
}

// sweep walks the index, deletes expired entries, drops keys whose record
// is gone and recomputes the total size. It returns the corrected index,
// the live entries and how many expired ones it removed.
func (s *Store) sweep(ctx context.Context) (*domain.CacheIndex, []liveEntry, int, error) {
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, nil, 0, err
	}

	now := s.nowMillis()
	var live []liveEntry
	var expired []string
	var total int64
	keys := make([]string, 0, len(idx.Keys))

	for _, key := range idx.Keys {
		entry, size, err := s.loadEntry(ctx, key)
		if err != nil {
			return nil, nil, 0, err
		}
		switch {
		case entry == nil:
		case entry.Expired(now):
			expired = append(expired, EntryPrefix+key)
		default:
			keys = append(keys, key)
			total += size
			live = append(live, liveEntry{key: key, createdAt: entry.CreatedAt, size: size})
		}
	}

	if len(expired) > 0 {
		if err := s.kv.Delete(ctx, expired...); err != nil {
			return nil, nil, 0, fmt.Errorf("delete expired entries: %w", err)
		}
	}
	idx.Keys = keys
	idx.TotalSize = total
	return idx, live, len(expired), nil
}

// Maintain removes expired entries and prunes when the cache is still over
// budget. It returns how many entries were removed.
func (s *Store) Maintain(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, removed, err := s.sweep(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.saveIndex(ctx, idx); err != nil {
		return removed, err
	}
	if idx.TotalSize <= s.opts.MaxBytes {
		return removed, nil
	}
	pruned, err := s.prune(ctx)
	return removed + pruned, err
}

// StartMaintenance runs Maintain every interval until ctx is done.
func (s *Store) StartMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Maintain(ctx)
			if err != nil {
				log.GlobalError("cache maintenance failed", "error", err)
				continue
			}
			if removed > 0 {
				log.GlobalInfo("cache maintenance", "removed", removed)
			}
		}
	}
}

// Clear removes every entry and resets the index.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(idx.Keys)+1)
	for _, k := range idx.Keys {
		keys = append(keys, EntryPrefix+k)
	}
	keys = append(keys, IndexKey)
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// ClearForURL removes every entry, of any tone, whose thread URL
// normalizes to the same address as rawURL. There is no URL index, so
// every entry is read.
func (s *Store) ClearForURL(ctx context.Context, rawURL string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return 0, err
	}
	target := NormalizeURL(rawURL)

	var victims []string
	cleared := 0
	for _, key := range append([]string(nil), idx.Keys...) {
		entry, size, err := s.loadEntry(ctx, key)
		if err != nil {
			return 0, err
		}
		if entry != nil {
			if NormalizeURL(entry.ThreadURL) != target {
				continue
			}
			cleared++
		}
		victims = append(victims, EntryPrefix+key)
		idx.Remove(key)
		idx.TotalSize = max(0, idx.TotalSize-size)
	}
	if len(victims) == 0 {
		return 0, nil
	}
	if err := s.kv.Delete(ctx, victims...); err != nil {
		return 0, fmt.Errorf("clear cache for url: %w", err)
	}
	return cleared, s.saveIndex(ctx, idx)
}

// Stats reports the index counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Entries:      len(idx.Keys),
		TotalSize:    idx.TotalSize,
		MaxBytes:     s.opts.MaxBytes,
		LastEviction: idx.LastEviction,
	}, nil
}

// loadEntry returns the decoded entry under key and its encoded size. A
// missing or undecodable record yields a nil entry.
func (s *Store) loadEntry(ctx context.Context, key string) (*domain.CacheEntry, int64, error) {
	data, ok, err := s.kv.Get(ctx, EntryPrefix+key)
	if err != nil {
		return nil, 0, fmt.Errorf("read cache entry: %w", err)
	}
	if !ok {
		return nil, 0, nil
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.GlobalWarn("dropping undecodable cache entry", "key", key, "error", err)
		return nil, int64(len(data)), nil
	}
	return &entry, int64(len(data)), nil
}

func (s *Store) loadIndex(ctx context.Context) (*domain.CacheIndex, error) {
	data, ok, err := s.kv.Get(ctx, IndexKey)
	if err != nil {
		return nil, fmt.Errorf("read cache index: %w", err)
	}
	idx := &domain.CacheIndex{Keys: []string{}}
	if !ok {
		return idx, nil
	}
	if err := json.Unmarshal(data, idx); err != nil {
		log.GlobalWarn("resetting undecodable cache index", "error", err)
		return &domain.CacheIndex{Keys: []string{}}, nil
	}
	return idx, nil
}

func (s *Store) saveIndex(ctx context.Context, idx *domain.CacheIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	if err := s.kv.Set(ctx, IndexKey, data); err != nil {
		return fmt.Errorf("write cache index: %w", err)
	}
	return nil
}
