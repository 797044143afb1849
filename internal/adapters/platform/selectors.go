package platform

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"replykit/internal/domain"
	"replykit/pkg/log"
)

//go:embed selectors.yaml
var defaultSelectorsYAML []byte

// PlatformSelectors holds the ordered locators for each semantic role of
// one platform, plus its extraction limits.
type PlatformSelectors struct {
	PostContainer    []string `yaml:"post_container" json:"postContainer"`
	PostTitle        []string `yaml:"post_title" json:"postTitle"`
	PostBody         []string `yaml:"post_body" json:"postBody"`
	PostAuthor       []string `yaml:"post_author" json:"postAuthor"`
	CommentContainer []string `yaml:"comment_container" json:"commentContainer"`
	CommentText      []string `yaml:"comment_text" json:"commentText"`
	CommentAuthor    []string `yaml:"comment_author" json:"commentAuthor"`
	ReplyInput       []string `yaml:"reply_input" json:"replyInput"`
	Limits           Limits   `yaml:"limits" json:"limits"`
}

// Limits bounds extraction cost and DOM-readiness polling.
type Limits struct {
	MaxComments   int `yaml:"max_comments" json:"maxComments"`
	MaxDepth      int `yaml:"max_depth" json:"maxDepth"`
	ReadyAttempts int `yaml:"ready_attempts" json:"readyAttempts"`
	ReadyDelayMS  int `yaml:"ready_delay_ms" json:"readyDelayMs"`
}

// ReadyDelay is the pause between readiness polls.
func (l Limits) ReadyDelay() time.Duration {
	return time.Duration(l.ReadyDelayMS) * time.Millisecond
}

// validate checks that every required role has at least one locator.
func (s PlatformSelectors) validate() error {
	required := map[string][]string{
		"post_container":    s.PostContainer,
		"post_body":         s.PostBody,
		"comment_container": s.CommentContainer,
		"reply_input":       s.ReplyInput,
	}
	for role, list := range required {
		if len(list) == 0 {
			return fmt.Errorf("role %s has no selectors", role)
		}
	}
	if s.Limits.MaxComments < 0 || s.Limits.MaxDepth < 0 || s.Limits.ReadyAttempts < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

func (s PlatformSelectors) clone() PlatformSelectors {
	c := s
	c.PostContainer = append([]string(nil), s.PostContainer...)
	c.PostTitle = append([]string(nil), s.PostTitle...)
	c.PostBody = append([]string(nil), s.PostBody...)
	c.PostAuthor = append([]string(nil), s.PostAuthor...)
	c.CommentContainer = append([]string(nil), s.CommentContainer...)
	c.CommentText = append([]string(nil), s.CommentText...)
	c.CommentAuthor = append([]string(nil), s.CommentAuthor...)
	c.ReplyInput = append([]string(nil), s.ReplyInput...)
	return c
}

// SelectorRegistry serves per-platform selectors. Built-in defaults can be
// overridden from a YAML file that is re-read when it changes.
type SelectorRegistry struct {
	mu          sync.RWMutex
	platforms   map[domain.Platform]PlatformSelectors
	filePath    string
	lastModTime time.Time
}

// DefaultSelectors returns a registry holding the built-in selectors.
func DefaultSelectors() *SelectorRegistry {
	r := &SelectorRegistry{}
	platforms, err := parseSelectors(defaultSelectorsYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("platform: built-in selectors are invalid: %v", err))
	}
	r.platforms = platforms
	return r
}

// LoadSelectors returns a registry with the built-in selectors overridden by
// the platforms present in filePath. An empty path yields the defaults.
func LoadSelectors(filePath string) (*SelectorRegistry, error) {
	r := DefaultSelectors()
	if filePath == "" {
		return r, nil
	}
	r.filePath = filePath
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// parseSelectors decodes data and lays it over base. Platforms missing from
// data keep their base selectors.
func parseSelectors(data []byte, base map[domain.Platform]PlatformSelectors) (map[domain.Platform]PlatformSelectors, error) {
	var raw map[string]PlatformSelectors
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make(map[domain.Platform]PlatformSelectors, len(domain.Platforms))
	for p, s := range base {
		out[p] = s
	}
	for name, s := range raw {
		p := domain.Platform(name)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown platform %q", name)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[p] = s
	}
	for _, p := range domain.Platforms {
		if _, ok := out[p]; !ok {
			return nil, fmt.Errorf("no selectors for %s", p)
		}
	}
	return out, nil
}

// reload re-reads the override file. On error the current selectors stay.
func (r *SelectorRegistry) reload() error {
	info, err := os.Stat(r.filePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	r.mu.RLock()
	current := r.platforms
	r.mu.RUnlock()

	platforms, err := parseSelectors(data, current)
	if err != nil {
		return fmt.Errorf("selectors %s: %w", r.filePath, err)
	}

	r.mu.Lock()
	r.platforms = platforms
	r.lastModTime = info.ModTime()
	r.mu.Unlock()
	return nil
}

// Watch polls the override file every interval and reloads it when its
// modification time advances. It returns when ctx is done.
func (r *SelectorRegistry) Watch(ctx context.Context, interval time.Duration) {
	if r.filePath == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(r.filePath)
		if err != nil {
			continue
		}
		r.mu.RLock()
		changed := info.ModTime().After(r.lastModTime)
		r.mu.RUnlock()
		if !changed {
			continue
		}
		if err := r.reload(); err != nil {
			log.GlobalWarn("selector reload rejected", "path", r.filePath, "error", err)
			continue
		}
		log.GlobalInfo("selectors reloaded", "path", r.filePath)
	}
}

// For returns a copy of the selectors of p.
func (r *SelectorRegistry) For(p domain.Platform) PlatformSelectors {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.platforms[p].clone()
}
