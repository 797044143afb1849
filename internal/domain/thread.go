// Package domain contains the core entities shared by adapters, the cache
// and the use cases.
package domain

// Platform identifies a supported social-media site.
type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformTwitter  Platform = "twitter"
	PlatformFacebook Platform = "facebook"
)

// Platforms lists every supported platform in registration order.
var Platforms = []Platform{PlatformReddit, PlatformTwitter, PlatformFacebook}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformReddit, PlatformTwitter, PlatformFacebook:
		return true
	}
	return false
}

// DeletedAuthor is used when a comment has no resolvable author.
const DeletedAuthor = "[deleted]"

// ThreadContext is one extracted post with its comments. It is built fresh
// for every extraction and not modified afterwards.
type ThreadContext struct {
	Platform    Platform  `json:"platform"`
	URL         string    `json:"url"`
	PostTitle   string    `json:"postTitle"`
	PostBody    string    `json:"postBody"`
	PostAuthor  string    `json:"postAuthor,omitempty"`
	Comments    []Comment `json:"comments"`
	ExtractedAt int64     `json:"extractedAt"`
}

// HasContent reports whether the title, the body or the comment list is
// non-empty.
func (t *ThreadContext) HasContent() bool {
	return t.PostTitle != "" || t.PostBody != "" || len(t.Comments) > 0
}

// Comment is one reply node. ParentID is a relation to another comment of
// the same extraction pass, not an ownership link.
type Comment struct {
	ID       string  `json:"id"`
	Author   string  `json:"author"`
	Text     string  `json:"text"`
	ParentID *string `json:"parentId"`
	Depth    int     `json:"depth"`
}

// Suggestion is one candidate reply returned by the AI provider.
type Suggestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Analysis is the result of analyzing a thread for a tone.
type Analysis struct {
	Suggestions []Suggestion `json:"suggestions"`
	Summary     string       `json:"summary"`
	FromCache   bool         `json:"fromCache"`
}

// Replies is what the AI provider returns for a thread.
type Replies struct {
	Suggestions []string
	Summary     string
}
