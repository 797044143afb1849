package platform

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"replykit/internal/adapters/dom"
	"replykit/internal/domain"
	"replykit/internal/textwalk"
)

var redditSlug = regexp.MustCompile(`/comments/[^/]+/([^/?#]+)`)

// RedditAdapter reads Reddit comment pages across the shreddit, redesign
// and old.reddit layouts.
type RedditAdapter struct {
	base
}

// NewRedditAdapter returns an adapter reading selectors from selectors.
func NewRedditAdapter(selectors *SelectorRegistry) *RedditAdapter {
	return &RedditAdapter{
		base: newBase(domain.PlatformReddit, selectors,
			`^(?i:https?://(?:(?:www|old|new|np)\.)?reddit\.com)/r/[^/]+/comments/[^/?#]+`,
		),
	}
}

// ExtractThreadContext returns nil when no title can be resolved.
func (a *RedditAdapter) ExtractThreadContext(doc *dom.Document) *domain.ThreadContext {
	return a.guard(doc, func() *domain.ThreadContext {
		sel := a.Selectors()
		post := doc.First(sel.PostContainer...)

		title := a.title(doc, post, sel)
		if title == "" {
			a.logger().Warn("no post title found", "url", doc.URL())
			return nil
		}

		var body string
		if el := scopedFirst(doc, post, sel.PostBody); el != nil {
			body = el.InnerText()
		}

		author := ""
		if post != nil {
			author = post.AttrOr("author", "")
		}
		if author == "" {
			if el := scopedFirst(doc, post, sel.PostAuthor); el != nil {
				author = el.Text()
			}
		}
		author = strings.TrimPrefix(textwalk.NormalizeSpace(author), "u/")

		return a.newContext(doc, title, body, author, a.comments(doc, sel))
	})
}

// title resolves the post title from the most to the least specific source.
func (a *RedditAdapter) title(doc *dom.Document, post *dom.Element, sel PlatformSelectors) string {
	if post != nil {
		if t := textwalk.NormalizeSpace(post.AttrOr("post-title", "")); t != "" {
			return t
		}
		if el := post.First(sel.PostTitle...); el != nil {
			if t := textwalk.NormalizeSpace(el.Text()); t != "" {
				return t
			}
		}
	}
	if el := doc.First(sel.PostTitle...); el != nil {
		if t := textwalk.NormalizeSpace(el.Text()); t != "" {
			return t
		}
	}
	if el := doc.First("h1"); el != nil {
		if t := textwalk.NormalizeSpace(el.Text()); t != "" {
			return t
		}
	}
	if t := titleFromDocument(doc.Title()); t != "" {
		return t
	}
	return titleFromSlug(doc.URL())
}

// titleFromDocument takes the first segment of a "Title : r/sub" style
// document title. A bare site name is not a title.
func titleFromDocument(s string) string {
	for _, sep := range []string{" : ", " - ", " | "} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
			break
		}
	}
	s = textwalk.NormalizeSpace(s)
	if strings.EqualFold(s, "reddit") {
		return ""
	}
	return s
}

func titleFromSlug(rawURL string) string {
	m := redditSlug.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	slug, err := url.PathUnescape(m[1])
	if err != nil {
		slug = m[1]
	}
	return textwalk.NormalizeSpace(strings.ReplaceAll(slug, "_", " "))
}

func (a *RedditAdapter) comments(doc *dom.Document, sel PlatformSelectors) []domain.Comment {
	containers, containerSel := firstAll(doc, sel.CommentContainer)
	limits := sel.Limits
	ids := newIDGen("rd")

	assigned := make(map[*html.Node]string, len(containers))
	byNative := make(map[string]string)

	var out []domain.Comment
	for _, c := range containers {
		if limits.MaxComments > 0 && len(out) >= limits.MaxComments {
			break
		}

		depth := depthOf(c, containerSel)
		if v, ok := c.Attr("depth"); ok {
			if d, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && d >= 0 {
				depth = d
			}
		}
		if depth > limits.MaxDepth {
			continue
		}

		var text string
		if el := ownFirst(c, containerSel, sel.CommentText); el != nil {
			text = textwalk.Truncate(el.InnerText(), MaxCommentLength)
		}
		if text == "" {
			continue
		}

		author := c.AttrOr("author", "")
		if author == "" {
			author = c.AttrOr("data-author", "")
		}
		if author == "" {
			if el := ownFirst(c, containerSel, sel.CommentAuthor); el != nil {
				author = el.Text()
			}
		}

		native := c.AttrOr("thingid", c.AttrOr("data-fullname", ""))
		id := ids.claim(native)
		if native != "" {
			byNative[native] = id
		}
		assigned[c.Node()] = id

		out = append(out, domain.Comment{
			ID:       id,
			Author:   authorOrDeleted(strings.TrimPrefix(author, "u/")),
			Text:     text,
			ParentID: a.parentID(c, containerSel, byNative, assigned),
			Depth:    depth,
		})
	}
	return out
}

// parentID resolves the parent comment among those already extracted in
// this pass. Post-level parents (t3_ ids) yield nil.
func (a *RedditAdapter) parentID(c *dom.Element, containerSel string, byNative map[string]string, assigned map[*html.Node]string) *string {
	if native := strings.TrimSpace(c.AttrOr("parentid", "")); native != "" {
		if id, ok := byNative[native]; ok {
			return &id
		}
		return nil
	}
	parent := enclosing(c, containerSel)
	if parent == nil {
		return nil
	}
	if id, ok := assigned[parent.Node()]; ok {
		return &id
	}
	return nil
}

// scopedFirst searches inside scope when it is set and matches, otherwise
// the whole document.
func scopedFirst(doc *dom.Document, scope *dom.Element, selectors []string) *dom.Element {
	if scope != nil {
		if el := scope.First(selectors...); el != nil {
			return el
		}
	}
	return doc.First(selectors...)
}
