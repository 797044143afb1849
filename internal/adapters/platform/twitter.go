package platform

import (
	"regexp"

	"replykit/internal/adapters/dom"
	"replykit/internal/domain"
	"replykit/internal/textwalk"
)

var (
	tweetStatus = regexp.MustCompile(`/status(?:es)?/(\d+)`)
	tweetUser   = regexp.MustCompile(`^(?i:https?)://[^/]+/([^/?#]+)/status`)
	tweetHandle = regexp.MustCompile(`@([A-Za-z0-9_]{1,15})`)
)

// TwitterAdapter reads single-tweet pages on twitter.com and x.com.
type TwitterAdapter struct {
	base
}

// NewTwitterAdapter returns an adapter reading selectors from selectors.
func NewTwitterAdapter(selectors *SelectorRegistry) *TwitterAdapter {
	return &TwitterAdapter{
		base: newBase(domain.PlatformTwitter, selectors,
			`^(?i:https?://(?:(?:www|mobile)\.)?(?:twitter|x)\.com)/[^/?#]+/status(?:es)?/\d+`,
		),
	}
}

// ExtractThreadContext treats the article whose permalink matches the
// status id in the URL as the post and every later article as a reply.
func (a *TwitterAdapter) ExtractThreadContext(doc *dom.Document) *domain.ThreadContext {
	return a.guard(doc, func() *domain.ThreadContext {
		sel := a.Selectors()
		articles, _ := firstAll(doc, sel.PostContainer)
		if len(articles) == 0 {
			a.logger().Warn("no tweets on page", "url", doc.URL())
			return nil
		}

		main := mainTweetIndex(articles, statusID(doc.URL()))
		if main < 0 {
			a.logger().Warn("main tweet not matched by permalink, using first tweet", "url", doc.URL())
			main = 0
		}
		post := articles[main]

		var body string
		if el := post.First(sel.PostBody...); el != nil {
			body = el.InnerText()
		}
		if body == "" {
			a.logger().Warn("main tweet has no text", "url", doc.URL())
			return nil
		}

		author := ""
		if el := post.First(sel.PostAuthor...); el != nil {
			author = handleOf(el.Text())
		}
		if author == "" {
			if m := tweetUser.FindStringSubmatch(doc.URL()); m != nil && m[1] != "i" {
				author = m[1]
			}
		}

		return a.newContext(doc, "", body, author, a.replies(articles[main+1:], sel))
	})
}

func (a *TwitterAdapter) replies(articles []*dom.Element, sel PlatformSelectors) []domain.Comment {
	ids := newIDGen("tw")
	var out []domain.Comment
	for _, art := range articles {
		if sel.Limits.MaxComments > 0 && len(out) >= sel.Limits.MaxComments {
			break
		}
		el := art.First(sel.CommentText...)
		if el == nil {
			continue
		}
		text := textwalk.Truncate(el.InnerText(), MaxCommentLength)
		if text == "" {
			continue
		}

		author := ""
		if el := art.First(sel.CommentAuthor...); el != nil {
			author = handleOf(el.Text())
		}

		out = append(out, domain.Comment{
			ID:     ids.claim(permalinkID(art)),
			Author: authorOrDeleted(author),
			Text:   text,
			Depth:  0,
		})
	}
	return out
}

func statusID(rawURL string) string {
	if m := tweetStatus.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// mainTweetIndex returns the index of the article linking to its own
// status id, or -1.
func mainTweetIndex(articles []*dom.Element, id string) int {
	if id == "" {
		return -1
	}
	want := regexp.MustCompile(`/status/` + id + `(?:$|[?#])`)
	for i, art := range articles {
		for _, link := range art.Find(`a[href*="/status/` + id + `"]`) {
			if href := link.AttrOr("href", ""); want.MatchString(href) {
				return i
			}
		}
	}
	return -1
}

// permalinkID returns the status id of the article's timestamp link.
func permalinkID(art *dom.Element) string {
	for _, t := range art.Find("a[href] time") {
		if link := t.Closest("a[href]"); link != nil {
			if id := statusID(link.AttrOr("href", "")); id != "" {
				return "tw-" + id
			}
		}
	}
	return ""
}

// handleOf extracts "name" from a display block such as "Jane Doe @name · 2h".
func handleOf(s string) string {
	if m := tweetHandle.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return textwalk.NormalizeSpace(s)
}
