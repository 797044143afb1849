package platform

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"replykit/internal/adapters/dom"
	"replykit/internal/domain"
	"replykit/internal/textwalk"
)

var (
	fbCount    = regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?\s*(?:[km]|(?:[km]\s+)?(?:likes?|comments?|shares?|reactions?|replies|reply|views?|others?))$`)
	fbRelative = regexp.MustCompile(`(?i)^(?:\d+\s*(?:s|m|h|d|w|y|mins?|hrs?|wks?)|\d+\s+(?:seconds?|minutes?|hours?|days?|weeks?|months?|years?)(?:\s+ago)?|just now|yesterday(?:\s+at\s+.*)?)$`)
	fbLabel    = regexp.MustCompile(`^(Comment|Reply) by (.+?)(?: to .+?(?:'s|’s) (?:comment|reply))?(?: (?:about )?(?:an?|\d+) \w+ ago| just now| yesterday)?$`)
)

var fbUIWords = map[string]bool{
	"like": true, "reply": true, "share": true, "comment": true, "follow": true,
	"see more": true, "see less": true, "see translation": true, "edited": true,
	"author": true, "top fan": true, "most relevant": true, "all reactions:": true,
	"view more comments": true, "view more replies": true, "write a comment…": true,
	"write a comment...": true, "send": true, "hide": true, "·": true, "•": true,
}

// facebookNoise reports whether a text fragment is page chrome rather than
// post or comment content.
func facebookNoise(s string) bool {
	if fbUIWords[strings.ToLower(s)] {
		return true
	}
	if fbCount.MatchString(s) || fbRelative.MatchString(s) {
		return true
	}
	return textwalk.IsEmojiOnly(s)
}

// FacebookAdapter reads Facebook post, group, photo and video pages.
type FacebookAdapter struct {
	base
}

// NewFacebookAdapter returns an adapter reading selectors from selectors.
func NewFacebookAdapter(selectors *SelectorRegistry) *FacebookAdapter {
	const host = `^(?i:https?://(?:(?:www|m|web|mbasic)\.)?facebook\.com)`
	return &FacebookAdapter{
		base: newBase(domain.PlatformFacebook, selectors,
			host+`/[^/?#]+/posts/[^/?#]+`,
			host+`/permalink\.php\?(?:.*&)?story_fbid=`,
			host+`/story\.php\?`,
			host+`/groups/[^/?#]+/(?:posts|permalink)/[^/?#]+`,
			host+`/photo(?:\.php)?/?\?`,
			host+`/photos?/`,
			host+`/[^/?#]+/photos/`,
			host+`/watch/?\?v=`,
			host+`/reel/\d+`,
			host+`/[^/?#]+/videos/`,
		),
	}
}

// ExtractThreadContext returns nil when the post body is empty after noise
// filtering.
func (a *FacebookAdapter) ExtractThreadContext(doc *dom.Document) *domain.ThreadContext {
	return a.guard(doc, func() *domain.ThreadContext {
		sel := a.Selectors()
		post := a.post(doc, sel)

		var body string
		if el := scopedFirst(doc, post, sel.PostBody); el != nil {
			body = visibleText(el)
		}
		if body == "" {
			a.logger().Warn("post body empty after filtering", "url", doc.URL())
			return nil
		}

		var title string
		if el := doc.First(sel.PostTitle...); el != nil {
			title = textwalk.NormalizeSpace(el.Text())
		}
		var author string
		if el := scopedFirst(doc, post, sel.PostAuthor); el != nil {
			author = textwalk.NormalizeSpace(el.Text())
		}

		return a.newContext(doc, title, body, author, a.comments(doc, post, sel))
	})
}

// post returns the first post container that is not itself a comment.
func (a *FacebookAdapter) post(doc *dom.Document, sel PlatformSelectors) *dom.Element {
	for _, s := range sel.PostContainer {
		for _, el := range doc.Find(s) {
			if !isFacebookComment(el) {
				return el
			}
		}
	}
	return nil
}

func isFacebookComment(el *dom.Element) bool {
	return fbLabel.MatchString(el.AttrOr("aria-label", ""))
}

func (a *FacebookAdapter) comments(doc *dom.Document, post *dom.Element, sel PlatformSelectors) []domain.Comment {
	containers, containerSel := firstAll(doc, sel.CommentContainer)
	limits := sel.Limits
	ids := newIDGen("fb")
	assigned := make(map[*html.Node]string, len(containers))

	var out []domain.Comment
	for _, c := range containers {
		if limits.MaxComments > 0 && len(out) >= limits.MaxComments {
			break
		}
		if post != nil && c.Same(post) {
			continue
		}

		label := fbLabel.FindStringSubmatch(c.AttrOr("aria-label", ""))
		depth := depthOf(c, containerSel)
		if depth == 0 && label != nil && label[1] == "Reply" {
			depth = 1
		}
		if depth > limits.MaxDepth {
			continue
		}

		var text string
		if el := ownFirst(c, containerSel, sel.CommentText); el != nil {
			text = textwalk.Truncate(visibleText(el), MaxCommentLength)
		}
		if text == "" {
			continue
		}

		author := ""
		if label != nil {
			author = label[2]
		} else if el := ownFirst(c, containerSel, sel.CommentAuthor); el != nil {
			author = el.Text()
		}

		id := ids.claim("")
		assigned[c.Node()] = id

		var parentID *string
		if parent := enclosing(c, containerSel); parent != nil {
			if pid, ok := assigned[parent.Node()]; ok {
				parentID = &pid
			}
		}

		out = append(out, domain.Comment{
			ID:       id,
			Author:   authorOrDeleted(author),
			Text:     text,
			ParentID: parentID,
			Depth:    depth,
		})
	}
	return out
}

// visibleText aggregates the non-noise text under el. Facebook splits
// content into many small spans, so rendered text is rebuilt from them.
func visibleText(el *dom.Element) string {
	return textwalk.Join(el.Node(), htmlChildren, htmlText, facebookNoise)
}

func htmlChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "script", "style", "noscript", "svg":
				continue
			}
			if v, _ := attr(c, "aria-hidden"); v == "true" {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func htmlText(n *html.Node) (string, bool) {
	if n.Type == html.TextNode {
		return n.Data, true
	}
	return "", false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
