package platform_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/internal/domain"
	"replykit/test/fixtures"
)

func parse(t *testing.T, url, markup string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(url, markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func selectorsFrom(t *testing.T, content string) *platform.SelectorRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := platform.LoadSelectors(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return reg
}

func TestRedditAdapter_ExtractThreadContext_Shreddit(t *testing.T) {
	// Arrange
	a := platform.NewRedditAdapter(platform.DefaultSelectors())
	doc := parse(t, fixtures.RedditURL, fixtures.GenerateRedditThread())

	// Act
	tc := a.ExtractThreadContext(doc)

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if tc.Platform != domain.PlatformReddit || tc.URL != fixtures.RedditURL {
		t.Errorf("platform/url = %s/%s", tc.Platform, tc.URL)
	}
	if tc.PostTitle != "How do you structure services?" {
		t.Errorf("PostTitle = %q", tc.PostTitle)
	}
	wantBody := "I keep ending up with a huge main package.\n\nWhat layout works for you?"
	if tc.PostBody != wantBody {
		t.Errorf("PostBody = %q, want %q", tc.PostBody, wantBody)
	}
	if tc.PostAuthor != "alice" {
		t.Errorf("PostAuthor = %q, want alice", tc.PostAuthor)
	}
	if tc.ExtractedAt == 0 {
		t.Error("ExtractedAt not set")
	}

	// t1_e is deeper than max_depth and t1_g has no text.
	wantIDs := []string{"t1_a", "t1_b", "t1_c", "t1_d", "t1_f"}
	if len(tc.Comments) != len(wantIDs) {
		t.Fatalf("got %d comments, want %d: %+v", len(tc.Comments), len(wantIDs), tc.Comments)
	}
	for i, id := range wantIDs {
		if tc.Comments[i].ID != id {
			t.Errorf("Comments[%d].ID = %q, want %q", i, tc.Comments[i].ID, id)
		}
	}

	top := tc.Comments[0]
	if top.Author != "bob" || top.Depth != 0 || top.ParentID != nil || top.Text != "Use internal/ and cmd/." {
		t.Errorf("top comment = %+v", top)
	}
	child := tc.Comments[1]
	if child.Depth != 1 || child.ParentID == nil || *child.ParentID != "t1_a" {
		t.Errorf("child comment = %+v", child)
	}
	if child.Text != "Agreed, plus a domain package." {
		t.Errorf("child text leaked nested replies: %q", child.Text)
	}
	if tc.Comments[2].Author != domain.DeletedAuthor {
		t.Errorf("deleted author = %q, want %q", tc.Comments[2].Author, domain.DeletedAuthor)
	}
	if tc.Comments[4].Author != domain.DeletedAuthor {
		t.Errorf("missing author = %q, want %q", tc.Comments[4].Author, domain.DeletedAuthor)
	}
}

func TestRedditAdapter_ExtractThreadContext_OldReddit(t *testing.T) {
	// Arrange
	a := platform.NewRedditAdapter(platform.DefaultSelectors())
	doc := parse(t, fixtures.OldRedditURL, fixtures.GenerateOldRedditThread())

	// Act
	tc := a.ExtractThreadContext(doc)

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if tc.PostTitle != "How do you structure services?" {
		t.Errorf("PostTitle = %q", tc.PostTitle)
	}
	if tc.PostBody != "Old layout body." {
		t.Errorf("PostBody = %q", tc.PostBody)
	}
	if tc.PostAuthor != "alice" {
		t.Errorf("PostAuthor = %q", tc.PostAuthor)
	}
	if len(tc.Comments) != 2 {
		t.Fatalf("got %d comments, want 2: %+v", len(tc.Comments), tc.Comments)
	}
	if c := tc.Comments[0]; c.ID != "t1_x" || c.Author != "bob" || c.Depth != 0 || c.Text != "Top level." {
		t.Errorf("top = %+v", c)
	}
	reply := tc.Comments[1]
	if reply.Depth != 1 || reply.ParentID == nil || *reply.ParentID != "t1_x" {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Author != domain.DeletedAuthor {
		t.Errorf("reply author = %q, want %q", reply.Author, domain.DeletedAuthor)
	}
}

func TestRedditAdapter_TitleFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		markup string
		want   string
	}{
		{
			name:   "document title",
			url:    fixtures.RedditURL,
			markup: fixtures.GenerateRedditTitleOnlyInDocument(),
			want:   "Why is the sky blue?",
		},
		{
			name:   "url slug",
			url:    fixtures.RedditURL,
			markup: fixtures.GenerateRedditBareDocument(),
			want:   "how do you structure services",
		},
		{
			name:   "heading",
			url:    fixtures.RedditURL,
			markup: `<html><head><title>reddit</title></head><body><h1> A  heading </h1></body></html>`,
			want:   "A heading",
		},
	}

	a := platform.NewRedditAdapter(platform.DefaultSelectors())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			tc := a.ExtractThreadContext(parse(t, tt.url, tt.markup))

			// Assert
			if tc == nil {
				t.Fatal("expected a thread context")
			}
			if tc.PostTitle != tt.want {
				t.Errorf("PostTitle = %q, want %q", tc.PostTitle, tt.want)
			}
			if tc.Comments == nil {
				t.Error("Comments should be empty, not nil")
			}
		})
	}
}

func TestRedditAdapter_NoTitle_ReturnsNil(t *testing.T) {
	// Arrange
	a := platform.NewRedditAdapter(platform.DefaultSelectors())
	doc := parse(t, "https://www.reddit.com/r/golang/comments/abc123", fixtures.GenerateRedditBareDocument())

	// Act
	tc := a.ExtractThreadContext(doc)

	// Assert
	if tc != nil {
		t.Errorf("expected nil, got %+v", tc)
	}
}

func TestRedditAdapter_LimitsCommentCount(t *testing.T) {
	// Arrange
	sel := selectorsFrom(t, `
reddit:
  post_container: ['shreddit-post']
  post_title: ['[slot="title"]']
  post_body: ['[slot="text-body"]']
  comment_container: ['shreddit-comment']
  comment_text: ['[slot="comment"]']
  reply_input: ['textarea']
  limits:
    max_comments: 2
    max_depth: 1
`)
	a := platform.NewRedditAdapter(sel)

	// Act
	tc := a.ExtractThreadContext(parse(t, fixtures.RedditURL, fixtures.GenerateRedditThread()))

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if len(tc.Comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(tc.Comments))
	}
	for _, c := range tc.Comments {
		if c.Depth > 1 {
			t.Errorf("comment %s depth %d exceeds max", c.ID, c.Depth)
		}
	}
}

func TestRedditAdapter_TruncatesLongComments(t *testing.T) {
	// Arrange
	long := strings.Repeat("word ", 400)
	markup := `<html><body><shreddit-post post-title="T"></shreddit-post>` +
		`<shreddit-comment thingid="t1_l" depth="0" author="x"><div slot="comment">` + long + `</div></shreddit-comment></body></html>`
	a := platform.NewRedditAdapter(platform.DefaultSelectors())

	// Act
	tc := a.ExtractThreadContext(parse(t, fixtures.RedditURL, markup))

	// Assert
	if tc == nil || len(tc.Comments) != 1 {
		t.Fatalf("unexpected context %+v", tc)
	}
	if n := len([]rune(strings.TrimSuffix(tc.Comments[0].Text, "..."))); n > platform.MaxCommentLength {
		t.Errorf("comment length %d exceeds %d", n, platform.MaxCommentLength)
	}
}

func TestTwitterAdapter_ExtractThreadContext_MatchesPermalink(t *testing.T) {
	// Arrange
	a := platform.NewTwitterAdapter(platform.DefaultSelectors())
	doc := parse(t, fixtures.TwitterURL, fixtures.GenerateTwitterThread())

	// Act
	tc := a.ExtractThreadContext(doc)

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if tc.PostTitle != "" {
		t.Errorf("PostTitle = %q, want empty", tc.PostTitle)
	}
	if tc.PostBody != "Generics made my code shorter." {
		t.Errorf("PostBody = %q", tc.PostBody)
	}
	if tc.PostAuthor != "gopher" {
		t.Errorf("PostAuthor = %q, want gopher", tc.PostAuthor)
	}
	wantAuthors := []string{"ann", "ben", "cat"}
	if len(tc.Comments) != len(wantAuthors) {
		t.Fatalf("got %d replies, want %d", len(tc.Comments), len(wantAuthors))
	}
	for i, author := range wantAuthors {
		c := tc.Comments[i]
		if c.Author != author || c.Depth != 0 || c.ParentID != nil {
			t.Errorf("reply %d = %+v, want author %s at depth 0", i, c, author)
		}
	}
	if tc.Comments[0].ID != "tw-1800000000000000003" {
		t.Errorf("reply id = %q", tc.Comments[0].ID)
	}
}

func TestTwitterAdapter_UnmatchedPermalink_FallsBackToFirstTweet(t *testing.T) {
	// Arrange
	a := platform.NewTwitterAdapter(platform.DefaultSelectors())
	doc := parse(t, "https://x.com/gopher/status/42", fixtures.GenerateTwitterThread())

	// Act
	tc := a.ExtractThreadContext(doc)

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if tc.PostBody != "Earlier tweet in the conversation." {
		t.Errorf("PostBody = %q", tc.PostBody)
	}
	if len(tc.Comments) != 4 {
		t.Errorf("got %d replies, want 4", len(tc.Comments))
	}
}

func TestTwitterAdapter_EmptyBody_ReturnsNil(t *testing.T) {
	a := platform.NewTwitterAdapter(platform.DefaultSelectors())

	if tc := a.ExtractThreadContext(parse(t, fixtures.TwitterURL, fixtures.GenerateTwitterNoText())); tc != nil {
		t.Errorf("expected nil, got %+v", tc)
	}
	if tc := a.ExtractThreadContext(parse(t, fixtures.TwitterURL, "<html><body></body></html>")); tc != nil {
		t.Errorf("expected nil for a page without tweets, got %+v", tc)
	}
}

func TestTwitterAdapter_CapsReplies(t *testing.T) {
	// Arrange
	sel := selectorsFrom(t, `
twitter:
  post_container: ['article[data-testid="tweet"]']
  post_body: ['[data-testid="tweetText"]']
  post_author: ['[data-testid="User-Name"]']
  comment_container: ['article[data-testid="tweet"]']
  comment_text: ['[data-testid="tweetText"]']
  reply_input: ['[contenteditable="true"]']
  limits:
    max_comments: 2
`)
	a := platform.NewTwitterAdapter(sel)

	// Act
	tc := a.ExtractThreadContext(parse(t, fixtures.TwitterURL, fixtures.GenerateTwitterThread()))

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if len(tc.Comments) != 2 {
		t.Errorf("got %d replies, want 2", len(tc.Comments))
	}
}

func TestFacebookAdapter_ExtractThreadContext_FiltersNoise(t *testing.T) {
	// Arrange
	a := platform.NewFacebookAdapter(platform.DefaultSelectors())
	doc := parse(t, fixtures.FacebookURL, fixtures.GenerateFacebookPost())

	// Act
	tc := a.ExtractThreadContext(doc)

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if tc.PostBody != "Meetup this Friday at 6pm!" {
		t.Errorf("PostBody = %q", tc.PostBody)
	}
	if tc.PostAuthor != "Gophers Group" {
		t.Errorf("PostAuthor = %q", tc.PostAuthor)
	}
	// The emoji-only comment is dropped.
	if len(tc.Comments) != 2 {
		t.Fatalf("got %d comments, want 2: %+v", len(tc.Comments), tc.Comments)
	}
	first, reply := tc.Comments[0], tc.Comments[1]
	if first.Author != "Dana Lee" || first.Text != "Count me in" || first.Depth != 0 {
		t.Errorf("first = %+v", first)
	}
	if reply.Author != "Sam Roe" || reply.Text != "See you there" || reply.Depth != 1 {
		t.Errorf("reply = %+v", reply)
	}
	if reply.ParentID == nil || *reply.ParentID != first.ID {
		t.Errorf("reply parent = %v, want %s", reply.ParentID, first.ID)
	}
}

func TestFacebookAdapter_NoiseOnlyBody_ReturnsNil(t *testing.T) {
	a := platform.NewFacebookAdapter(platform.DefaultSelectors())

	tc := a.ExtractThreadContext(parse(t, fixtures.FacebookURL, fixtures.GenerateFacebookNoiseOnly()))

	if tc != nil {
		t.Errorf("expected nil, got %+v", tc)
	}
}

func TestFacebookAdapter_BareNumbersAreContent(t *testing.T) {
	// Arrange
	markup := `<html><body><div role="article">
<h2><strong><a role="link" href="/gophers">Gophers Group</a></strong></h2>
<div data-ad-preview="message"><div dir="auto"><span>2024</span></div><span>12 comments</span></div>
<ul><li><div role="article" aria-label="Comment by Dana Lee 2 hours ago">
<div dir="auto" style="text-align: start;">100</div>
</div></li></ul>
</div></body></html>`
	a := platform.NewFacebookAdapter(platform.DefaultSelectors())

	// Act
	tc := a.ExtractThreadContext(parse(t, fixtures.FacebookURL, markup))

	// Assert
	if tc == nil {
		t.Fatal("expected a thread context")
	}
	if tc.PostBody != "2024" {
		t.Errorf("PostBody = %q, want %q", tc.PostBody, "2024")
	}
	if len(tc.Comments) != 1 || tc.Comments[0].Text != "100" {
		t.Errorf("comments = %+v", tc.Comments)
	}
}

func TestFacebookAdapter_CanHandle(t *testing.T) {
	a := platform.NewFacebookAdapter(platform.DefaultSelectors())

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.facebook.com/gophers/posts/pfbid0123", true},
		{"https://www.facebook.com/permalink.php?story_fbid=1&id=2", true},
		{"https://www.facebook.com/permalink.php?story_fbid=123", true},
		{"https://WWW.Facebook.COM/gophers/posts/pfbid0123", true},
		{"https://m.facebook.com/story.php?story_fbid=1&id=2", true},
		{"https://www.facebook.com/groups/golang/posts/123/", true},
		{"https://www.facebook.com/groups/golang/permalink/123/", true},
		{"https://www.facebook.com/photo/?fbid=1", true},
		{"https://www.facebook.com/photo.php?fbid=1", true},
		{"https://www.facebook.com/watch/?v=1", true},
		{"https://www.facebook.com/reel/123", true},
		{"https://www.facebook.com/gophers/videos/123", true},
		{"https://www.facebook.com/gophers", false},
		{"https://www.facebook.com/", false},
		{"https://notfacebook.com/gophers/posts/1", false},
	}

	for _, tt := range tests {
		if got := a.CanHandle(tt.url); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestAdapters_CanHandle_RedditAndTwitter(t *testing.T) {
	sel := platform.DefaultSelectors()
	reddit := platform.NewRedditAdapter(sel)
	twitter := platform.NewTwitterAdapter(sel)

	tests := []struct {
		adapter platform.Adapter
		url     string
		want    bool
	}{
		{reddit, "https://www.reddit.com/r/test/comments/abc123/post_title", true},
		{reddit, "https://WWW.REDDIT.COM/r/test/comments/abc", true},
		{reddit, "HTTPS://Old.Reddit.com/r/go/comments/x1/", true},
		{reddit, "https://reddit.com/r/go/comments/x1/t/", true},
		{reddit, "https://np.reddit.com/r/go/comments/x1", true},
		{reddit, "https://new.reddit.com/r/go/comments/x1/", true},
		{reddit, "https://www.reddit.com/r/go/", false},
		{reddit, "https://www.reddit.com/user/someone/comments/", false},
		{twitter, "https://mobile.twitter.com/a/status/1", true},
		{twitter, "https://x.com/a/status/123?s=20", true},
		{twitter, "https://x.com/a/status/abc", false},
		{twitter, "https://x.com/home", false},
		{twitter, "https://twitter.com/explore", false},
		{twitter, "https://X.COM/a/status/1", true},
		{twitter, "https://twitter.com/user/status/123456", true},
	}

	for _, tt := range tests {
		if got := tt.adapter.CanHandle(tt.url); got != tt.want {
			t.Errorf("%s.CanHandle(%q) = %v, want %v", tt.adapter.Platform(), tt.url, got, tt.want)
		}
	}
}

func TestAdapter_FindReplyInput_SkipsHiddenCandidates(t *testing.T) {
	// Arrange: textarea is listed first but sits in a hidden form.
	sel := selectorsFrom(t, `
reddit:
  post_container: ['shreddit-post']
  post_body: ['p']
  comment_container: ['shreddit-comment']
  reply_input: ['textarea', '[contenteditable="true"]']
`)
	a := platform.NewRedditAdapter(sel)
	doc := parse(t, fixtures.RedditURL, fixtures.GenerateReplyBoxes())

	// Act
	el := a.FindReplyInput(doc)

	// Assert
	if el == nil {
		t.Fatal("expected a reply input")
	}
	if id, _ := el.Attr("id"); id != "visible-box" {
		t.Errorf("got #%s, want #visible-box", id)
	}
}

func TestAdapter_FindReplyInput_DefaultSelectors(t *testing.T) {
	sel := platform.DefaultSelectors()
	for _, a := range platform.Default(sel).All() {
		t.Run(string(a.Platform()), func(t *testing.T) {
			doc := parse(t, "https://example.com", fixtures.GenerateReplyBoxes())

			el := a.FindReplyInput(doc)

			if el == nil {
				t.Fatal("expected a reply input")
			}
			if id, _ := el.Attr("id"); id != "visible-box" {
				t.Errorf("got #%s, want #visible-box", id)
			}
		})
	}
}

func TestAdapter_FindReplyInput_PrefersFocusedElement(t *testing.T) {
	// Arrange
	markup := `<html><body>
<div id="box" contenteditable="true" role="textbox"></div>
<textarea id="focused" data-rk-focused="true"></textarea>
</body></html>`
	a := platform.NewRedditAdapter(platform.DefaultSelectors())
	doc := parse(t, fixtures.RedditURL, markup)

	// Act
	el := a.FindReplyInput(doc)

	// Assert
	if el == nil {
		t.Fatal("expected a reply input")
	}
	if id, _ := el.Attr("id"); id != "focused" {
		t.Errorf("got #%s, want #focused", id)
	}
}

func TestAdapter_FindReplyInput_NoneVisible(t *testing.T) {
	a := platform.NewTwitterAdapter(platform.DefaultSelectors())
	doc := parse(t, fixtures.TwitterURL, `<html><body><textarea hidden></textarea></body></html>`)

	if el := a.FindReplyInput(doc); el != nil {
		t.Errorf("expected nil, got <%s>", el.Tag())
	}
}

func TestAdapter_SetInputText(t *testing.T) {
	a := platform.NewFacebookAdapter(platform.DefaultSelectors())

	t.Run("append to contenteditable", func(t *testing.T) {
		// Arrange
		doc := parse(t, fixtures.FacebookURL, fixtures.GenerateReplyBoxes())
		el := doc.First("#visible-box")

		// Act
		err := a.SetInputText(el, " and more", true)

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := a.GetInputText(el); got != "draft text and more" {
			t.Errorf("text = %q", got)
		}
		var types []dom.EventType
		for _, ev := range doc.Events() {
			types = append(types, ev.Type)
		}
		if len(types) != 2 || types[0] != dom.EventInput || types[1] != dom.EventChange {
			t.Errorf("events = %v, want [input change]", types)
		}
	})

	t.Run("replace textarea value", func(t *testing.T) {
		// Arrange
		doc := parse(t, fixtures.FacebookURL, `<html><body><textarea id="t">old</textarea></body></html>`)
		el := doc.First("#t")

		// Act
		err := a.SetInputText(el, "new text", false)

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := a.GetInputText(el); got != "new text" {
			t.Errorf("text = %q, want new text", got)
		}
	})

	t.Run("nil element", func(t *testing.T) {
		if err := a.SetInputText(nil, "x", false); err != domain.ErrNoInputField {
			t.Errorf("err = %v, want ErrNoInputField", err)
		}
	})
}
