package platform

import (
	"testing"

	"replykit/internal/adapters/dom"
	"replykit/internal/domain"
)

func TestBase_Guard_RecoversPanic(t *testing.T) {
	// Arrange
	b := newBase(domain.PlatformReddit, DefaultSelectors())
	doc, err := dom.Parse("https://www.reddit.com/r/x/comments/1", "<html></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Act
	tc := b.guard(doc, func() *domain.ThreadContext {
		var el *dom.Element
		_ = el.Tag()
		return &domain.ThreadContext{}
	})

	// Assert
	if tc != nil {
		t.Errorf("expected nil after panic, got %+v", tc)
	}
}

func TestIDGen_Claim_UniqueWithinPass(t *testing.T) {
	g := newIDGen("rd")

	ids := []string{g.claim("t1_a"), g.claim("t1_a"), g.claim(""), g.claim("rd-c3"), g.claim("")}

	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q in %v", id, ids)
		}
		seen[id] = true
	}
	if ids[0] != "t1_a" {
		t.Errorf("first id = %q, want native t1_a", ids[0])
	}
}

func TestFacebookNoise(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Like", true},
		{"See more", true},
		{"12 comments", true},
		{"1.2K", true},
		{"1.2K likes", true},
		{"2 shares", true},
		{"3h", true},
		{"5 minutes ago", true},
		{"Just now", true},
		{"😂👍", true},
		{"Meetup this Friday", false},
		{"3 hours of debugging later", false},
		{"2024", false},
		{"100", false},
		{"3.14", false},
	}

	for _, tt := range tests {
		if got := facebookNoise(tt.in); got != tt.want {
			t.Errorf("facebookNoise(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFacebookLabel_ParsesAuthor(t *testing.T) {
	tests := []struct {
		label, kind, author string
	}{
		{"Comment by Dana Lee 2 hours ago", "Comment", "Dana Lee"},
		{"Reply by Sam Roe to Dana Lee's comment 1 hour ago", "Reply", "Sam Roe"},
		{"Comment by Solo", "Comment", "Solo"},
	}

	for _, tt := range tests {
		m := fbLabel.FindStringSubmatch(tt.label)
		if m == nil {
			t.Errorf("%q did not match", tt.label)
			continue
		}
		if m[1] != tt.kind || m[2] != tt.author {
			t.Errorf("%q -> (%q, %q), want (%q, %q)", tt.label, m[1], m[2], tt.kind, tt.author)
		}
	}
}
