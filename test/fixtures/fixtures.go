// Package fixtures provides HTML page fixtures for adapter and use case tests.
package fixtures

// Page URLs matching the fixtures below.
const (
	RedditURL    = "https://www.reddit.com/r/golang/comments/abc123/how_do_you_structure_services/"
	OldRedditURL = "https://old.reddit.com/r/golang/comments/abc123/how_do_you_structure_services/"
	TwitterURL   = "https://x.com/gopher/status/1800000000000000002"
	FacebookURL  = "https://www.facebook.com/gophers/posts/pfbid0123"
)

// GenerateRedditThread creates a shreddit page with a nested comment tree.
// The composer has a hidden textarea and a visible contenteditable.
func GenerateRedditThread() string {
	return `
<!DOCTYPE html>
<html>
<head><title>How do you structure services? : r/golang</title></head>
<body>
<shreddit-post post-title="How do you structure services?" author="alice" id="t3_abc123">
    <h1 slot="title">How do you structure services?</h1>
    <div slot="text-body">
        <p>I keep ending up with a huge main package.</p>
        <p>What layout works for you?</p>
    </div>
</shreddit-post>
<shreddit-composer>
    <textarea name="text" hidden></textarea>
    <div contenteditable="true" role="textbox" aria-label="Add a comment"></div>
</shreddit-composer>
<shreddit-comment thingid="t1_a" parentid="t3_abc123" depth="0" author="bob">
    <div slot="comment"><p>Use internal/ and cmd/.</p></div>
    <shreddit-comment thingid="t1_b" parentid="t1_a" depth="1" author="carol">
        <div slot="comment"><p>Agreed, plus a domain package.</p></div>
        <shreddit-comment thingid="t1_c" parentid="t1_b" depth="2" author="[deleted]">
            <div slot="comment"><p>Removed context.</p></div>
            <shreddit-comment thingid="t1_d" parentid="t1_c" depth="3" author="dave">
                <div slot="comment"><p>Deep reply.</p></div>
                <shreddit-comment thingid="t1_e" parentid="t1_d" depth="4" author="erin">
                    <div slot="comment"><p>Too deep to keep.</p></div>
                </shreddit-comment>
            </shreddit-comment>
        </shreddit-comment>
    </shreddit-comment>
</shreddit-comment>
<shreddit-comment thingid="t1_f" parentid="t3_abc123" depth="0">
    <div slot="comment"><p>Flat is fine for small tools.</p></div>
</shreddit-comment>
<shreddit-comment thingid="t1_g" parentid="t3_abc123" depth="0" author="gina">
    <div slot="comment"></div>
</shreddit-comment>
</body>
</html>
`
}

// GenerateOldRedditThread creates an old.reddit page where comment depth
// comes only from nesting.
func GenerateOldRedditThread() string {
	return `
<!DOCTYPE html>
<html>
<head><title>How do you structure services? : golang</title></head>
<body>
<div id="siteTable">
    <div class="thing link" data-author="alice">
        <p class="title"><a class="title" href="/r/golang/comments/abc123/">How do you structure services?</a></p>
        <p class="tagline">submitted by <a class="author">alice</a></p>
        <div class="expando"><div class="usertext-body"><div class="md"><p>Old layout body.</p></div></div></div>
    </div>
</div>
<div class="commentarea">
    <div class="sitetable nestedlisting">
        <div class="thing comment" data-fullname="t1_x" data-author="bob">
            <div class="entry">
                <a class="author">bob</a>
                <div class="usertext-body"><div class="md"><p>Top level.</p></div></div>
            </div>
            <div class="child"><div class="sitetable">
                <div class="thing comment" data-fullname="t1_y">
                    <div class="entry">
                        <div class="usertext-body"><div class="md"><p>Nested reply.</p></div></div>
                    </div>
                </div>
            </div></div>
        </div>
    </div>
</div>
<div class="usertext-edit"><textarea name="text"></textarea></div>
</body>
</html>
`
}

// GenerateRedditTitleOnlyInDocument creates a page whose title is only in
// the document title.
func GenerateRedditTitleOnlyInDocument() string {
	return `
<!DOCTYPE html>
<html>
<head><title>Why is the sky blue? : r/askscience</title></head>
<body><main><p>loading</p></main></body>
</html>
`
}

// GenerateRedditBareDocument creates a page with no title source except the
// URL.
func GenerateRedditBareDocument() string {
	return `
<!DOCTYPE html>
<html>
<head><title>reddit</title></head>
<body><main></main></body>
</html>
`
}

// GenerateTwitterThread creates a conversation page: a parent tweet above
// the main tweet, followed by three replies.
func GenerateTwitterThread() string {
	return `
<!DOCTYPE html>
<html>
<head><title>Gopher on X</title></head>
<body>
<main>
<article data-testid="tweet">
    <div data-testid="User-Name"><span>Parent</span><a href="/parent">@parent</a></div>
    <a href="/parent/status/1800000000000000001"><time datetime="2026-01-01T10:00:00Z">10:00</time></a>
    <div data-testid="tweetText" lang="en">Earlier tweet in the conversation.</div>
</article>
<article data-testid="tweet">
    <div data-testid="User-Name"><span>Go Gopher</span><a href="/gopher">@gopher</a></div>
    <a href="/gopher/status/1800000000000000002"><time datetime="2026-01-01T11:00:00Z">11:00</time></a>
    <a href="/gopher/status/1800000000000000002/analytics">Views</a>
    <div data-testid="tweetText" lang="en">Generics made my code <span>shorter</span>.</div>
</article>
<article data-testid="tweet">
    <div data-testid="User-Name"><span>Ann</span><a href="/ann">@ann</a> · 1h</div>
    <a href="/ann/status/1800000000000000003"><time datetime="2026-01-01T12:00:00Z">12:00</time></a>
    <div data-testid="tweetText" lang="en">Same here.</div>
</article>
<article data-testid="tweet">
    <div data-testid="User-Name"><span>Ben</span><a href="/ben">@ben</a></div>
    <a href="/ben/status/1800000000000000004"><time datetime="2026-01-01T12:05:00Z">12:05</time></a>
    <div data-testid="tweetText" lang="en">Not for me.</div>
</article>
<article data-testid="tweet">
    <div data-testid="User-Name"><span>Cat</span><a href="/cat">@cat</a></div>
    <a href="/cat/status/1800000000000000005"><time datetime="2026-01-01T12:10:00Z">12:10</time></a>
    <div data-testid="tweetText" lang="en">Depends on the codebase.</div>
</article>
<div class="composer">
    <div data-testid="tweetTextarea_0" contenteditable="true" role="textbox"></div>
</div>
</main>
</body>
</html>
`
}

// GenerateTwitterNoText creates a page whose tweets carry no text.
func GenerateTwitterNoText() string {
	return `
<!DOCTYPE html>
<html>
<body>
<article data-testid="tweet">
    <a href="/gopher/status/1800000000000000002"><time>11:00</time></a>
    <img src="https://example.com/photo.jpg" alt="">
</article>
</body>
</html>
`
}

// GenerateFacebookPost creates a post with UI chrome mixed into its text and
// a comment with one reply.
func GenerateFacebookPost() string {
	return `
<!DOCTYPE html>
<html>
<head><title>Gophers | Facebook</title></head>
<body>
<div role="main">
<div role="article">
    <h2><strong><a role="link" href="/gophers">Gophers Group</a></strong></h2>
    <span>3h</span>
    <div data-ad-preview="message">
        <div dir="auto"><span>Meetup</span> <span>this Friday</span> <span>at 6pm!</span></div>
        <span>See more</span>
        <span>👍❤️</span>
    </div>
    <div><span>42</span><span>12 comments</span><span>Like</span><span>Comment</span><span>Share</span></div>
    <ul>
        <li>
        <div role="article" aria-label="Comment by Dana Lee 2 hours ago">
            <a role="link" href="/dana"><span>Dana Lee</span></a>
            <div dir="auto" style="text-align: start;">Count me in</div>
            <span>Like</span><span>Reply</span><span>2h</span>
            <ul><li>
            <div role="article" aria-label="Reply by Sam Roe to Dana Lee's comment 1 hour ago">
                <a role="link" href="/sam"><span>Sam Roe</span></a>
                <div dir="auto" style="text-align: start;">See you there</div>
                <span>1h</span>
            </div>
            </li></ul>
        </div>
        </li>
        <li>
        <div role="article" aria-label="Comment by Lee Park 1 hour ago">
            <div dir="auto" style="text-align: start;">🎉🎉</div>
        </div>
        </li>
    </ul>
    <div contenteditable="true" role="textbox" aria-label="Write a comment…"></div>
</div>
</div>
</body>
</html>
`
}

// GenerateFacebookNoiseOnly creates a post whose only text is UI chrome.
func GenerateFacebookNoiseOnly() string {
	return `
<!DOCTYPE html>
<html>
<body>
<div role="main">
<div role="article">
    <div data-ad-preview="message"><span>Like</span> <span>5h</span> <span>😂</span></div>
</div>
</div>
</body>
</html>
`
}

// GenerateReplyBoxes creates a page with a hidden textarea before a visible
// contenteditable region, both matching generic reply selectors.
func GenerateReplyBoxes() string {
	return `
<!DOCTYPE html>
<html>
<body>
<form style="display: none"><textarea id="hidden-box"></textarea></form>
<div contenteditable="true" id="tiny" style="width: 0px; height: 0px"></div>
<div id="visible-box" contenteditable="true" role="textbox"><p>draft text</p></div>
</body>
</html>
`
}
