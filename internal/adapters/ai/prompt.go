package ai

import (
	"fmt"
	"strings"

	"replykit/internal/domain"
)

const repliesPrompt = `You help a reader write a reply in an online discussion.

Read the thread and return:
- summary: two or three neutral sentences describing what the discussion is about.
- suggestions: between three and five distinct replies the reader could post.

Write every reply in this tone: %s.
Replies must be ready to post as-is: no quotation marks around them, no hashtags unless the thread uses them, no numbering.
Stay on topic and never invent facts about the people in the thread.`

const rewritePrompt = `You rewrite a reader's draft reply to an online discussion.

Keep the draft's meaning and any concrete facts it states. Change wording, structure and length only as needed to match this tone: %s.
Return only the rewritten reply in the text field.`

func authorGuard(author string) string {
	if author == "" || author == domain.DeletedAuthor {
		return ""
	}
	return fmt.Sprintf("\n\nThe post was written by %s. The reader is NOT %s: never reply as the post author or speak on their behalf.", author, author)
}

func repliesInstructions(toneDescription, author string) string {
	return fmt.Sprintf(repliesPrompt, toneOrDefault(toneDescription)) + authorGuard(author)
}

func rewriteInstructions(toneDescription, author string) string {
	return fmt.Sprintf(rewritePrompt, toneOrDefault(toneDescription)) + authorGuard(author)
}

func toneOrDefault(desc string) string {
	if d := strings.TrimSpace(desc); d != "" {
		return d
	}
	return domain.ToneDescription(domain.DefaultTone, "")
}

// renderThread lays the thread out as plain text, indenting replies by depth.
func renderThread(t *domain.ThreadContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", t.Platform)
	if t.PostTitle != "" {
		fmt.Fprintf(&b, "Title: %s\n", t.PostTitle)
	}
	if t.PostAuthor != "" {
		fmt.Fprintf(&b, "Author: %s\n", t.PostAuthor)
	}
	if t.PostBody != "" {
		fmt.Fprintf(&b, "\nPost:\n%s\n", t.PostBody)
	}
	if len(t.Comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "%s- %s: %s\n", strings.Repeat("  ", max(c.Depth, 0)), c.Author, c.Text)
		}
	}
	return b.String()
}

func renderRewrite(draft string, thread *domain.ThreadContext) string {
	var b strings.Builder
	if thread != nil {
		b.WriteString("Thread for context:\n")
		b.WriteString(renderThread(thread))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Draft:\n%s\n", strings.TrimSpace(draft))
	return b.String()
}
