package note

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// UntitledNote is the title of a note created without content.
	UntitledNote = "Untitled Note"

	titleWords = 5
	ellipsis   = "..."
)

var markdown = goldmark.New()

// DeriveTitle returns the first words of the rendered text of content.
// An ellipsis is appended when content has more words than fit.
func DeriveTitle(content string) string {
	words := strings.Fields(plainText(content))
	if len(words) == 0 {
		return UntitledNote
	}
	if len(words) > titleWords {
		return strings.Join(words[:titleWords], " ") + ellipsis
	}
	return strings.Join(words, " ")
}

// plainText strips markdown syntax, keeping the visible text of content.
func plainText(content string) string {
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			b.WriteByte(' ')
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(source))
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
