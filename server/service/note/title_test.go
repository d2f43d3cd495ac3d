package note

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: UntitledNote},
		{name: "whitespace", content: "  \n\t", want: UntitledNote},
		{name: "short", content: "Buy milk and eggs", want: "Buy milk and eggs"},
		{name: "exactly five words", content: "one two three four five", want: "one two three four five"},
		{name: "truncated", content: "one two three four five six", want: "one two three four five..."},
		{name: "heading and emphasis", content: "# Weekly **plan**\n\n- call _mom_", want: "Weekly plan call mom"},
		{name: "link", content: "See [the docs](https://example.com) now", want: "See the docs now"},
		{name: "autolink", content: "<https://example.com> rocks", want: "https://example.com rocks"},
		{name: "code span", content: "run `go test` daily", want: "run go test daily"},
		{name: "fenced code", content: "```\nfmt.Println(1)\n```", want: "fmt.Println(1)"},
		{name: "syntax only", content: "---", want: UntitledNote},
		{name: "html dropped", content: "<div>\nhidden\n</div>\n\nvisible text", want: "visible text"},
		{name: "soft line breaks", content: "first\nsecond", want: "first second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.content))
		})
	}
}

func TestDeriveTitle_Deterministic(t *testing.T) {
	content := "The quick brown fox jumps over the lazy dog"
	assert.Equal(t, DeriveTitle(content), DeriveTitle(content))
	assert.Equal(t, "The quick brown fox jumps...", DeriveTitle(content))
}
