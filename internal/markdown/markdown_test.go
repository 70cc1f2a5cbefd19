package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "headings paragraphs lists",
			in:   `<h4>Title</h4><p>Hello <strong>world</strong></p><ul><li>one</li><li><a href="https://x">two</a></li></ul>`,
			want: "#### Title\n\nHello **world**\n\n- one\n- [two](https://x)",
		},
		{
			name: "deep headings",
			in:   `<h5>Five</h5><h6>Six</h6>`,
			want: "##### Five\n\n###### Six",
		},
		{
			name: "entities",
			in:   "<p>a &amp; b</p>",
			want: "a & b",
		},
		{
			name: "pre is fenced",
			in:   "<pre><code>x := 1</code></pre>",
			want: "```\nx := 1\n```",
		},
		{
			name: "empty",
			in:   "  ",
			want: "",
		},
		{
			name: "plain text untouched",
			in:   "just text",
			want: "just text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromHTML(tt.in))
		})
	}
}

func TestFromHTMLKeepsNesting(t *testing.T) {
	got := FromHTML(`<ul><li>pve01<ul><li>vm-100</li><li>vm-101</li></ul></li><li>pve02</li></ul>`)
	assert.Contains(t, got, "- pve01")
	assert.Contains(t, got, "  - vm-100")
	assert.Contains(t, got, "  - vm-101")
	assert.Contains(t, got, "- pve02")
}

func TestFromHTMLDropsUnknownTags(t *testing.T) {
	got := FromHTML(`<div style="color: red"><span>pve01</span> <code><a href="u">abc1234</a></code></div>`)
	assert.NotContains(t, got, "<")
	assert.Contains(t, got, "pve01")
	assert.Contains(t, got, "abc1234")
}
