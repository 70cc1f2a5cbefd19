// Package markdown converts event content HTML into Markdown for exports.
package markdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

var conv = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// FromHTML renders s as CommonMark. Content that fails to convert is
// returned trimmed but otherwise unchanged.
func FromHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	out, err := conv.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}
