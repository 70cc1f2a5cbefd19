package ingest

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

var changelogDate = regexp.MustCompile(`^##\s*\[?(\d{4}-\d{2}-\d{2})\]?`)

type changelogSection struct {
	date    time.Time
	heading string
	items   []string
}

// ParseChangelog reads a Keep-a-Changelog style document. Every dated
// "## [YYYY-MM-DD]" section with at least one list item becomes a draft.
// Changelog drafts carry no SourceRef: they are deduplicated on title and date.
func ParseChangelog(text string, c classifier.Classifier) []Draft {
	var (
		sections []*changelogSection
		current  *changelogSection
	)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "###"):
			if current != nil {
				current.heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			}
		case strings.HasPrefix(line, "##"):
			current = nil
			m := changelogDate.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			date, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				continue
			}
			current = &changelogSection{date: date.UTC()}
			sections = append(sections, current)
		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*"):
			if current == nil {
				continue
			}
			item := strings.TrimSpace(strings.TrimLeft(line[1:], " \t"))
			if item != "" {
				current.items = append(current.items, item)
			}
		}
	}

	drafts := make([]Draft, 0, len(sections))
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		title := s.heading
		if title == "" {
			title = truncate(s.items[0], 80)
		}
		joined := strings.Join(s.items, " ")
		category := c.Category(s.heading+" "+joined, classifier.Hints{})

		var b strings.Builder
		b.WriteString("<ul>\n")
		for _, item := range s.items {
			fmt.Fprintf(&b, "<li>%s</li>\n", escape(item))
		}
		b.WriteString("</ul>")

		drafts = append(drafts, Draft{
			Title:    title,
			Date:     s.date,
			Content:  b.String(),
			Category: category,
			Tags:     c.DeriveTags(joined),
			Source:   models.SourceChangelog,
		})
	}
	return drafts
}
