package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"chronicle/internal/models"
)

const (
	containerUpdated = "Updated"
	containerFresh   = "Fresh"
	containerFailed  = "Failed"
)

// Watchtower receives container update reports. The payload shape depends
// on the notification template, so JSON and "name: State" text are accepted.
type Watchtower struct{}

func NewWatchtower() *Watchtower { return &Watchtower{} }

type ContainerUpdate struct {
	Name         string `json:"name"`
	CurrentImage string `json:"currentImage"`
	LatestImage  string `json:"latestImage"`
	State        string `json:"state"`
	Error        string `json:"error"`
}

var watchtowerLine = regexp.MustCompile(`^(.+?):\s*(.+)$`)

func (w *Watchtower) Source() string { return models.SourceWatchtower }

func (w *Watchtower) EventType(http.Header) string { return "update" }

func (w *Watchtower) Verify(http.Header, []byte) error { return nil }

func (w *Watchtower) Describe() map[string]any {
	return map[string]any{
		"service":  "Watchtower Webhook Handler",
		"status":   "active",
		"template": "{{range .}}{{.Name}}: {{.State}}{{end}}",
	}
}

// ParseContainerUpdates tries JSON (array, {updates}, {entries}, single
// object) before falling back to the plain text format.
func ParseContainerUpdates(body []byte) []ContainerUpdate {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var items []ContainerUpdate
		if err := json.Unmarshal(body, &items); err == nil {
			return cleanUpdates(items)
		}
	}
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Updates []ContainerUpdate `json:"updates"`
			Entries []ContainerUpdate `json:"entries"`
		}
		if err := json.Unmarshal(body, &wrapper); err == nil {
			if wrapper.Updates != nil {
				return cleanUpdates(wrapper.Updates)
			}
			if wrapper.Entries != nil {
				return cleanUpdates(wrapper.Entries)
			}
			var single ContainerUpdate
			if err := json.Unmarshal(body, &single); err == nil {
				return cleanUpdates([]ContainerUpdate{single})
			}
		}
	}

	var updates []ContainerUpdate
	for _, line := range strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == '\n' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := watchtowerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		updates = append(updates, ContainerUpdate{
			Name:  strings.TrimSpace(m[1]),
			State: strings.TrimSpace(m[2]),
		})
	}
	return updates
}

func cleanUpdates(items []ContainerUpdate) []ContainerUpdate {
	out := make([]ContainerUpdate, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		item.State = strings.TrimSpace(item.State)
		if item.Name == "" && item.State == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (w *Watchtower) Parse(req Request) (Result, error) {
	updates := ParseContainerUpdates(req.Body)
	if len(updates) == 0 {
		return skip("skipped-empty", "No updates in payload"), nil
	}

	var updated, failed, fresh []ContainerUpdate
	for _, u := range updates {
		switch {
		case strings.EqualFold(u.State, containerUpdated):
			updated = append(updated, u)
		case strings.EqualFold(u.State, containerFailed):
			failed = append(failed, u)
		case strings.EqualFold(u.State, containerFresh):
			fresh = append(fresh, u)
		}
	}
	if len(updated) == 0 && len(failed) == 0 {
		return skip("skipped-fresh", "All containers up to date"), nil
	}

	names := make([]string, 0, len(updated))
	for _, u := range updated {
		names = append(names, u.Name)
	}
	names = UniqueStrings(names)
	tagNames := names
	if len(tagNames) > 5 {
		tagNames = tagNames[:5]
	}

	hasFailures := len(failed) > 0
	title := fmt.Sprintf("%s updated", plural(len(updated), "container"))
	category, icon, outcome := models.CategoryService, "RefreshCw", "success"
	if hasFailures {
		title = fmt.Sprintf("Container Updates: %d updated, %d failed", len(updated), len(failed))
		category, icon, outcome = models.CategoryFix, "AlertTriangle", "failed"
	}

	return Result{
		Drafts: []Draft{{
			Title:    title,
			Date:     nowOr(req.Now),
			Content:  watchtowerContent(updated, failed, len(fresh)),
			Category: category,
			Icon:     icon,
			Tags:     NormalizeTags([]string{"watchtower", "docker", "automated", outcome}, tagNames),
			Source:   models.SourceWatchtower,
			// Watchtower reports carry no identifier of their own.
			SourceRef: req.LogID,
			Services:  names,
		}},
		Message: fmt.Sprintf("Created event for %d container update(s)", len(updated)),
	}, nil
}

func watchtowerContent(updated, failed []ContainerUpdate, fresh int) string {
	var b strings.Builder
	b.WriteString("<h4>Container Update Summary</h4>\n")
	if len(updated) > 0 {
		b.WriteString("<p><strong>Updated:</strong></p>\n<ul>\n")
		for _, u := range updated {
			fmt.Fprintf(&b, "<li><strong>%s</strong>", escape(u.Name))
			if u.CurrentImage != "" && u.LatestImage != "" {
				fmt.Fprintf(&b, "<br/><code>%s</code> &rarr; <code>%s</code>", escape(u.CurrentImage), escape(u.LatestImage))
			}
			b.WriteString("</li>\n")
		}
		b.WriteString("</ul>\n")
	}
	if len(failed) > 0 {
		b.WriteString("<p><strong>Failed:</strong></p>\n<ul>\n")
		for _, u := range failed {
			fmt.Fprintf(&b, "<li><strong>%s</strong>", escape(u.Name))
			if u.Error != "" {
				fmt.Fprintf(&b, "<br/>Error: %s", escape(u.Error))
			}
			b.WriteString("</li>\n")
		}
		b.WriteString("</ul>\n")
	}
	if fresh > 0 {
		fmt.Fprintf(&b, "<p><em>%d container(s) already up to date</em></p>", fresh)
	}
	return strings.TrimSpace(b.String())
}
