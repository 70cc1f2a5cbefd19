package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

// Ansible receives callbacks from the chronicle callback plugin.
type Ansible struct {
	Classifier classifier.Classifier
}

func NewAnsible() *Ansible {
	return &Ansible{Classifier: classifier.Ansible()}
}

type ansibleHostStats struct {
	OK          int  `json:"ok"`
	Changed     int  `json:"changed"`
	Failed      int  `json:"failed"`
	Skipped     int  `json:"skipped"`
	Unreachable bool `json:"unreachable"`
}

type ansiblePayload struct {
	Playbook     string                      `json:"playbook"`
	PlaybookPath string                      `json:"playbook_path"`
	Started      string                      `json:"started"`
	Ended        string                      `json:"ended"`
	Duration     float64                     `json:"duration"`
	Status       string                      `json:"status"`
	HostCount    int                         `json:"host_count"`
	TaskCount    int                         `json:"task_count"`
	ChangedCount int                         `json:"changed_count"`
	FailedCount  int                         `json:"failed_count"`
	SkippedCount int                         `json:"skipped_count"`
	Hosts        map[string]ansibleHostStats `json:"hosts"`
	FailedTasks  []struct {
		Host string `json:"host"`
		Task string `json:"task"`
		Msg  string `json:"msg"`
	} `json:"failed_tasks"`
	Tags       []string `json:"tags"`
	User       string   `json:"user"`
	Controller string   `json:"controller"`
}

func (a *Ansible) Source() string { return models.SourceAnsible }

func (a *Ansible) EventType(http.Header) string { return "playbook" }

func (a *Ansible) Verify(http.Header, []byte) error { return nil }

func (a *Ansible) Describe() map[string]any {
	return map[string]any{
		"service":  "Ansible Callback Handler",
		"status":   "active",
		"statuses": []string{"started", "completed", "failed"},
	}
}

func (a *Ansible) Parse(req Request) (Result, error) {
	var p ansiblePayload
	if err := json.Unmarshal(req.Body, &p); err != nil {
		return Result{}, malformed("ansible: %v", err)
	}
	p.Playbook = strings.TrimSpace(p.Playbook)
	if p.Playbook == "" {
		return Result{}, malformed("ansible: missing playbook")
	}

	var title, icon string
	hints := classifier.Hints{}
	switch p.Status {
	case "started":
		title, icon = "Playbook Started: "+p.Playbook, "Play"
	case "completed":
		title, icon = "Playbook Completed: "+p.Playbook, "CheckCircle"
		if p.ChangedCount > 0 {
			title = fmt.Sprintf("%s (%d changed)", title, p.ChangedCount)
		}
	case "failed":
		title, icon = "Playbook Failed: "+p.Playbook, "XCircle"
		hints.Fallback = models.CategoryFix
	default:
		title, icon = "Ansible: "+p.Playbook, "Play"
	}

	hosts := make([]string, 0, len(p.Hosts))
	for host := range p.Hosts {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	node := strings.TrimSpace(p.Controller)
	if node == "" && len(hosts) > 0 {
		node = hosts[0]
	}

	date := nowOr(req.Now)
	if t, ok := parseTime(p.Started); ok {
		date = t
	}

	result := a.Classifier.Classify(p.Playbook, hints)
	return Result{
		Drafts: []Draft{{
			Title:              title,
			Date:               date,
			Content:            ansibleContent(p, hosts),
			Category:           result.Category,
			Icon:               icon,
			Tags:               NormalizeTags([]string{"ansible", "automation", p.Status}, p.Tags, result.Tags),
			Source:             models.SourceAnsible,
			SourceRef:          ansibleRef(p),
			Services:           hosts,
			InfrastructureNode: node,
		}},
		Message: "Logged playbook: " + p.Playbook,
	}, nil
}

// ansibleRef identifies one callback: a run's start time plus its status,
// so started and completed callbacks of the same run stay distinct.
func ansibleRef(p ansiblePayload) string {
	return fmt.Sprintf("%s@%s:%s", p.Playbook, strings.TrimSpace(p.Started), p.Status)
}

func ansibleContent(p ansiblePayload, hosts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Status:</strong> %s</p>\n", escape(strings.ToUpper(p.Status)))
	fmt.Fprintf(&b, "<p><strong>Playbook:</strong> <code>%s</code></p>\n", escape(p.Playbook))
	if p.PlaybookPath != "" {
		fmt.Fprintf(&b, "<p><strong>Path:</strong> <code>%s</code></p>\n", escape(p.PlaybookPath))
	}
	if p.User != "" {
		fmt.Fprintf(&b, "<p><strong>User:</strong> %s</p>\n", escape(p.User))
	}
	if p.Controller != "" {
		fmt.Fprintf(&b, "<p><strong>Controller:</strong> %s</p>\n", escape(p.Controller))
	}
	if p.Duration > 0 {
		fmt.Fprintf(&b, "<p><strong>Duration:</strong> %s</p>\n", formatSeconds(p.Duration))
	}

	if len(hosts) > 0 {
		b.WriteString("<h4>Host Results</h4>\n<table><tr><th>Host</th><th>OK</th><th>Changed</th><th>Failed</th><th>Skipped</th></tr>\n")
		for _, host := range hosts {
			stats := p.Hosts[host]
			style := ""
			if stats.Failed > 0 {
				style = ` style="color: red"`
			} else if stats.Unreachable {
				style = ` style="color: orange"`
			}
			fmt.Fprintf(&b, "<tr%s><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
				style, escape(host), stats.OK, stats.Changed, stats.Failed, stats.Skipped)
		}
		b.WriteString("</table>\n")
	}

	if p.TaskCount > 0 {
		fmt.Fprintf(&b, "<h4>Task Summary</h4>\n<ul><li>Total: %d</li>", p.TaskCount)
		if p.ChangedCount > 0 {
			fmt.Fprintf(&b, "<li>Changed: %d</li>", p.ChangedCount)
		}
		if p.FailedCount > 0 {
			fmt.Fprintf(&b, "<li>Failed: %d</li>", p.FailedCount)
		}
		if p.SkippedCount > 0 {
			fmt.Fprintf(&b, "<li>Skipped: %d</li>", p.SkippedCount)
		}
		b.WriteString("</ul>\n")
	}

	if len(p.FailedTasks) > 0 {
		b.WriteString("<h4>Failed Tasks</h4>\n<ul>\n")
		for _, task := range p.FailedTasks {
			fmt.Fprintf(&b, "<li><strong>%s</strong> - %s<br/><code>%s</code></li>\n",
				escape(task.Host), escape(task.Task), escape(task.Msg))
		}
		b.WriteString("</ul>\n")
	}
	return strings.TrimSpace(b.String())
}

func formatSeconds(total float64) string {
	minutes := int(total) / 60
	seconds := int(total+0.5) % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
