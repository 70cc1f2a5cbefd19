package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

// Prometheus receives Alertmanager webhook notifications. Every alert in
// a notification becomes its own event.
type Prometheus struct {
	Classifier classifier.Classifier
}

func NewPrometheus() *Prometheus {
	return &Prometheus{Classifier: classifier.Alert()}
}

type alertmanagerPayload struct {
	Version  string              `json:"version"`
	GroupKey string              `json:"groupKey"`
	Status   string              `json:"status"`
	Receiver string              `json:"receiver"`
	Alerts   []alertmanagerAlert `json:"alerts"`
}

type alertmanagerAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`
}

func (p *Prometheus) Source() string { return models.SourcePrometheus }

func (p *Prometheus) EventType(http.Header) string { return "alert" }

func (p *Prometheus) Verify(http.Header, []byte) error { return nil }

func (p *Prometheus) Describe() map[string]any {
	return map[string]any{
		"service":  "Prometheus Alertmanager Handler",
		"status":   "active",
		"statuses": []string{"firing", "resolved"},
	}
}

func (p *Prometheus) Parse(req Request) (Result, error) {
	var payload alertmanagerPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return Result{}, malformed("alertmanager: %v", err)
	}
	if len(payload.Alerts) == 0 {
		return skip("skipped-no-alerts", "No alerts in payload"), nil
	}

	drafts := make([]Draft, 0, len(payload.Alerts))
	for _, alert := range payload.Alerts {
		drafts = append(drafts, p.draft(alert, req))
	}
	return Result{
		Drafts:  drafts,
		Message: fmt.Sprintf("Processed %s", plural(len(drafts), "alert")),
	}, nil
}

func (p *Prometheus) draft(alert alertmanagerAlert, req Request) Draft {
	labels := alert.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	name := labels["alertname"]
	if name == "" {
		name = "Unknown Alert"
	}
	instance := labels["instance"]
	if instance == "" {
		instance = labels["job"]
	}
	if instance == "" {
		instance = "unknown"
	}
	severity := labels["severity"]
	if severity == "" {
		severity = "warning"
	}
	status := alert.Status
	if status == "" {
		status = "firing"
	}

	title := fmt.Sprintf("Alert: %s on %s", name, instance)
	hints := classifier.Hints{}
	if status == "resolved" {
		title = fmt.Sprintf("Resolved: %s on %s", name, instance)
		hints.Fallback = models.CategoryFix
	}

	node := strings.SplitN(instance, ":", 2)[0]
	if v := labels["container"]; v != "" {
		node = v
	}
	if v := labels["node"]; v != "" {
		node = v
	}
	if node == "unknown" {
		node = ""
	}

	service := labels["job"]
	if service == "" {
		service = "prometheus"
	}

	date := nowOr(req.Now)
	if t, ok := parseTime(alert.StartsAt); ok {
		date = t
	}

	// Alertmanager keeps the fingerprint across firing, resolved and later
	// re-fires, so each transition gets its own ref.
	ref := alertDigest(alert, status)
	if alert.Fingerprint != "" {
		ref = alert.Fingerprint + ":" + status + "@" + alert.StartsAt
	}

	result := p.Classifier.Classify(name, hints)
	return Draft{
		Title:              title,
		Date:               date,
		Content:            alertContent(alert, status),
		Category:           result.Category,
		Icon:               severityIcon(severity),
		Tags:               NormalizeTags([]string{"prometheus", "alert", status, severity, labels["job"]}, result.Tags),
		Source:             models.SourcePrometheus,
		SourceRef:          ref,
		Services:           []string{service},
		InfrastructureNode: node,
	}
}

// alertDigest stands in for a missing fingerprint: it hashes the alert's
// identity (labels, start time, status) so replays still deduplicate.
func alertDigest(alert alertmanagerAlert, status string) string {
	keys := make([]string, 0, len(alert.Labels))
	for k := range alert.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, alert.Labels[k])
	}
	fmt.Fprintf(h, "startsAt=%s\nstatus=%s\n", alert.StartsAt, status)
	return "digest-" + hex.EncodeToString(h.Sum(nil))[:16]
}

func severityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "AlertOctagon"
	case "warning":
		return "AlertTriangle"
	case "info":
		return "Info"
	default:
		return "Bell"
	}
}

func alertContent(alert alertmanagerAlert, status string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Status:</strong> %s</p>\n", escape(strings.ToUpper(status)))
	if t, ok := parseTime(alert.StartsAt); ok {
		fmt.Fprintf(&b, "<p><strong>Started:</strong> %s</p>\n", t.Format("2006-01-02 15:04:05 MST"))
		if end, ok := parseTime(alert.EndsAt); ok && end.Year() > 1 && end.After(t) {
			fmt.Fprintf(&b, "<p><strong>Duration:</strong> %s</p>\n", end.Sub(t).String())
		}
	}
	writeKV(&b, "Labels", alert.Labels)
	writeKV(&b, "Annotations", alert.Annotations)
	if alert.GeneratorURL != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\" target=\"_blank\" rel=\"noopener\">View in Prometheus</a></p>", escape(alert.GeneratorURL))
	}
	return strings.TrimSpace(b.String())
}

func writeKV(b *strings.Builder, heading string, kv map[string]string) {
	if len(kv) == 0 {
		return
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "<h4>%s</h4>\n<ul>\n", heading)
	for _, k := range keys {
		fmt.Fprintf(b, "<li><strong>%s:</strong> %s</li>\n", escape(k), escape(kv[k]))
	}
	b.WriteString("</ul>\n")
}
