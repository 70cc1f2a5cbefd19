// Package ingest turns third-party payloads (webhooks, changelogs, git
// history) into event drafts. Adapters are pure: they never touch storage.
package ingest

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidSignature rejects a delivery whose shared secret check failed.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformed marks payloads that cannot be parsed; they are acknowledged
	// and recorded but produce no event.
	ErrMalformed = errors.New("malformed payload")
)

// Draft is an event that has not been persisted yet.
type Draft struct {
	Title              string
	Date               time.Time
	Content            string
	Category           string
	Icon               string
	Tags               []string
	Source             string
	SourceRef          string
	Services           []string
	InfrastructureNode string
}

// Request is one inbound webhook delivery.
type Request struct {
	Header http.Header
	Body   []byte
	// LogID is the id of the audit row already written for this delivery.
	LogID string
	Now   time.Time
}

// Result is what an adapter decided about a delivery. Drafts is empty when
// the delivery is acknowledged without creating events; Marker then names
// the reason and is stored on the audit row.
type Result struct {
	Drafts  []Draft
	Marker  string
	Message string
}

// Adapter translates one webhook source.
type Adapter interface {
	Source() string
	EventType(h http.Header) string
	// Verify checks the shared secret. Adapters without one return nil.
	Verify(h http.Header, body []byte) error
	Parse(req Request) (Result, error)
	// Describe reports handler status for GET probes.
	Describe() map[string]any
}

func skip(marker, format string, args ...any) Result {
	return Result{Marker: marker, Message: fmt.Sprintf(format, args...)}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// NormalizeTags lowercases, trims and deduplicates, keeping first-seen order.
func NormalizeTags(tags ...[]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, group := range tags {
		for _, raw := range group {
			tag := strings.ToLower(strings.TrimSpace(raw))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// UniqueStrings trims and deduplicates, keeping case and first-seen order.
func UniqueStrings(items []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

func escape(s string) string {
	return html.EscapeString(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	if sha == "" {
		return "???????"
	}
	return sha
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func branchFromRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// TrackedBranch reports whether pushes to branch become events.
func TrackedBranch(branch string) bool {
	return branch == "main" || branch == "master"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05 -0700", "2006-01-02 15:04:05 MST", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func nowOr(now time.Time) time.Time {
	if now.IsZero() {
		return time.Now().UTC()
	}
	return now.UTC()
}
