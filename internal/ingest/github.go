package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

type GitHub struct {
	Secret     string
	Classifier classifier.Classifier
}

func NewGitHub(secret string) *GitHub {
	return &GitHub{Secret: secret, Classifier: classifier.Commit()}
}

type githubPush struct {
	Ref        string         `json:"ref"`
	Compare    string         `json:"compare"`
	Commits    []githubCommit `json:"commits"`
	HeadCommit *githubCommit  `json:"head_commit"`
	Repository struct {
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
	} `json:"repository"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

type githubCommit struct {
	ID        string   `json:"id"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	URL       string   `json:"url"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Modified  []string `json:"modified"`
	Author    struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"author"`
}

func (c githubCommit) authorName() string {
	if c.Author.Name != "" {
		return c.Author.Name
	}
	return c.Author.Username
}

func (g *GitHub) Source() string { return models.SourceGitHub }

func (g *GitHub) EventType(h http.Header) string {
	if v := h.Get(github.EventTypeHeader); v != "" {
		return v
	}
	return "unknown"
}

func (g *GitHub) Verify(h http.Header, body []byte) error {
	if g.Secret == "" {
		return nil
	}
	sig := strings.TrimSpace(h.Get(github.SHA256SignatureHeader))
	if !strings.HasPrefix(sig, "sha256=") {
		return ErrInvalidSignature
	}
	if err := github.ValidateSignature(sig, body, []byte(g.Secret)); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

func (g *GitHub) Describe() map[string]any {
	return map[string]any{
		"service":          "GitHub Webhook Handler",
		"status":           "active",
		"supportedEvents":  []string{"push", "ping"},
		"filteredBranches": []string{"main", "master"},
		"signatureChecked": g.Secret != "",
	}
}

func (g *GitHub) Parse(req Request) (Result, error) {
	switch event := g.EventType(req.Header); event {
	case "ping":
		return skip("ping", "Pong! GitHub webhook configured successfully."), nil
	case "push":
	default:
		return skip("skipped", "Event type '%s' ignored. Only push events are processed.", event), nil
	}

	var push githubPush
	if err := json.Unmarshal(req.Body, &push); err != nil {
		return Result{}, malformed("github push: %v", err)
	}
	branch := branchFromRef(push.Ref)
	if !TrackedBranch(branch) {
		return skip("skipped-branch", "Branch '%s' ignored. Only main/master branches are tracked.", branch), nil
	}
	if len(push.Commits) == 0 {
		return skip("skipped-no-commits", "No commits in push event. Skipping."), nil
	}

	repoName := push.Repository.Name
	if repoName == "" {
		repoName = "unknown-repo"
	}

	messages := make([]string, 0, len(push.Commits))
	authors := []string{}
	seenAuthor := map[string]struct{}{}
	for _, c := range push.Commits {
		messages = append(messages, c.Message)
		name := c.authorName()
		if name == "" {
			continue
		}
		if _, ok := seenAuthor[name]; ok || len(authors) >= 5 {
			continue
		}
		seenAuthor[name] = struct{}{}
		authors = append(authors, name)
	}
	result := g.Classifier.Classify(strings.Join(messages, " "), classifier.Hints{})

	ref := ""
	date := nowOr(req.Now)
	if push.HeadCommit != nil && push.HeadCommit.ID != "" {
		ref = push.HeadCommit.ID
		if t, ok := parseTime(push.HeadCommit.Timestamp); ok {
			date = t
		}
	} else {
		// GitHub lists commits oldest first.
		newest := push.Commits[len(push.Commits)-1]
		ref = newest.ID
		if t, ok := parseTime(newest.Timestamp); ok {
			date = t
		}
	}
	if ref == "" {
		ref = req.Header.Get(github.DeliveryIDHeader)
	}

	title := fmt.Sprintf("%s pushed to %s", plural(len(push.Commits), "commit"), branch)
	draft := Draft{
		Title:     title,
		Date:      date,
		Content:   githubPushContent(push, branch, repoName),
		Category:  result.Category,
		Icon:      "GitCommit",
		Tags:      NormalizeTags([]string{"github", "automated", "push", branch}, authors, result.Tags),
		Source:    models.SourceGitHub,
		SourceRef: ref,
		Services:  []string{repoName},
	}
	return Result{Drafts: []Draft{draft}, Message: "Created event: " + title}, nil
}

func githubPushContent(push githubPush, branch, repoName string) string {
	pusher := push.Pusher.Name
	if pusher == "" {
		pusher = push.Sender.Login
	}
	if pusher == "" {
		pusher = "unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<h4>Commits to %s</h4>\n", escape(repoName))
	fmt.Fprintf(&b, "<p><strong>Branch:</strong> <code>%s</code> | <strong>Pusher:</strong> %s</p>\n", escape(branch), escape(pusher))
	b.WriteString("<ul>\n")
	for _, c := range push.Commits {
		writeCommitItem(&b, c.ID, c.URL, c.Message, c.authorName(), len(c.Added)+len(c.Modified)+len(c.Removed))
	}
	b.WriteString("</ul>")
	if push.Compare != "" {
		fmt.Fprintf(&b, "\n<p><a href=\"%s\" target=\"_blank\" rel=\"noopener\">View comparison on GitHub</a></p>", escape(push.Compare))
	}
	return b.String()
}

func writeCommitItem(b *strings.Builder, sha, url, message, author string, files int) {
	if url == "" {
		url = "#"
	}
	msg := firstLine(message)
	if msg == "" {
		msg = "No message"
	}
	if author == "" {
		author = "Unknown"
	}
	fmt.Fprintf(b, "<li><code><a href=\"%s\" target=\"_blank\" rel=\"noopener\">%s</a></code> - %s<br><small>by %s",
		escape(url), escape(shortSHA(sha)), escape(msg), escape(author))
	if files > 0 {
		fmt.Fprintf(b, " &bull; %s changed", plural(files, "file"))
	}
	b.WriteString("</small></li>\n")
}
