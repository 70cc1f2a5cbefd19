package ingest

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

const (
	gitlabPushHook     = "Push Hook"
	gitlabMergeRequest = "Merge Request Hook"
	gitlabPipelineHook = "Pipeline Hook"
)

type GitLab struct {
	Secret     string
	Classifier classifier.Classifier
}

func NewGitLab(secret string) *GitLab {
	return &GitLab{Secret: secret, Classifier: classifier.Commit()}
}

type gitlabProject struct {
	Name   string `json:"name"`
	WebURL string `json:"web_url"`
}

type gitlabPush struct {
	Ref               string        `json:"ref"`
	CheckoutSHA       string        `json:"checkout_sha"`
	TotalCommitsCount int           `json:"total_commits_count"`
	Project           gitlabProject `json:"project"`
	Commits           []struct {
		ID        string `json:"id"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
		URL       string `json:"url"`
		Author    struct {
			Name string `json:"name"`
		} `json:"author"`
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

type gitlabMR struct {
	Project gitlabProject `json:"project"`
	User    struct {
		Name string `json:"name"`
	} `json:"user"`
	ObjectAttributes struct {
		IID          int    `json:"iid"`
		Title        string `json:"title"`
		State        string `json:"state"`
		Action       string `json:"action"`
		SourceBranch string `json:"source_branch"`
		TargetBranch string `json:"target_branch"`
		Description  string `json:"description"`
		URL          string `json:"url"`
	} `json:"object_attributes"`
}

type gitlabPipeline struct {
	Project          gitlabProject `json:"project"`
	ObjectAttributes struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		Ref      string `json:"ref"`
		Duration int64  `json:"duration"`
	} `json:"object_attributes"`
	Builds []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"builds"`
}

func (g *GitLab) Source() string { return models.SourceGitLab }

func (g *GitLab) EventType(h http.Header) string {
	if v := h.Get("X-Gitlab-Event"); v != "" {
		return v
	}
	return "unknown"
}

// Verify compares the X-Gitlab-Token header with the configured secret.
func (g *GitLab) Verify(h http.Header, _ []byte) error {
	if g.Secret == "" {
		return nil
	}
	token := h.Get("X-Gitlab-Token")
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(g.Secret)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

func (g *GitLab) Describe() map[string]any {
	return map[string]any{
		"service":          "GitLab Webhook Handler",
		"status":           "active",
		"supportedEvents":  []string{gitlabPushHook, gitlabMergeRequest, gitlabPipelineHook},
		"filteredBranches": []string{"main", "master"},
		"signatureChecked": g.Secret != "",
	}
}

func (g *GitLab) Parse(req Request) (Result, error) {
	switch event := g.EventType(req.Header); event {
	case gitlabPushHook:
		return g.parsePush(req)
	case gitlabMergeRequest:
		return g.parseMergeRequest(req)
	case gitlabPipelineHook:
		return g.parsePipeline(req)
	default:
		return skip("skipped", "Event type '%s' ignored.", event), nil
	}
}

func (g *GitLab) parsePush(req Request) (Result, error) {
	var push gitlabPush
	if err := json.Unmarshal(req.Body, &push); err != nil {
		return Result{}, malformed("gitlab push: %v", err)
	}
	branch := branchFromRef(push.Ref)
	if !TrackedBranch(branch) {
		return skip("skipped-branch", "Branch '%s' ignored. Only main/master branches are tracked.", branch), nil
	}
	count := push.TotalCommitsCount
	if count == 0 {
		count = len(push.Commits)
	}
	if count == 0 {
		return skip("skipped-no-commits", "No commits in push event. Skipping."), nil
	}

	project := push.Project.Name
	if project == "" {
		project = "unknown"
	}
	messages := make([]string, 0, len(push.Commits))
	authors := []string{}
	date := nowOr(req.Now)
	for i, c := range push.Commits {
		messages = append(messages, c.Message)
		authors = append(authors, c.Author.Name)
		if i == len(push.Commits)-1 {
			if t, ok := parseTime(c.Timestamp); ok {
				date = t
			}
		}
	}
	authors = UniqueStrings(authors)
	if len(authors) > 5 {
		authors = authors[:5]
	}
	result := g.Classifier.Classify(strings.Join(messages, " "), classifier.Hints{})

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Branch:</strong> <code>%s</code></p>\n", escape(branch))
	fmt.Fprintf(&b, "<p><strong>Repository:</strong> %s</p>\n<ul>\n", escape(project))
	for _, c := range push.Commits {
		writeCommitItem(&b, c.ID, c.URL, c.Message, c.Author.Name, len(c.Added)+len(c.Modified)+len(c.Removed))
	}
	b.WriteString("</ul>")
	if push.Project.WebURL != "" {
		fmt.Fprintf(&b, "\n<p><a href=\"%s/-/commits/%s\" target=\"_blank\" rel=\"noopener\">View on GitLab</a></p>",
			escape(push.Project.WebURL), escape(branch))
	}

	ref := push.CheckoutSHA
	if ref == "" && len(push.Commits) > 0 {
		ref = push.Commits[len(push.Commits)-1].ID
	}
	if ref == "" {
		ref = req.LogID
	}
	title := fmt.Sprintf("%s pushed to %s", plural(count, "commit"), branch)
	return Result{
		Drafts: []Draft{{
			Title:     title,
			Date:      date,
			Content:   b.String(),
			Category:  result.Category,
			Icon:      "GitCommit",
			Tags:      NormalizeTags([]string{"gitlab", "automated", "git", branch}, authors, result.Tags),
			Source:    models.SourceGitLab,
			SourceRef: ref,
			Services:  []string{project},
		}},
		Message: "Created event: " + title,
	}, nil
}

func (g *GitLab) parseMergeRequest(req Request) (Result, error) {
	var mr gitlabMR
	if err := json.Unmarshal(req.Body, &mr); err != nil {
		return Result{}, malformed("gitlab merge request: %v", err)
	}
	attrs := mr.ObjectAttributes
	if attrs.IID == 0 && attrs.Title == "" {
		return Result{}, malformed("gitlab merge request: missing object_attributes")
	}
	project := mr.Project.Name
	if project == "" {
		project = "unknown"
	}
	action := attrs.Action
	if action == "" {
		action = attrs.State
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>MR #%d:</strong> %s</p>\n", attrs.IID, escape(attrs.Title))
	fmt.Fprintf(&b, "<p><strong>Status:</strong> %s</p>\n", escape(attrs.State))
	fmt.Fprintf(&b, "<p><strong>Source:</strong> %s &rarr; %s</p>\n", escape(attrs.SourceBranch), escape(attrs.TargetBranch))
	fmt.Fprintf(&b, "<p><strong>Author:</strong> %s</p>", escape(mr.User.Name))
	if attrs.Description != "" {
		fmt.Fprintf(&b, "\n<p>%s</p>", escape(attrs.Description))
	}
	if attrs.URL != "" {
		fmt.Fprintf(&b, "\n<p><a href=\"%s\" target=\"_blank\" rel=\"noopener\">View Merge Request</a></p>", escape(attrs.URL))
	}

	title := fmt.Sprintf("MR %s: %s", action, attrs.Title)
	return Result{
		Drafts: []Draft{{
			Title:     title,
			Date:      nowOr(req.Now),
			Content:   b.String(),
			Category:  models.CategoryMilestone,
			Icon:      "GitMerge",
			Tags:      NormalizeTags([]string{"gitlab", "automated", "merge-request", attrs.State}, g.Classifier.DeriveTags(attrs.Title)),
			Source:    models.SourceGitLab,
			SourceRef: fmt.Sprintf("mr-%d-%s", attrs.IID, action),
			Services:  []string{project},
		}},
		Message: "Created event: " + title,
	}, nil
}

func (g *GitLab) parsePipeline(req Request) (Result, error) {
	var p gitlabPipeline
	if err := json.Unmarshal(req.Body, &p); err != nil {
		return Result{}, malformed("gitlab pipeline: %v", err)
	}
	attrs := p.ObjectAttributes
	if attrs.ID == 0 {
		return Result{}, malformed("gitlab pipeline: missing object_attributes.id")
	}
	switch attrs.Status {
	case "success", "failed", "canceled":
	default:
		// Intermediate states (pending, running) would flood the timeline.
		return skip("skipped-status", "Pipeline status '%s' ignored.", attrs.Status), nil
	}
	project := p.Project.Name
	if project == "" {
		project = "unknown"
	}
	category := models.CategoryService
	if attrs.Status == "failed" {
		category = models.CategoryFix
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Pipeline #%d</strong></p>\n", attrs.ID)
	fmt.Fprintf(&b, "<p><strong>Status:</strong> %s</p>\n", escape(attrs.Status))
	fmt.Fprintf(&b, "<p><strong>Branch:</strong> %s</p>\n", escape(attrs.Ref))
	fmt.Fprintf(&b, "<p><strong>Duration:</strong> %ds</p>", attrs.Duration)
	if len(p.Builds) > 0 {
		b.WriteString("\n<p><strong>Jobs:</strong></p>\n<ul>\n")
		for _, job := range p.Builds {
			fmt.Fprintf(&b, "<li>%s: <strong>%s</strong></li>\n", escape(job.Name), escape(job.Status))
		}
		b.WriteString("</ul>")
	}

	title := fmt.Sprintf("Pipeline %s: %s", attrs.Status, project)
	return Result{
		Drafts: []Draft{{
			Title:     title,
			Date:      nowOr(req.Now),
			Content:   b.String(),
			Category:  category,
			Icon:      "GitBranch",
			Tags:      NormalizeTags([]string{"gitlab", "automated", "ci-cd", attrs.Status}),
			Source:    models.SourceGitLab,
			SourceRef: fmt.Sprintf("pipeline-%d-%s", attrs.ID, attrs.Status),
			Services:  []string{project},
		}},
		Message: "Created event: " + title,
	}, nil
}
