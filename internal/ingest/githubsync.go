package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

// CommitGroup is the set of commits polled for one calendar day.
type CommitGroup struct {
	Day     string
	Commits []*github.RepositoryCommit
}

func commitDate(c *github.RepositoryCommit) time.Time {
	return c.GetCommit().GetAuthor().GetDate().Time.UTC()
}

func commitAuthor(c *github.RepositoryCommit) string {
	if name := c.GetCommit().GetAuthor().GetName(); name != "" {
		return name
	}
	return c.GetAuthor().GetLogin()
}

// GroupCommitsByDay buckets commits by author date (UTC, YYYY-MM-DD),
// newest first within a day. Groups are returned oldest day first.
func GroupCommitsByDay(commits []*github.RepositoryCommit) []CommitGroup {
	byDay := map[string][]*github.RepositoryCommit{}
	for _, c := range commits {
		if c == nil || c.GetSHA() == "" {
			continue
		}
		day := commitDate(c).Format("2006-01-02")
		byDay[day] = append(byDay[day], c)
	}
	groups := make([]CommitGroup, 0, len(byDay))
	for day, list := range byDay {
		sort.SliceStable(list, func(i, j int) bool { return commitDate(list[i]).After(commitDate(list[j])) })
		groups = append(groups, CommitGroup{Day: day, Commits: list})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Day < groups[j].Day })
	return groups
}

// PolledCommitDrafts makes one draft per day of commits on branch. The
// draft is dated by the oldest commit of the day and referenced by the
// newest, which is what later polls compare against.
func PolledCommitDrafts(commits []*github.RepositoryCommit, repo, branch string, c classifier.Classifier) []Draft {
	repoName := repo
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repoName = repo[i+1:]
	}
	var drafts []Draft
	for _, group := range GroupCommitsByDay(commits) {
		messages := make([]string, 0, len(group.Commits))
		authors := []string{}
		seen := map[string]struct{}{}
		for _, commit := range group.Commits {
			messages = append(messages, commit.GetCommit().GetMessage())
			name := commitAuthor(commit)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok || len(authors) >= 5 {
				continue
			}
			seen[name] = struct{}{}
			authors = append(authors, name)
		}
		result := c.Classify(strings.Join(messages, " "), classifier.Hints{})
		newest := group.Commits[0]
		oldest := group.Commits[len(group.Commits)-1]
		drafts = append(drafts, Draft{
			Title:     fmt.Sprintf("%s pushed to %s", plural(len(group.Commits), "commit"), branch),
			Date:      commitDate(oldest),
			Content:   polledCommitContent(group.Commits, repo, repoName, branch),
			Category:  result.Category,
			Icon:      "GitCommit",
			Tags:      NormalizeTags([]string{"github", "automated", "push", branch}, authors),
			Source:    models.SourceGitHub,
			SourceRef: newest.GetSHA(),
			Services:  []string{repoName},
		})
	}
	return drafts
}

func polledCommitContent(commits []*github.RepositoryCommit, repo, repoName, branch string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h4>Commits to %s</h4>\n", escape(repoName))
	fmt.Fprintf(&b, "<p><strong>Branch:</strong> <code>%s</code></p>\n", escape(branch))
	b.WriteString("<ul>\n")
	for _, c := range commits {
		writeCommitItem(&b, c.GetSHA(), c.GetHTMLURL(), c.GetCommit().GetMessage(), commitAuthor(c), 0)
	}
	b.WriteString("</ul>\n")
	fmt.Fprintf(&b, "<p><a href=\"https://github.com/%s/commits/%s\" target=\"_blank\" rel=\"noopener\">View all commits on GitHub</a></p>",
		escape(repo), escape(branch))
	return b.String()
}
