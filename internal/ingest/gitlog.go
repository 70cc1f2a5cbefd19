package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

// Commit is one entry of a repository history.
type Commit struct {
	SHA     string
	Date    time.Time
	Author  string
	Message string
}

var (
	conventionalScoped = regexp.MustCompile(`(?i)^(feat|fix|docs|chore|refactor|test|style|perf)\([^)]*\):\s*`)
	conventionalPlain  = regexp.MustCompile(`(?i)^(feat|fix|docs|chore|refactor|test|style|perf):\s*`)

	significantKeywords = []string{
		"deploy", "kubernetes", "k8s", "proxmox", "docker",
		"service", "vm", "lxc", "container", "node",
		"storage", "network", "vlan", "traefik",
		"ansible", "terraform", "packer",
	}
)

// ParseGitLog reads `git log --date=iso --format="%H|%ad|%an|%s"` output.
// Lines that do not carry a sha and a parseable date are dropped.
func ParseGitLog(text string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 || parts[0] == "" {
			continue
		}
		date, ok := parseTime(parts[1])
		if !ok {
			continue
		}
		commits = append(commits, Commit{
			SHA:     strings.TrimSpace(parts[0]),
			Date:    date,
			Author:  strings.TrimSpace(parts[2]),
			Message: parts[3],
		})
	}
	return commits
}

// ReadRepository walks history from HEAD of the repository at path, newest
// first, returning at most limit commits (limit <= 0 means all).
func ReadRepository(ctx context.Context, path string, limit int) ([]Commit, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, Commit{
			SHA:     c.Hash.String(),
			Date:    c.Author.When.UTC(),
			Author:  c.Author.Name,
			Message: firstLine(c.Message),
		})
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	return commits, nil
}

// Significant reports whether a commit subject is worth a timeline entry:
// features, non-typo fixes, and anything mentioning infrastructure.
func Significant(message string) bool {
	lower := strings.ToLower(message)
	if strings.HasPrefix(lower, "feat:") || strings.HasPrefix(lower, "feat(") {
		return true
	}
	if strings.HasPrefix(lower, "fix:") && !strings.Contains(lower, "typo") {
		return true
	}
	for _, kw := range significantKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CommitTitle strips a conventional-commit prefix and capitalises the rest.
func CommitTitle(message string) string {
	title := conventionalScoped.ReplaceAllString(message, "")
	title = conventionalPlain.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)
	if r, size := utf8.DecodeRuneInString(title); r != utf8.RuneError {
		title = string(unicode.ToUpper(r)) + title[size:]
	}
	return truncate(title, 100)
}

// GitDrafts turns the significant commits into drafts keyed by sha.
func GitDrafts(commits []Commit, c classifier.Classifier) []Draft {
	drafts := make([]Draft, 0, len(commits))
	for _, commit := range commits {
		if !Significant(commit.Message) {
			continue
		}
		result := c.Classify(commit.Message, classifier.Hints{})
		drafts = append(drafts, Draft{
			Title: CommitTitle(commit.Message),
			Date:  commit.Date,
			Content: fmt.Sprintf("<p>Git commit: <code>%s</code></p><p>%s</p>",
				escape(shortSHA(commit.SHA)), escape(commit.Message)),
			Category:  result.Category,
			Icon:      "GitCommit",
			Tags:      result.Tags,
			Source:    models.SourceGit,
			SourceRef: commit.SHA,
		})
	}
	return drafts
}
