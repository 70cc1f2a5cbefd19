package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/datatypes"

	"chronicle/internal/classifier"
	"chronicle/internal/config"
	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

// CommitLister is the slice of the GitHub repositories API the sync uses.
type CommitLister interface {
	ListCommits(ctx context.Context, owner, repo string, opts *github.CommitsListOptions) ([]*github.RepositoryCommit, *github.Response, error)
}

// SyncRecorder observes finished sync runs.
type SyncRecorder interface {
	SyncFinished(scope string, started time.Time, err error)
}

type GitHubSync struct {
	Store        repository.Repository
	Materializer *Materializer
	Commits      CommitLister
	Recorder     SyncRecorder
	Logger       *zap.Logger
	Repo         string
	Branch       string
	PerPage      int
	Timeout      time.Duration
}

type SyncResult struct {
	Synced   int      `json:"synced"`
	Total    int      `json:"total"`
	Events   int      `json:"events"`
	EventIDs []string `json:"eventIds"`
	Message  string   `json:"message"`
}

// NewGitHubClient authenticates with token when one is configured;
// anonymous clients get the lower public rate limit.
func NewGitHubClient(ctx context.Context, token string, timeout time.Duration) *github.Client {
	if strings.TrimSpace(token) == "" {
		return github.NewClient(&http.Client{Timeout: timeout})
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeout
	return github.NewClient(tc)
}

func NewGitHubSync(ctx context.Context, cfg config.GitHubSyncConfig, store repository.Repository, m *Materializer, logger *zap.Logger) *GitHubSync {
	client := NewGitHubClient(ctx, cfg.Token, cfg.Timeout)
	return &GitHubSync{
		Store:        store,
		Materializer: m,
		Commits:      client.Repositories,
		Logger:       logger,
		Repo:         cfg.Repo,
		Branch:       cfg.Branch,
		PerPage:      cfg.PerPage,
		Timeout:      cfg.Timeout,
	}
}

func (s *GitHubSync) Scope() string {
	return "github:" + s.Repo
}

// Run polls the latest commits on the tracked branch and records one event
// per day of commits not seen before.
func (s *GitHubSync) Run(ctx context.Context) (result SyncResult, err error) {
	started := time.Now().UTC()
	defer func() {
		s.finish(ctx, started, result, err)
	}()

	owner, repo, ok := strings.Cut(strings.TrimSpace(s.Repo), "/")
	if !ok || owner == "" || repo == "" {
		return SyncResult{}, invalidf("github repo must be owner/name, got %q", s.Repo)
	}
	branch := s.Branch
	if branch == "" {
		branch = "main"
	}
	perPage := s.PerPage
	if perPage <= 0 {
		perPage = 30
	}
	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	commits, _, err := s.Commits.ListCommits(callCtx, owner, repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("list github commits: %w", err)
	}
	result = SyncResult{Total: len(commits), EventIDs: []string{}}
	if len(commits) == 0 {
		result.Message = "No commits found"
		return result, nil
	}

	known, err := s.Store.ListSourceRefs(ctx, models.SourceGitHub)
	if err != nil {
		return result, err
	}
	seen := make(map[string]struct{}, len(known))
	for _, ref := range known {
		seen[ref] = struct{}{}
	}
	// Commits arrive newest first; everything from the first known sha on
	// was covered by an earlier run.
	fresh := make([]*github.RepositoryCommit, 0, len(commits))
	for _, c := range commits {
		if _, ok := seen[c.GetSHA()]; ok {
			break
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		result.Message = "All commits already synced"
		return result, nil
	}

	for _, draft := range ingest.PolledCommitDrafts(fresh, s.Repo, branch, classifier.Commit()) {
		outcome, err := s.Materializer.Materialize(ctx, draft)
		if err != nil {
			return result, fmt.Errorf("materialize %s: %w", draft.Title, err)
		}
		if outcome.Created {
			result.EventIDs = append(result.EventIDs, outcome.EventID)
		}
	}
	result.Synced = len(fresh)
	result.Events = len(result.EventIDs)
	result.Message = fmt.Sprintf("Synced %d commits into %d events", result.Synced, result.Events)
	return result, nil
}

func (s *GitHubSync) finish(ctx context.Context, started time.Time, result SyncResult, runErr error) {
	scope := s.Scope()
	if s.Recorder != nil {
		s.Recorder.SyncFinished(scope, started, runErr)
	}
	state, err := s.Store.GetSyncState(ctx, scope)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("load sync state failed", zap.String("scope", scope), zap.Error(err))
		}
		return
	}
	if state == nil {
		state = &models.SyncState{Scope: scope}
	}
	state.LastAttemptAt = &started
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		state.LastSuccessAt = &started
		state.LastError = nil
		if raw, err := json.Marshal(result); err == nil {
			state.StatsJSON = datatypes.JSON(raw)
		}
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("save sync state failed", zap.String("scope", scope), zap.Error(err))
	}
	if s.Logger == nil {
		return
	}
	if runErr != nil {
		s.Logger.Error("github sync failed", zap.String("scope", scope), zap.Error(runErr))
		return
	}
	s.Logger.Info("github sync finished",
		zap.String("scope", scope),
		zap.Int("synced", result.Synced),
		zap.Int("events", result.Events),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// State reports the stored progress for this repository, nil if never run.
func (s *GitHubSync) State(ctx context.Context) (*models.SyncState, error) {
	return s.Store.GetSyncState(ctx, s.Scope())
}
