package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/classifier"
	"chronicle/internal/models"
)

var fixedNow = time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC)

const githubPushBody = `{
  "ref": "refs/heads/main",
  "compare": "https://github.com/acme/homelab/compare/a...b",
  "repository": {"name": "homelab", "html_url": "https://github.com/acme/homelab"},
  "pusher": {"name": "alice"},
  "commits": [
    {"id": "1111111aaaa", "message": "feat: add traefik route", "timestamp": "2024-12-19T10:00:00Z",
     "url": "https://github.com/acme/homelab/commit/1111111aaaa", "author": {"name": "Alice"}, "added": ["a.yml"]},
    {"id": "2222222bbbb", "message": "fix: bug in dns records\n\nlonger body", "timestamp": "2024-12-19T11:00:00Z",
     "url": "https://github.com/acme/homelab/commit/2222222bbbb", "author": {"name": "Bob"}}
  ],
  "head_commit": {"id": "2222222bbbb", "message": "fix: bug in dns records", "timestamp": "2024-12-19T11:00:00Z"}
}`

func githubHeader(event, secret string, body []byte) http.Header {
	h := http.Header{}
	h.Set("X-GitHub-Event", event)
	h.Set("X-GitHub-Delivery", "delivery-1")
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		h.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	return h
}

func TestGitHubVerify(t *testing.T) {
	body := []byte(githubPushBody)
	g := NewGitHub("s3cret")

	require.NoError(t, g.Verify(githubHeader("push", "s3cret", body), body))
	assert.ErrorIs(t, g.Verify(githubHeader("push", "wrong", body), body), ErrInvalidSignature)
	assert.ErrorIs(t, g.Verify(githubHeader("push", "", body), body), ErrInvalidSignature)

	unsigned := NewGitHub("")
	assert.NoError(t, unsigned.Verify(http.Header{}, body))
}

func TestGitHubPush(t *testing.T) {
	body := []byte(githubPushBody)
	g := NewGitHub("")
	res, err := g.Parse(Request{Header: githubHeader("push", "", body), Body: body, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)

	d := res.Drafts[0]
	assert.Equal(t, "2 commits pushed to main", d.Title)
	assert.Equal(t, models.CategoryFix, d.Category)
	assert.Equal(t, "2222222bbbb", d.SourceRef)
	assert.Equal(t, models.SourceGitHub, d.Source)
	assert.Equal(t, time.Date(2024, 12, 19, 11, 0, 0, 0, time.UTC), d.Date)
	assert.Equal(t, []string{"homelab"}, d.Services)
	assert.Subset(t, d.Tags, []string{"github", "automated", "push", "main", "alice", "bob", "traefik", "network"})
	assert.Contains(t, d.Content, "<code><a href=\"https://github.com/acme/homelab/commit/1111111aaaa\"")
	assert.Contains(t, d.Content, "fix: bug in dns records<br>")
	assert.NotContains(t, d.Content, "longer body")
}

func TestGitHubFiltering(t *testing.T) {
	g := NewGitHub("")

	dev := []byte(strings.Replace(githubPushBody, "refs/heads/main", "refs/heads/dev", 1))
	res, err := g.Parse(Request{Header: githubHeader("push", "", dev), Body: dev})
	require.NoError(t, err)
	assert.Empty(t, res.Drafts)
	assert.Equal(t, "skipped-branch", res.Marker)

	res, err = g.Parse(Request{Header: githubHeader("ping", "", nil), Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Empty(t, res.Drafts)
	assert.Equal(t, "ping", res.Marker)

	res, err = g.Parse(Request{Header: githubHeader("issues", "", nil), Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Marker)

	empty := []byte(`{"ref":"refs/heads/master","commits":[]}`)
	res, err = g.Parse(Request{Header: githubHeader("push", "", empty), Body: empty})
	require.NoError(t, err)
	assert.Equal(t, "skipped-no-commits", res.Marker)

	_, err = g.Parse(Request{Header: githubHeader("push", "", nil), Body: []byte(`{not json`)})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGitHubSingleCommitTitle(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main","repository":{"name":"r"},"commits":[{"id":"abc","message":"docs: readme","timestamp":"2024-12-19T10:00:00Z"}]}`)
	res, err := NewGitHub("").Parse(Request{Header: githubHeader("push", "", body), Body: body, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "1 commit pushed to main", res.Drafts[0].Title)
	assert.Equal(t, "abc", res.Drafts[0].SourceRef)
	assert.Equal(t, models.CategoryDocumentation, res.Drafts[0].Category)
}

func gitlabHeader(event, token string) http.Header {
	h := http.Header{}
	h.Set("X-Gitlab-Event", event)
	if token != "" {
		h.Set("X-Gitlab-Token", token)
	}
	return h
}

func TestGitLab(t *testing.T) {
	g := NewGitLab("tok")
	assert.NoError(t, g.Verify(gitlabHeader("Push Hook", "tok"), nil))
	assert.ErrorIs(t, g.Verify(gitlabHeader("Push Hook", "nope"), nil), ErrInvalidSignature)
	assert.ErrorIs(t, g.Verify(gitlabHeader("Push Hook", ""), nil), ErrInvalidSignature)

	push := []byte(`{"ref":"refs/heads/main","checkout_sha":"cafebabe","total_commits_count":1,
	  "project":{"name":"infra","web_url":"https://gitlab.example/infra"},
	  "commits":[{"id":"cafebabe","message":"deploy jellyfin","timestamp":"2024-12-18T08:00:00Z","author":{"name":"Carol"}}]}`)
	res, err := g.Parse(Request{Header: gitlabHeader("Push Hook", "tok"), Body: push, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	d := res.Drafts[0]
	assert.Equal(t, "1 commit pushed to main", d.Title)
	assert.Equal(t, "cafebabe", d.SourceRef)
	assert.Equal(t, models.CategoryService, d.Category)
	assert.Equal(t, time.Date(2024, 12, 18, 8, 0, 0, 0, time.UTC), d.Date)
	assert.Contains(t, d.Tags, "jellyfin")

	feature := []byte(`{"ref":"refs/heads/feature/x","commits":[{"id":"1"}]}`)
	res, err = g.Parse(Request{Header: gitlabHeader("Push Hook", "tok"), Body: feature})
	require.NoError(t, err)
	assert.Equal(t, "skipped-branch", res.Marker)

	running := []byte(`{"project":{"name":"infra"},"object_attributes":{"id":42,"status":"running"}}`)
	res, err = g.Parse(Request{Header: gitlabHeader("Pipeline Hook", "tok"), Body: running})
	require.NoError(t, err)
	assert.Equal(t, "skipped-status", res.Marker)

	failed := []byte(`{"project":{"name":"infra"},"object_attributes":{"id":42,"status":"failed","ref":"main","duration":61}}`)
	res, err = g.Parse(Request{Header: gitlabHeader("Pipeline Hook", "tok"), Body: failed, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "Pipeline failed: infra", res.Drafts[0].Title)
	assert.Equal(t, models.CategoryFix, res.Drafts[0].Category)
	assert.Equal(t, "pipeline-42-failed", res.Drafts[0].SourceRef)

	mr := []byte(`{"project":{"name":"infra"},"user":{"name":"Dan"},"object_attributes":{"iid":7,"title":"Add NFS storage","state":"merged","action":"merge"}}`)
	res, err = g.Parse(Request{Header: gitlabHeader("Merge Request Hook", "tok"), Body: mr, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "MR merge: Add NFS storage", res.Drafts[0].Title)
	assert.Equal(t, models.CategoryMilestone, res.Drafts[0].Category)
	assert.Equal(t, "mr-7-merge", res.Drafts[0].SourceRef)

	res, err = g.Parse(Request{Header: gitlabHeader("Tag Push Hook", "tok"), Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Marker)
}

func TestAnsibleTitles(t *testing.T) {
	a := NewAnsible()
	tests := []struct {
		name     string
		body     string
		title    string
		category string
	}{
		{
			name:     "completed with changes",
			body:     `{"playbook":"deploy-traefik.yml","status":"completed","changed_count":3,"started":"2024-12-19T10:00:00Z","hosts":{"pve02":{"ok":5,"changed":3},"pve01":{"ok":5}}}`,
			title:    "Playbook Completed: deploy-traefik.yml (3 changed)",
			category: models.CategoryService,
		},
		{
			name:     "completed without changes",
			body:     `{"playbook":"deploy-traefik.yml","status":"completed","changed_count":0}`,
			title:    "Playbook Completed: deploy-traefik.yml",
			category: models.CategoryService,
		},
		{
			name:     "failed falls back to fix",
			body:     `{"playbook":"update-hosts.yml","status":"failed","failed_tasks":[{"host":"pve01","task":"apt","msg":"lock held"}]}`,
			title:    "Playbook Failed: update-hosts.yml",
			category: models.CategoryFix,
		},
		{
			name:     "started",
			body:     `{"playbook":"backup.yml","status":"started"}`,
			title:    "Playbook Started: backup.yml",
			category: models.CategoryStorage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Parse(Request{Body: []byte(tt.body), Now: fixedNow})
			require.NoError(t, err)
			require.Len(t, res.Drafts, 1)
			assert.Equal(t, tt.title, res.Drafts[0].Title)
			assert.Equal(t, tt.category, res.Drafts[0].Category)
			assert.Contains(t, res.Drafts[0].Tags, "ansible")
		})
	}
}

func TestAnsibleNodeAndContent(t *testing.T) {
	body := `{"playbook":"deploy-traefik.yml","status":"completed","started":"2024-12-19T10:00:00Z","hosts":{"pve02":{"ok":5},"pve01":{"ok":5,"failed":1}},"failed_tasks":[{"host":"pve01","task":"restart","msg":"<boom>"}]}`
	res, err := NewAnsible().Parse(Request{Body: []byte(body), Now: fixedNow})
	require.NoError(t, err)
	d := res.Drafts[0]
	assert.Equal(t, "pve01", d.InfrastructureNode)
	assert.Equal(t, []string{"pve01", "pve02"}, d.Services)
	assert.Equal(t, "deploy-traefik.yml@2024-12-19T10:00:00Z:completed", d.SourceRef)
	assert.Contains(t, d.Content, `<tr style="color: red"><td>pve01</td>`)
	assert.Contains(t, d.Content, "&lt;boom&gt;")

	withController := `{"playbook":"site.yml","status":"completed","controller":"ansible-ctl","hosts":{"a":{}}}`
	res, err = NewAnsible().Parse(Request{Body: []byte(withController), Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, "ansible-ctl", res.Drafts[0].InfrastructureNode)

	_, err = NewAnsible().Parse(Request{Body: []byte(`{"status":"completed"}`)})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPrometheusOneEventPerAlert(t *testing.T) {
	body := `{"status":"firing","alerts":[
	  {"status":"firing","fingerprint":"fp-1","startsAt":"2024-12-19T10:00:00Z","endsAt":"0001-01-01T00:00:00Z",
	   "labels":{"alertname":"HighMemoryUsage","instance":"pve01:9100","job":"node","severity":"critical"},
	   "annotations":{"summary":"memory above 90%"}},
	  {"status":"resolved","startsAt":"2024-12-19T09:00:00Z","endsAt":"2024-12-19T09:30:00Z",
	   "labels":{"alertname":"NodeExporterDown","job":"node","node":"pve02"}}
	]}`
	p := NewPrometheus()
	res, err := p.Parse(Request{Body: []byte(body), Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 2)

	firing := res.Drafts[0]
	assert.Equal(t, "Alert: HighMemoryUsage on pve01:9100", firing.Title)
	assert.Equal(t, models.CategoryInfrastructure, firing.Category)
	assert.Equal(t, "fp-1:firing@2024-12-19T10:00:00Z", firing.SourceRef)
	assert.Equal(t, "pve01", firing.InfrastructureNode)
	assert.Equal(t, "AlertOctagon", firing.Icon)
	assert.Equal(t, []string{"node"}, firing.Services)
	assert.Subset(t, firing.Tags, []string{"prometheus", "alert", "firing", "critical", "node"})
	assert.NotContains(t, firing.Content, "Duration")

	resolved := res.Drafts[1]
	assert.Equal(t, "Resolved: NodeExporterDown on node", resolved.Title)
	assert.Equal(t, models.CategoryFix, resolved.Category)
	assert.Equal(t, "pve02", resolved.InfrastructureNode)
	assert.True(t, strings.HasPrefix(resolved.SourceRef, "digest-"))
	assert.Contains(t, resolved.Content, "Duration:</strong> 30m0s")

	again, err := p.Parse(Request{Body: []byte(body), Now: fixedNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, resolved.SourceRef, again.Drafts[1].SourceRef)

	res, err = p.Parse(Request{Body: []byte(`{"alerts":[]}`)})
	require.NoError(t, err)
	assert.Empty(t, res.Drafts)

	refire, err := p.Parse(Request{Body: []byte(`{"alerts":[{"status":"firing","fingerprint":"fp-1","startsAt":"2024-12-21T08:00:00Z",
	  "labels":{"alertname":"HighMemoryUsage","instance":"pve01:9100"}}]}`)})
	require.NoError(t, err)
	require.Len(t, refire.Drafts, 1)
	assert.Equal(t, "fp-1:firing@2024-12-21T08:00:00Z", refire.Drafts[0].SourceRef)
}

func TestWatchtower(t *testing.T) {
	w := NewWatchtower()

	res, err := w.Parse(Request{Body: []byte(`[{"name":"a","state":"Fresh"}]`), LogID: "log-1", Now: fixedNow})
	require.NoError(t, err)
	assert.Empty(t, res.Drafts)
	assert.Equal(t, "All containers up to date", res.Message)

	res, err = w.Parse(Request{Body: []byte(`[{"name":"a","state":"Updated","currentImage":"nginx:1.25","latestImage":"nginx:1.27"}]`), LogID: "log-2", Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	d := res.Drafts[0]
	assert.Equal(t, models.CategoryService, d.Category)
	assert.Equal(t, "1 container updated", d.Title)
	assert.Equal(t, "log-2", d.SourceRef)
	assert.Equal(t, fixedNow, d.Date)
	assert.Contains(t, d.Content, "<code>nginx:1.25</code> &rarr; <code>nginx:1.27</code>")

	res, err = w.Parse(Request{Body: []byte(`{"updates":[{"name":"db","state":"Failed","error":"pull denied"},{"name":"web","state":"Updated"}]}`), Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "Container Updates: 1 updated, 1 failed", res.Drafts[0].Title)
	assert.Equal(t, models.CategoryFix, res.Drafts[0].Category)
	assert.Contains(t, res.Drafts[0].Tags, "failed")

	res, err = w.Parse(Request{Body: []byte("nginx: Updated, redis: Fresh\ngrafana: Updated"), Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, []string{"nginx", "grafana"}, res.Drafts[0].Services)
	assert.Equal(t, "2 containers updated", res.Drafts[0].Title)

	res, err = w.Parse(Request{Body: []byte("   "), Now: fixedNow})
	require.NoError(t, err)
	assert.Empty(t, res.Drafts)
	assert.Equal(t, "No updates in payload", res.Message)
}

func TestParseContainerUpdatesShapes(t *testing.T) {
	single := ParseContainerUpdates([]byte(`{"name":"x","state":"Updated"}`))
	require.Len(t, single, 1)
	assert.Equal(t, "x", single[0].Name)

	entries := ParseContainerUpdates([]byte(`{"entries":[{"name":"y","state":"Fresh"},{"name":"z","state":"Updated"}]}`))
	assert.Len(t, entries, 2)
}

const changelogDoc = `# Changelog

## [2024-12-20]
### Added
- Deployed Traefik service on new LXC
- Grafana dashboard

## [2024-12-19]
- Fixed NFS mount on pve node

## Unreleased
- not dated
`

func TestParseChangelog(t *testing.T) {
	drafts := ParseChangelog(changelogDoc, classifier.Changelog())
	require.Len(t, drafts, 2)

	assert.Equal(t, "Added", drafts[0].Title)
	assert.Equal(t, time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), drafts[0].Date)
	assert.Equal(t, models.CategoryService, drafts[0].Category)
	assert.Subset(t, drafts[0].Tags, []string{"traefik", "grafana"})
	assert.Contains(t, drafts[0].Content, "<li>Grafana dashboard</li>")
	assert.Empty(t, drafts[0].SourceRef)
	assert.Equal(t, models.SourceChangelog, drafts[0].Source)

	assert.Equal(t, "Fixed NFS mount on pve node", drafts[1].Title)
	assert.Equal(t, models.CategoryFix, drafts[1].Category)
}

func TestParseChangelogLongTitle(t *testing.T) {
	long := strings.Repeat("x", 120)
	drafts := ParseChangelog("## 2024-01-02\n* "+long+"\n", classifier.Changelog())
	require.Len(t, drafts, 1)
	assert.Len(t, drafts[0].Title, 80)
	assert.True(t, strings.HasSuffix(drafts[0].Title, "..."))
}

func TestGitLog(t *testing.T) {
	text := strings.Join([]string{
		"abc123|2024-12-19 10:00:00 +0100|Alice|feat(k8s): add worker node",
		"def456|2024-12-18 09:00:00 +0000|Bob|fix: typo in readme",
		"ghi789|2024-12-17 09:00:00 +0000|Bob|chore: bump deps | pipes",
		"garbage",
	}, "\n")
	commits := ParseGitLog(text)
	require.Len(t, commits, 3)
	assert.Equal(t, time.Date(2024, 12, 19, 9, 0, 0, 0, time.UTC), commits[0].Date)
	assert.Equal(t, "chore: bump deps | pipes", commits[2].Message)

	drafts := GitDrafts(commits, classifier.GitLog())
	require.Len(t, drafts, 1)
	d := drafts[0]
	assert.Equal(t, "Add worker node", d.Title)
	assert.Equal(t, models.CategoryInfrastructure, d.Category)
	assert.Equal(t, "abc123", d.SourceRef)
	assert.Equal(t, models.SourceGit, d.Source)
	assert.Equal(t, []string{"kubernetes"}, d.Tags)
}

func TestCommitTitle(t *testing.T) {
	assert.Equal(t, "Handle nil", CommitTitle("fix(api): handle nil"))
	assert.Equal(t, "Deploy grafana", CommitTitle("deploy grafana"))
	title := CommitTitle("feat: " + strings.Repeat("a", 150))
	assert.Len(t, title, 100)
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestSignificant(t *testing.T) {
	assert.True(t, Significant("feat: anything"))
	assert.True(t, Significant("fix: broken route"))
	assert.False(t, Significant("fix: typo"))
	assert.True(t, Significant("bump lxc template"))
	assert.False(t, Significant("chore: bump deps"))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"docker", "traefik"}, NormalizeTags([]string{" Docker ", "traefik"}, []string{"docker", ""}))
	assert.Equal(t, []string{}, NormalizeTags())
}
