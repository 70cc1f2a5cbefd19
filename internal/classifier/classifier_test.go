package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/models"
)

func TestCommitCategoryOrder(t *testing.T) {
	c := Commit()
	tests := []struct {
		text string
		want string
	}{
		{"feat: fix login bug", models.CategoryFix},
		{"Fix typo in README", models.CategoryFix},
		{"update readme", models.CategoryDocumentation},
		{"feat: add grafana dashboard", models.CategoryService},
		{"refactor helm values", models.CategoryInfrastructure},
		{"run tests nightly", models.CategoryInfrastructure},
		{"deploy to cluster", models.CategoryService},
		{"bump versions", models.CategoryInfrastructure},
		{"", models.CategoryInfrastructure},
	}
	for _, tt := range tests {
		got := c.Category(tt.text, Hints{})
		assert.Equalf(t, tt.want, got, "Category(%q)", tt.text)
	}
}

func TestGitLogVariant(t *testing.T) {
	c := GitLog()
	tests := []struct {
		text string
		want string
	}{
		{"fix: typo in docs", models.CategoryDocumentation},
		{"fix: broken nfs mount", models.CategoryFix},
		{"feat: add k8s worker node", models.CategoryInfrastructure},
		{"feat: traefik middleware", models.CategoryNetwork},
		{"feat: nfs share for media", models.CategoryStorage},
		{"feat: jellyfin", models.CategoryService},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, c.Category(tt.text, Hints{}), "Category(%q)", tt.text)
	}
}

func TestHintFallback(t *testing.T) {
	c := Alert()
	assert.Equal(t, models.CategoryFix, c.Category("HostUnreachable", Hints{Fallback: models.CategoryFix}))
	assert.Equal(t, models.CategoryInfrastructure, c.Category("HostUnreachable", Hints{}))
	// A firing rule wins over the hint.
	assert.Equal(t, models.CategoryStorage, c.Category("DiskAlmostFull", Hints{Fallback: models.CategoryFix}))
}

func TestTagsSubstringMatch(t *testing.T) {
	res := Commit().Classify("proxmoxclone", Hints{})
	require.Equal(t, []string{"proxmox"}, res.Tags)

	res = Commit().Classify("Move Traefik to K8S behind DNS", Hints{})
	assert.ElementsMatch(t, []string{"kubernetes", "traefik", "network"}, res.Tags)
}

func TestTagsDeduplicated(t *testing.T) {
	c := Classifier{Tags: []TagRule{
		{Tag: "dash", Keywords: []string{"grafana"}},
		{Tag: "dash", Keywords: []string{"dashboard"}},
	}}
	assert.Equal(t, []string{"dash"}, c.DeriveTags("grafana dashboard"))
	assert.Empty(t, c.DeriveTags(""))
}

func TestClassifyDeterministic(t *testing.T) {
	c := Changelog()
	text := "Added new NAS storage pool for backups"
	first := c.Classify(text, Hints{})
	for i := 0; i < 5; i++ {
		require.Equal(t, first, c.Classify(text, Hints{}))
	}
	assert.Equal(t, models.CategoryStorage, first.Category)
}

func TestAnsibleProfile(t *testing.T) {
	c := Ansible()
	assert.Equal(t, models.CategoryService, c.Category("deploy-jellyfin", Hints{}))
	assert.Equal(t, models.CategoryNetwork, c.Category("update-dns-records", Hints{}))
	assert.Equal(t, models.CategoryFix, c.Category("patch-hosts", Hints{Fallback: models.CategoryFix}))
}
