package classifier

import "chronicle/internal/models"

// DefaultTags is the keyword table shared by every profile.
func DefaultTags() []TagRule {
	return []TagRule{
		{Tag: "proxmox", Keywords: []string{"proxmox", "pve", "virtualization"}},
		{Tag: "kubernetes", Keywords: []string{"kubernetes", "k8s", "k3s"}},
		{Tag: "docker", Keywords: []string{"docker", "container", "compose"}},
		{Tag: "terraform", Keywords: []string{"terraform", "iac"}},
		{Tag: "ansible", Keywords: []string{"ansible", "playbook", "automation"}},
		{Tag: "grafana", Keywords: []string{"grafana", "monitoring", "dashboard"}},
		{Tag: "traefik", Keywords: []string{"traefik", "proxy", "routing"}},
		{Tag: "network", Keywords: []string{"network", "vlan", "dns"}},
		{Tag: "storage", Keywords: []string{"storage", "nas", "nfs", "synology"}},
		{Tag: "glance", Keywords: []string{"glance", "dashboard"}},
		{Tag: "prometheus", Keywords: []string{"prometheus"}},
		{Tag: "authentik", Keywords: []string{"authentik"}},
		{Tag: "jellyfin", Keywords: []string{"jellyfin"}},
		{Tag: "observability", Keywords: []string{"observability", "monitoring"}},
	}
}

func commitRules() []CategoryRule {
	return []CategoryRule{
		{Category: models.CategoryFix, Keywords: []string{"fix", "bug"}},
		{Category: models.CategoryDocumentation, Keywords: []string{"doc", "readme"}},
		{Category: models.CategoryService, Keywords: []string{"feat", "add"}},
		{Category: models.CategoryInfrastructure, Keywords: []string{"refactor", "clean"}},
		{Category: models.CategoryInfrastructure, Keywords: []string{"test"}},
		{Category: models.CategoryService, Keywords: []string{"deploy", "ci"}},
	}
}

// Commit classifies commit messages from GitHub and GitLab pushes.
func Commit() Classifier {
	return Classifier{
		Rules:    commitRules(),
		Tags:     DefaultTags(),
		Fallback: models.CategoryInfrastructure,
	}
}

// GitLog classifies commits read from a local repository. Typo fixes are
// not treated as fixes, and feature commits are narrowed by subject area.
func GitLog() Classifier {
	rules := commitRules()
	rules[0].Except = []string{"typo"}
	rules[2].Refinements = []CategoryRule{
		{Category: models.CategoryInfrastructure, Keywords: []string{"k8s", "kubernetes", "proxmox"}},
		{Category: models.CategoryNetwork, Keywords: []string{"network", "vlan", "traefik"}},
		{Category: models.CategoryStorage, Keywords: []string{"storage", "nas", "nfs"}},
	}
	return Classifier{
		Rules:    rules,
		Tags:     DefaultTags(),
		Fallback: models.CategoryInfrastructure,
	}
}

// Ansible classifies playbook names.
func Ansible() Classifier {
	return Classifier{
		Rules: []CategoryRule{
			{Category: models.CategoryService, Keywords: []string{"deploy"}},
			{Category: models.CategoryStorage, Keywords: []string{"backup"}},
			{Category: models.CategoryNetwork, Keywords: []string{"network", "dns"}},
			{Category: models.CategoryInfrastructure, Keywords: []string{"monitor"}},
			{Category: models.CategoryFix, Keywords: []string{"fix", "rollback"}},
			{Category: models.CategoryDocumentation, Keywords: []string{"doc"}},
		},
		Tags:     DefaultTags(),
		Fallback: models.CategoryInfrastructure,
	}
}

// Alert classifies Prometheus alert names.
func Alert() Classifier {
	return Classifier{
		Rules: []CategoryRule{
			{Category: models.CategoryService, Keywords: []string{"container", "docker"}},
			{Category: models.CategoryStorage, Keywords: []string{"disk", "storage"}},
			{Category: models.CategoryNetwork, Keywords: []string{"network", "interface"}},
			{Category: models.CategoryInfrastructure, Keywords: []string{"memory", "cpu"}},
			{Category: models.CategoryStorage, Keywords: []string{"backup"}},
		},
		Tags:     DefaultTags(),
		Fallback: models.CategoryInfrastructure,
	}
}

// Changelog classifies CHANGELOG.md sections.
func Changelog() Classifier {
	return Classifier{
		Rules: []CategoryRule{
			{
				Category: models.CategoryMilestone,
				Keywords: []string{"added", "new"},
				Refinements: []CategoryRule{
					{Category: models.CategoryService, Keywords: []string{"service", "deploy"}},
					{Category: models.CategoryInfrastructure, Keywords: []string{"infrastructure", "node", "vm"}},
					{Category: models.CategoryNetwork, Keywords: []string{"network", "vlan"}},
					{Category: models.CategoryStorage, Keywords: []string{"storage", "nas"}},
				},
			},
			{Category: models.CategoryFix, Keywords: []string{"fixed", "fix"}},
			{Category: models.CategoryDocumentation, Keywords: []string{"documentation", "docs"}},
			{Category: models.CategoryMilestone, Keywords: []string{"changed", "updated"}},
		},
		Tags:     DefaultTags(),
		Fallback: models.CategoryMilestone,
	}
}
