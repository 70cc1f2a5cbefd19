package service

import (
	"gorm.io/datatypes"

	"chronicle/internal/models"
)

func builtInTemplates() []models.EventTemplate {
	tpl := func(name, description, category, icon string, tags []string, content string) models.EventTemplate {
		return models.EventTemplate{
			Name:        name,
			Description: &description,
			Category:    category,
			Icon:        &icon,
			Tags:        datatypes.JSONSlice[string](tags),
			Content:     content,
			Services:    datatypes.JSONSlice[string]{},
		}
	}
	return []models.EventTemplate{
		tpl("Container Deployment", "New Docker container deployed", models.CategoryService, "Container",
			[]string{"docker", "deployment"},
			`<h4>Container</h4><ul><li><strong>Image:</strong> [image:tag]</li><li><strong>Port:</strong> [port]</li><li><strong>Host:</strong> [host]</li></ul>`+
				`<h4>Compose</h4><pre><code>[docker-compose snippet]</code></pre><h4>Notes</h4><p>[notes]</p>`),
		tpl("VM Creation", "New virtual machine created", models.CategoryInfrastructure, "Server",
			[]string{"proxmox", "vm"},
			`<h4>VM</h4><ul><li><strong>VMID:</strong> [vmid]</li><li><strong>Hostname:</strong> [hostname]</li><li><strong>IP:</strong> [ip]</li>`+
				`<li><strong>Node:</strong> [node]</li><li><strong>Resources:</strong> [cores] cores, [memory]GB RAM, [disk]GB disk</li></ul><h4>Purpose</h4><p>[description]</p>`),
		tpl("LXC Container", "New LXC container created", models.CategoryInfrastructure, "Box",
			[]string{"proxmox", "lxc"},
			`<h4>LXC</h4><ul><li><strong>VMID:</strong> [vmid]</li><li><strong>Hostname:</strong> [hostname]</li><li><strong>IP:</strong> [ip]</li>`+
				`<li><strong>Node:</strong> [node]</li><li><strong>Template:</strong> [template]</li></ul><h4>Features</h4><p>[nesting, keyctl]</p>`),
		tpl("Network Change", "Network configuration change", models.CategoryNetwork, "Network",
			[]string{"network", "configuration"},
			`<h4>Summary</h4><p>[what changed]</p><h4>Before</h4><pre><code>[previous config]</code></pre>`+
				`<h4>After</h4><pre><code>[new config]</code></pre><h4>Affected services</h4><ul><li>[service]</li></ul>`),
		tpl("Bug Fix", "Issue resolved", models.CategoryFix, "Bug",
			[]string{"fix", "troubleshooting"},
			`<h4>Problem</h4><p>[issue]</p><h4>Root cause</h4><p>[cause]</p><h4>Solution</h4><p>[fix]</p><h4>Prevention</h4><p>[prevention]</p>`),
		tpl("Backup/Restore", "Backup or restore operation", models.CategoryStorage, "Database",
			[]string{"backup", "storage"},
			`<h4>Operation</h4><p>[backup/restore] of [what]</p><ul><li><strong>Size:</strong> [size]</li>`+
				`<li><strong>Duration:</strong> [duration]</li><li><strong>Location:</strong> [path]</li></ul><h4>Verification</h4><p>[how verified]</p>`),
		tpl("Service Migration", "Service migrated between hosts", models.CategoryMilestone, "ArrowRightLeft",
			[]string{"migration", "infrastructure"},
			`<h4>Summary</h4><p>[service] moved from [source] to [destination]</p><h4>Steps</h4><ol><li>[step]</li></ol>`+
				`<h4>Downtime</h4><p>[duration]</p><h4>Verification</h4><p>[how verified]</p>`),
		tpl("Documentation Update", "Documentation added or updated", models.CategoryDocumentation, "FileText",
			[]string{"docs", "documentation"},
			`<h4>Changes</h4><p>[what was documented]</p><h4>Files</h4><ul><li>[file]</li></ul><p><a href="[url]">View documentation</a></p>`),
	}
}
