package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CategoryInfrastructure = "infrastructure"
	CategoryService        = "service"
	CategoryMilestone      = "milestone"
	CategoryFix            = "fix"
	CategoryDocumentation  = "documentation"
	CategoryNetwork        = "network"
	CategoryStorage        = "storage"
)

// Categories is the closed set of event categories.
var Categories = []string{
	CategoryInfrastructure,
	CategoryService,
	CategoryMilestone,
	CategoryFix,
	CategoryDocumentation,
	CategoryNetwork,
	CategoryStorage,
}

const (
	SourceManual     = "manual"
	SourceGit        = "git"
	SourceChangelog  = "changelog"
	SourceGitHub     = "github"
	SourceGitLab     = "gitlab"
	SourceAnsible    = "ansible"
	SourcePrometheus = "prometheus"
	SourceWatchtower = "watchtower"
	SourceImport     = "import"
)

var Sources = []string{
	SourceManual,
	SourceGit,
	SourceChangelog,
	SourceGitHub,
	SourceGitLab,
	SourceAnsible,
	SourcePrometheus,
	SourceWatchtower,
	SourceImport,
}

func IsCategory(v string) bool {
	for _, c := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func IsSource(v string) bool {
	for _, s := range Sources {
		if s == v {
			return true
		}
	}
	return false
}

type Event struct {
	ID                 string                      `gorm:"primaryKey;type:text;comment:event id" json:"id"`
	Title              string                      `gorm:"type:text;not null;index:idx_events_title_date,priority:1;comment:short title" json:"title"`
	Date               time.Time                   `gorm:"not null;index;index:idx_events_title_date,priority:2;comment:when it happened" json:"date"`
	Content            string                      `gorm:"type:text;not null;default:'';comment:html body" json:"content"`
	Category           string                      `gorm:"type:text;not null;index;comment:event category" json:"category"`
	Icon               *string                     `gorm:"type:text;comment:presentation hint" json:"icon,omitempty"`
	Tags               datatypes.JSONSlice[string] `gorm:"comment:lowercase keyword tags" json:"tags"`
	Services           datatypes.JSONSlice[string] `gorm:"comment:affected services" json:"services"`
	Source             string                      `gorm:"type:text;not null;default:manual;index;uniqueIndex:idx_events_source_ref,priority:1;comment:producer" json:"source"`
	SourceRef          *string                     `gorm:"type:text;uniqueIndex:idx_events_source_ref,priority:2;comment:external identifier" json:"sourceRef,omitempty"`
	InfrastructureNode *string                     `gorm:"type:text;index;comment:host the event concerns" json:"infrastructureNode,omitempty"`
	CreatedAt          time.Time                   `json:"createdAt"`
	UpdatedAt          time.Time                   `json:"updatedAt"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(_ *gorm.DB) error {
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if e.Source == "" {
		e.Source = SourceManual
	}
	if e.Tags == nil {
		e.Tags = datatypes.JSONSlice[string]{}
	}
	if e.Services == nil {
		e.Services = datatypes.JSONSlice[string]{}
	}
	e.Date = e.Date.UTC()
	return nil
}

// Node returns the infrastructure node or "".
func (e Event) Node() string {
	if e.InfrastructureNode == nil {
		return ""
	}
	return *e.InfrastructureNode
}

// Ref returns the source reference or "".
func (e Event) Ref() string {
	if e.SourceRef == nil {
		return ""
	}
	return *e.SourceRef
}
