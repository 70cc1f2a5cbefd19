package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chronicle/internal/ingest"
	"chronicle/internal/models"
	"chronicle/internal/repository"
)

type TemplateService struct {
	Store  repository.Repository
	Logger *zap.Logger
}

type TemplateInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Category    string   `json:"category"`
	Icon        *string  `json:"icon"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
	Services    []string `json:"services"`
}

func (in TemplateInput) apply(t *models.EventTemplate) error {
	name := strings.TrimSpace(in.Name)
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if name == "" || category == "" || strings.TrimSpace(in.Content) == "" {
		return invalidf("name, category and content are required")
	}
	if !models.IsCategory(category) {
		return invalidf("category must be one of %s", strings.Join(models.Categories, ", "))
	}
	t.Name = name
	t.Description = optional(in.Description)
	t.Category = category
	t.Icon = optional(in.Icon)
	t.Tags = ingest.NormalizeTags(in.Tags)
	t.Content = in.Content
	t.Services = ingest.UniqueStrings(in.Services)
	return nil
}

func (s *TemplateService) List(ctx context.Context) ([]models.EventTemplate, error) {
	return s.Store.ListTemplates(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id string) (*models.EventTemplate, error) {
	t, err := s.Store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFoundf("template %s", id)
	}
	return t, nil
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*models.EventTemplate, error) {
	t := &models.EventTemplate{}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.Store.CreateTemplate(ctx, t); err != nil {
		return nil, templateConflict(err, t.Name)
	}
	return t, nil
}

// Update rewrites every editable field; built-in templates may be edited
// but keep their flag.
func (s *TemplateService) Update(ctx context.Context, id string, in TemplateInput) (*models.EventTemplate, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateTemplate(ctx, t); err != nil {
		return nil, templateConflict(err, t.Name)
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.IsBuiltIn {
		return fmt.Errorf("%w: built-in template %q cannot be deleted", ErrForbidden, t.Name)
	}
	return s.Store.DeleteTemplate(ctx, id)
}

// SeedBuiltIns creates the built-in templates that are missing by name.
// Existing rows, edited or not, are left alone.
func (s *TemplateService) SeedBuiltIns(ctx context.Context) (int, error) {
	existing, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[t.Name] = struct{}{}
	}
	created := 0
	for _, t := range builtInTemplates() {
		if _, ok := have[t.Name]; ok {
			continue
		}
		t.IsBuiltIn = true
		if err := s.Store.CreateTemplate(ctx, &t); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return created, err
		}
		created++
	}
	if created > 0 && s.Logger != nil {
		s.Logger.Info("built-in templates seeded", zap.Int("created", created))
	}
	return created, nil
}

func templateConflict(err error, name string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: template with name %q already exists", ErrConflict, name)
	}
	return err
}
