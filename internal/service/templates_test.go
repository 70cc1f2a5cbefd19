package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/models"
)

func TestTemplateCRUD(t *testing.T) {
	store := newTestStore(t)
	svc := &TemplateService{Store: store}
	ctx := context.Background()

	in := TemplateInput{Name: "Disk swap", Category: "Storage", Tags: []string{"ZFS", "disk"}, Content: "<p>[pool]</p>"}
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryStorage, created.Category)
	assert.Equal(t, []string{"zfs", "disk"}, []string(created.Tags))
	assert.False(t, created.IsBuiltIn)

	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, TemplateInput{Name: "No body", Category: models.CategoryFix})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Create(ctx, TemplateInput{Name: "Bad", Category: "gardening", Content: "x"})
	require.ErrorIs(t, err, ErrInvalid)

	other, err := svc.Create(ctx, TemplateInput{Name: "Cert renewal", Category: models.CategoryService, Content: "<p>[domain]</p>"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, other.ID, TemplateInput{Name: "Disk swap", Category: models.CategoryService, Content: "x"})
	require.ErrorIs(t, err, ErrConflict)

	updated, err := svc.Update(ctx, other.ID, TemplateInput{Name: "Certificate renewal", Category: models.CategoryService, Content: "<p>[domain]</p>"})
	require.NoError(t, err)
	got, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Name, got.Name)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
	_, err = svc.Update(ctx, "missing", in)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeedBuiltInTemplates(t *testing.T) {
	store := newTestStore(t)
	svc := &TemplateService{Store: store}
	ctx := context.Background()

	custom, err := svc.Create(ctx, TemplateInput{Name: "Aaa custom", Category: models.CategoryFix, Content: "x"})
	require.NoError(t, err)

	n, err := svc.SeedBuiltIns(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(builtInTemplates()), n)

	again, err := svc.SeedBuiltIns(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, len(builtInTemplates())+1)
	assert.True(t, items[0].IsBuiltIn)
	assert.Equal(t, custom.ID, items[len(items)-1].ID)
	for _, tpl := range items[:len(items)-1] {
		assert.True(t, models.IsCategory(tpl.Category), tpl.Name)
	}

	err = svc.Delete(ctx, items[0].ID)
	require.ErrorIs(t, err, ErrForbidden)

	edited, err := svc.Update(ctx, items[0].ID, TemplateInput{Name: items[0].Name, Category: items[0].Category, Content: "<p>mine</p>"})
	require.NoError(t, err)
	assert.True(t, edited.IsBuiltIn)
}
