package crud

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	db.Model
	Name   string `gorm:"type:text;not null" json:"name" validate:"required,max=20"`
	Code   string `gorm:"type:text" json:"code"`
	Active bool   `json:"active"`
	Label  string `gorm:"-" json:"label"`
	db.SoftDelete
}

type entry struct {
	db.Model
	Note string `json:"note"`
}

func newWidgets(t *testing.T, cfg Config[widget]) (*Service[widget, *widget], *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest(&widget{}, &entry{})
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return New[widget](conn, repository.ProvideStore[widget](conn), node, clk, cfg), conn
}

func inBusiness(id snowflake.ID) context.Context {
	return bizcontext.WithBusiness(context.Background(), id, nil)
}

func TestCreateScopesToBusiness(t *testing.T) {
	svc, _ := newWidgets(t, Config[widget]{Name: "widget"})

	created, err := svc.Create(inBusiness(10), &widget{Name: "bolt"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, snowflake.ID(10), created.BusinessID)

	_, err = svc.Get(inBusiness(11), created.ID)
	assert.ErrorIs(t, err, apperror.NotFound("widget_not_found"))

	_, err = svc.Create(context.Background(), &widget{Name: "nut"})
	assert.ErrorIs(t, err, ErrInvalidBusiness)
}

func TestCreateRunsValidation(t *testing.T) {
	svc, _ := newWidgets(t, Config[widget]{
		Validate: func(_ context.Context, _ *gorm.DB, item, _ *widget) error {
			if item.Code == "bad" {
				return apperror.Validation("code", "invalid_code", "bad code")
			}
			return nil
		},
	})

	_, err := svc.Create(inBusiness(1), &widget{})
	assert.Error(t, err)

	_, err = svc.Create(inBusiness(1), &widget{Name: "ok", Code: "bad"})
	assert.ErrorIs(t, err, apperror.Validation("code", "invalid_code", ""))
}

func TestUpdateMergesAndProtectsFields(t *testing.T) {
	svc, _ := newWidgets(t, Config[widget]{ReadOnly: []string{"code"}})
	ctx := inBusiness(1)

	created, err := svc.Create(ctx, &widget{Name: "bolt", Code: "B-1", Active: true})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, map[string]json.RawMessage{
		"name":        json.RawMessage(`"screw"`),
		"code":        json.RawMessage(`"HACK"`),
		"business_id": json.RawMessage(`"999"`),
		"id":          json.RawMessage(`"5"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "screw", updated.Name)
	assert.Equal(t, "B-1", updated.Code)
	assert.True(t, updated.Active)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, snowflake.ID(1), updated.BusinessID)

	_, err = svc.Update(ctx, created.ID, map[string]json.RawMessage{"active": json.RawMessage(`"yes"`)})
	assert.ErrorIs(t, err, apperror.Validation("active", "invalid_active", ""))
}

func TestReplaceResetsOmittedFields(t *testing.T) {
	svc, _ := newWidgets(t, Config[widget]{
		ReadOnly: []string{"code"},
		Defaults: func(w *widget) { w.Active = true },
	})
	ctx := inBusiness(1)

	created, err := svc.Create(ctx, &widget{Name: "bolt", Code: "B-1", Active: false})
	require.NoError(t, err)

	replaced, err := svc.Replace(ctx, created.ID, map[string]json.RawMessage{
		"name": json.RawMessage(`"screw"`),
		"code": json.RawMessage(`"HACK"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "screw", replaced.Name)
	assert.Equal(t, "B-1", replaced.Code)
	assert.True(t, replaced.Active)
	assert.Equal(t, created.ID, replaced.ID)
	assert.True(t, created.CreatedAt.Equal(replaced.CreatedAt))

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "screw", stored.Name)
	assert.Equal(t, "B-1", stored.Code)

	_, err = svc.Replace(ctx, created.ID, map[string]json.RawMessage{"code": json.RawMessage(`"B-2"`)})
	assert.Error(t, err)
}

func TestDeleteIsSoftForSoftDeletable(t *testing.T) {
	svc, conn := newWidgets(t, Config[widget]{})
	ctx := inBusiness(1)

	created, err := svc.Create(ctx, &widget{Name: "bolt"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.Error(t, err)

	var raw widget
	require.NoError(t, conn.First(&raw, "id = ?", created.ID).Error)
	assert.True(t, raw.IsDeleted)
	assert.NotNil(t, raw.DeletedAt)
}

func TestHardDeleteAndAppendOnly(t *testing.T) {
	conn, err := db.NewTest(&entry{})
	require.NoError(t, err)
	node, _ := snowflake.NewNode(1)
	clk := clock.New()
	entries := New[entry](conn, repository.ProvideStore[entry](conn), node, clk, Config[entry]{Name: "entry"})
	ctx := inBusiness(1)

	e, err := entries.Create(ctx, &entry{Note: "x"})
	require.NoError(t, err)
	require.NoError(t, entries.Delete(ctx, e.ID))
	var count int64
	conn.Model(&entry{}).Count(&count)
	assert.Zero(t, count)

	log := New[entry](conn, repository.ProvideStore[entry](conn), node, clk, Config[entry]{AppendOnly: true})
	e, err = log.Create(ctx, &entry{Note: "y"})
	require.NoError(t, err)
	assert.ErrorIs(t, log.Delete(ctx, e.ID), ErrImmutable)
	_, err = log.Update(ctx, e.ID, nil)
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestListPaginatesByCursor(t *testing.T) {
	svc, _ := newWidgets(t, Config[widget]{
		Present: func(_ context.Context, _ *gorm.DB, items []*widget) error {
			for _, item := range items {
				item.Label = "#" + item.Name
			}
			return nil
		},
	})
	ctx := inBusiness(1)
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, &widget{Name: name})
		require.NoError(t, err)
	}
	_, err := svc.Create(inBusiness(2), &widget{Name: "other"})
	require.NoError(t, err)

	page, info, err := svc.List(ctx, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "#a", page[0].Label)

	rest, info, err := svc.List(ctx, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Name)
	assert.False(t, info.HasMore)
}

func TestHooksRunInOrder(t *testing.T) {
	var calls []string
	svc, _ := newWidgets(t, Config[widget]{
		Defaults:     func(w *widget) { w.Active = true },
		BeforeCreate: func(context.Context, *gorm.DB, *widget) error { calls = append(calls, "before"); return nil },
		Validate:     func(context.Context, *gorm.DB, *widget, *widget) error { calls = append(calls, "validate"); return nil },
		AfterSave:    func(context.Context, *gorm.DB, *widget) error { calls = append(calls, "after"); return nil },
		BeforeDelete: func(context.Context, *gorm.DB, *widget) error { calls = append(calls, "before_delete"); return nil },
		AfterDelete:  func(context.Context, *gorm.DB, *widget) error { calls = append(calls, "after_delete"); return nil },
	})
	ctx := inBusiness(1)

	item := svc.New()
	assert.True(t, item.Active)
	item.Name = "x"
	created, err := svc.Create(ctx, item)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	assert.Equal(t, []string{"before", "validate", "after", "before_delete", "after_delete"}, calls)
}

func TestBuildAppliesDefaultsAndDropsReadOnly(t *testing.T) {
	svc, _ := newWidgets(t, Config[widget]{
		ReadOnly: []string{"code"},
		Defaults: func(w *widget) { w.Active = true },
	})

	item, err := svc.Build(map[string]json.RawMessage{
		"name": json.RawMessage(`"bolt"`),
		"code": json.RawMessage(`"B-1"`),
		"id":   json.RawMessage(`"42"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "bolt", item.Name)
	assert.Empty(t, item.Code)
	assert.True(t, item.Active)
	assert.Zero(t, item.ID)
}
