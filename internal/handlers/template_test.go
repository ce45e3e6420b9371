package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

func TestTemplateHandler_CreateUseAndStats(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewTemplateHandler(env.templates, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob", "Jones")

	c, w := createAuthContext(http.MethodPost, "/api/templates", map[string]any{
		"name":           "Bug report",
		"title":          "Fix bug",
		"priority":       "high",
		"tags":           []string{"bug"},
		"checklistItems": []string{"Reproduce", "Fix", "Test"},
		"isPublic":       true,
	}, alice.ID, nil)
	handler.CreateTemplate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[dto.TemplateDTO](t, w)
	ids := map[string]uint64{"templateId": created.ID}

	// A public template can be used by anyone
	c, w = createAuthContext(http.MethodPost, "/api/templates/1/use", map[string]any{"title": "Login crash"}, bob.ID, ids)
	handler.UseTemplate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	used := decode[struct {
		Task     dto.TaskDTO              `json:"task"`
		Template services.TemplateSummary `json:"template"`
	}](t, w)
	require.Equal(t, "Login crash", used.Task.Title)
	require.Equal(t, models.TaskPriorityHigh, used.Task.Priority)
	require.Equal(t, bob.ID, used.Task.CreatedBy)
	require.Equal(t, []string{"Reproduce", "Fix", "Test"}, used.Template.ChecklistItems)

	c, w = createAuthContext(http.MethodGet, "/api/templates/1", nil, alice.ID, ids)
	handler.GetTemplate(c)

	require.Equal(t, http.StatusOK, w.Code)
	fetched := decode[dto.TemplateDTO](t, w)
	require.Equal(t, int64(1), fetched.UsageCount)
	require.NotNil(t, fetched.Stats)
	require.Equal(t, int64(1), fetched.Stats.TotalUses)
	require.Equal(t, int64(1), fetched.Stats.UniqueUsers)
}

func TestTemplateHandler_UseWithoutBody(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewTemplateHandler(env.templates, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	template, err := env.templates.Create(alice.ID, services.TemplateInput{Name: "Standup", Title: "Daily standup"})
	require.NoError(t, err)

	c, w := createAuthContext(http.MethodPost, "/api/templates/1/use", nil, alice.ID, map[string]uint64{"templateId": template.ID})
	handler.UseTemplate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	used := decode[struct {
		Task dto.TaskDTO `json:"task"`
	}](t, w)
	require.Equal(t, "Daily standup", used.Task.Title)
	require.Equal(t, models.TaskPriorityMedium, used.Task.Priority)
}

func TestTemplateHandler_PrivateTemplateAccess(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewTemplateHandler(env.templates, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob", "Jones")
	template, err := env.templates.Create(alice.ID, services.TemplateInput{Name: "Private", Title: "Secret"})
	require.NoError(t, err)
	ids := map[string]uint64{"templateId": template.ID}

	c, w := createAuthContext(http.MethodGet, "/api/templates/1", nil, bob.ID, ids)
	handler.GetTemplate(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = createAuthContext(http.MethodPost, "/api/templates/1/use", nil, bob.ID, ids)
	handler.UseTemplate(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Duplicating requires read access too
	c, w = createAuthContext(http.MethodPost, "/api/templates/1/duplicate", nil, bob.ID, ids)
	handler.DuplicateTemplate(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTemplateHandler_UpdateOnlyOwner(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewTemplateHandler(env.templates, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob", "Jones")
	template, err := env.templates.Create(alice.ID, services.TemplateInput{
		Name:     "Shared",
		Title:    "Shared task",
		Tags:     []string{"ops"},
		IsPublic: true,
	})
	require.NoError(t, err)
	ids := map[string]uint64{"templateId": template.ID}

	c, w := createAuthContext(http.MethodPut, "/api/templates/1", map[string]any{"name": "Taken"}, bob.ID, ids)
	handler.UpdateTemplate(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = createAuthContext(http.MethodPut, "/api/templates/1", map[string]any{"name": "Renamed", "tags": []string{}}, alice.ID, ids)
	handler.UpdateTemplate(c)
	require.Equal(t, http.StatusOK, w.Code)

	updated := decode[dto.TemplateDTO](t, w)
	require.Equal(t, "Renamed", updated.Name)
	require.Empty(t, updated.Tags)
	require.True(t, updated.IsPublic)
}

func TestTemplateHandler_SearchAndPublicList(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewTemplateHandler(env.templates, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob", "Jones")
	_, err := env.templates.Create(alice.ID, services.TemplateInput{Name: "Release checklist", Title: "Release", IsPublic: true})
	require.NoError(t, err)
	_, err = env.templates.Create(alice.ID, services.TemplateInput{Name: "Release notes", Title: "Notes"})
	require.NoError(t, err)

	c, w := createAuthContext(http.MethodGet, "/api/templates/search?q=release", nil, bob.ID, nil)
	handler.SearchTemplates(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[map[string][]dto.TemplateDTO](t, w)["templates"], 1)

	c, w = createAuthContext(http.MethodGet, "/api/templates/search", nil, bob.ID, nil)
	handler.SearchTemplates(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = createAuthContext(http.MethodGet, "/api/templates/public?limit=0", nil, bob.ID, nil)
	handler.ListPublicTemplates(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = createAuthContext(http.MethodGet, "/api/templates/public", nil, bob.ID, nil)
	handler.ListPublicTemplates(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[map[string][]dto.TemplateDTO](t, w)["templates"], 1)

	c, w = createAuthContext(http.MethodGet, "/api/templates?includePublic=false", nil, alice.ID, nil)
	handler.ListTemplates(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[map[string][]dto.TemplateDTO](t, w)["templates"], 2)
}
