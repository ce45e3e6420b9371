package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

func TestAnalyticsHandler_Reports(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewAnalyticsHandler(env.analytics, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	done := testutil.CreateTask(t, env.db, "Done", alice.ID, alice.ID)
	require.NoError(t, env.db.Model(done).Update("status", models.TaskStatusCompleted).Error)
	testutil.CreateTask(t, env.db, "Open", alice.ID, alice.ID)

	c, w := createAuthContext(http.MethodGet, "/api/analytics/overview", nil, alice.ID, nil)
	handler.Overview(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = createAuthContext(http.MethodGet, "/api/analytics/productivity", nil, alice.ID, nil)
	handler.Productivity(c)
	require.Equal(t, http.StatusOK, w.Code)
	days := decode[map[string][]services.DailyProductivity](t, w)["productivity"]
	require.Len(t, days, 1)
	require.Equal(t, 1, days[0].CompletedTasks)

	c, w = createAuthContext(http.MethodGet, "/api/analytics/trends", nil, alice.ID, nil)
	handler.Trends(c)
	require.Equal(t, http.StatusOK, w.Code)
	trends := decode[map[string][]services.PriorityTrend](t, w)["trends"]
	require.Len(t, trends, 1)
	require.Equal(t, models.TaskPriorityMedium, trends[0].Priority)
	require.Equal(t, 1, trends[0].Count)
}
