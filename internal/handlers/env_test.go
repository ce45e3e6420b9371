package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/cache"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/storage"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

type nopPusher struct{}

func (nopPusher) PushToUser(uint64, string, any)         {}
func (nopPusher) PushToTask(uint64, string, any)         {}
func (nopPusher) PushToTaskComments(uint64, string, any) {}
func (nopPusher) RevokeTask(uint64, uint64)              {}

type testEnv struct {
	db            *gorm.DB
	auth          *services.AuthService
	tasks         *services.TaskService
	comments      *services.CommentService
	notifications *services.NotificationService
	templates     *services.TemplateService
	attachments   *services.AttachmentService
	analytics     *services.AnalyticsService
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	log := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	files, err := storage.NewFileStore(afero.NewMemMapFs(), "/uploads", 1<<20)
	require.NoError(t, err)

	store := cache.NewStore(cache.NewMemoryCache(64, time.Minute), time.Minute, log)
	activity := services.NewActivityRecorder(commentRepo)
	dispatcher := services.NewDispatcher(notificationRepo, nopPusher{}, log)

	return testEnv{
		db:            db,
		auth:          services.NewAuthService(userRepo),
		tasks:         services.NewTaskService(taskRepo, userRepo, activity, dispatcher, store, nopPusher{}, files, nil, log),
		comments:      services.NewCommentService(commentRepo, taskRepo, userRepo, dispatcher, store, nopPusher{}, log),
		notifications: services.NewNotificationService(notificationRepo),
		templates:     services.NewTemplateService(repository.NewTemplateRepository(db), taskRepo, userRepo, activity, dispatcher, store, nopPusher{}, log),
		attachments:   services.NewAttachmentService(repository.NewAttachmentRepository(db), taskRepo, files, activity, store, nopPusher{}, constants.MaxFilesPerUpload, log),
		analytics:     services.NewAnalyticsService(taskRepo),
	}
}

// createAuthContext builds a context as RequireAuth and RequireIDParam
// would leave it.
func createAuthContext(method, url string, body any, userID uint64, ids map[string]uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		payload, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)
	for name, id := range ids {
		c.Set(name, id)
	}

	return c, w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
