package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

// respondError maps a service error to its HTTP response. Unclassified
// errors are logged and hidden behind a 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())
		return
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
		return
	}

	switch services.KindOf(err) {
	case services.KindNotFound:
		apierrors.NotFound(c, err.Error())
	case services.KindAccessDenied:
		apierrors.Forbidden(c, err.Error())
	case services.KindValidation:
		apierrors.BadRequest(c, err.Error())
	case services.KindConflict:
		apierrors.Conflict(c, err.Error())
	default:
		_ = c.Error(err)
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		apierrors.InternalError(c, "")
	}
}

// currentUser resolves the session user or writes a 401.
func currentUser(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return userID, ok
}
