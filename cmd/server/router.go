package main

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/handlers"
	"github.com/yukikurage/taskflow-api/internal/middleware"
)

type routeHandlers struct {
	auth          *handlers.AuthHandler
	tasks         *handlers.TaskHandler
	comments      *handlers.CommentHandler
	notifications *handlers.NotificationHandler
	templates     *handlers.TemplateHandler
	attachments   *handlers.AttachmentHandler
	analytics     *handlers.AnalyticsHandler
	realtime      *handlers.RealtimeHandler
}

func newRouter(store sessions.Store, h routeHandlers, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task API is running",
		})
	})

	taskID := middleware.RequireIDParam("taskId")
	commentID := middleware.RequireIDParam("commentId")
	notificationID := middleware.RequireIDParam("notificationId")
	templateID := middleware.RequireIDParam("templateId")
	attachmentID := middleware.RequireIDParam("attachmentId")

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.auth.Register)
			auth.POST("/login", h.auth.Login)
			auth.POST("/logout", h.auth.Logout)
			auth.GET("/me", middleware.RequireAuth(), h.auth.GetCurrentUser)
			auth.PUT("/profile", middleware.RequireAuth(), h.auth.UpdateProfile)
		}

		users := api.Group("/users", middleware.RequireAuth())
		{
			users.GET("/stats", h.auth.Stats)
			users.GET("/me/uploads", h.attachments.RecentUploads)
		}

		tasks := api.Group("/tasks", middleware.RequireAuth())
		{
			tasks.GET("", h.tasks.ListTasks)
			tasks.POST("", h.tasks.CreateTask)
			tasks.POST("/generate", h.tasks.GenerateTasksFromText)
			tasks.GET("/:taskId", taskID, h.tasks.GetTask)
			tasks.PUT("/:taskId", taskID, h.tasks.UpdateTask)
			tasks.DELETE("/:taskId", taskID, h.tasks.DeleteTask)

			tasks.GET("/:taskId/comments", taskID, h.comments.ListComments)
			tasks.POST("/:taskId/comments", taskID, h.comments.CreateComment)
			tasks.GET("/:taskId/activity", taskID, h.comments.ListActivity)

			tasks.GET("/:taskId/attachments", taskID, h.attachments.ListAttachments)
			tasks.POST("/:taskId/attachments", taskID, h.attachments.UploadAttachments)
		}

		comments := api.Group("/comments", middleware.RequireAuth())
		{
			comments.PUT("/:commentId", commentID, h.comments.UpdateComment)
			comments.DELETE("/:commentId", commentID, h.comments.DeleteComment)
		}

		attachments := api.Group("/attachments", middleware.RequireAuth())
		{
			attachments.GET("/:attachmentId/download", attachmentID, h.attachments.DownloadAttachment)
			attachments.DELETE("/:attachmentId", attachmentID, h.attachments.DeleteAttachment)
		}

		notifications := api.Group("/notifications", middleware.RequireAuth())
		{
			notifications.GET("", h.notifications.ListNotifications)
			notifications.GET("/unread-count", h.notifications.UnreadCount)
			notifications.PUT("/read-all", h.notifications.MarkAllRead)
			notifications.DELETE("", h.notifications.DeleteAll)
			notifications.PUT("/:notificationId/read", notificationID, h.notifications.MarkRead)
			notifications.DELETE("/:notificationId", notificationID, h.notifications.DeleteNotification)
		}

		templates := api.Group("/templates", middleware.RequireAuth())
		{
			templates.GET("", h.templates.ListTemplates)
			templates.POST("", h.templates.CreateTemplate)
			templates.GET("/public", h.templates.ListPublicTemplates)
			templates.GET("/search", h.templates.SearchTemplates)
			templates.GET("/:templateId", templateID, h.templates.GetTemplate)
			templates.PUT("/:templateId", templateID, h.templates.UpdateTemplate)
			templates.DELETE("/:templateId", templateID, h.templates.DeleteTemplate)
			templates.POST("/:templateId/use", templateID, h.templates.UseTemplate)
			templates.POST("/:templateId/duplicate", templateID, h.templates.DuplicateTemplate)
		}

		analytics := api.Group("/analytics", middleware.RequireAuth())
		{
			analytics.GET("/overview", h.analytics.Overview)
			analytics.GET("/productivity", h.analytics.Productivity)
			analytics.GET("/trends", h.analytics.Trends)
		}

		api.GET("/ws", middleware.RequireAuth(), h.realtime.Connect)
	}

	return r
}
