package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

const uploadFormField = "files"

type AttachmentHandler struct {
	attachmentService *services.AttachmentService
	log               *zap.Logger
}

func NewAttachmentHandler(attachmentService *services.AttachmentService, log *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		log:               log,
	}
}

// UploadAttachments stores the files of a multipart form under a task
func (h *AttachmentHandler) UploadAttachments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apierrors.BadRequest(c, "Invalid multipart form")
		return
	}
	headers := form.File[uploadFormField]

	uploads := make([]services.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		var errs error
		for _, f := range opened {
			errs = multierr.Append(errs, f.Close())
		}
		if errs != nil {
			h.log.Warn("failed to close upload parts", zap.Error(errs))
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			apierrors.BadRequest(c, fmt.Sprintf("Failed to read %s", header.Filename))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, services.Upload{Name: header.Filename, Reader: f})
	}

	attachments, err := h.attachmentService.Upload(c.Request.Context(), middleware.GetIDParam(c, "taskId"), userID, uploads)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"attachments": dto.ToAttachmentDTOs(attachments),
		"count":       len(attachments),
	})
}

func (h *AttachmentHandler) ListAttachments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.attachmentService.List(middleware.GetIDParam(c, "taskId"), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAttachmentListResponse(list.Attachments, list.TotalSize))
}

// DownloadAttachment streams the stored file with its original name
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	attachment, file, err := h.attachmentService.Open(middleware.GetIDParam(c, "attachmentId"), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer file.Close()

	c.DataFromReader(http.StatusOK, attachment.FileSize, attachment.MimeType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(attachment.OriginalName)),
	})
}

func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), middleware.GetIDParam(c, "attachmentId"), userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully"})
}

// RecentUploads returns the caller's latest uploads across tasks
func (h *AttachmentHandler) RecentUploads(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	attachments, err := h.attachmentService.Recent(userID, constants.RecentUploadsLimit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": dto.ToAttachmentDTOs(attachments)})
}
