package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/cache"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/realtime"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/storage"
)

// Upload is one file of a multipart upload.
type Upload struct {
	Name   string
	Reader io.Reader
}

// AttachmentList is a task's attachments with their combined size.
type AttachmentList struct {
	Attachments []models.Attachment
	TotalSize   int64
}

// AttachmentService stores task files and records their activity.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	tasks       repository.TaskRepository
	files       *storage.FileStore
	activity    *ActivityRecorder
	cache       *cache.Store
	pusher      realtime.Pusher
	maxFiles    int
	log         *zap.Logger
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	attachments repository.AttachmentRepository,
	tasks repository.TaskRepository,
	files *storage.FileStore,
	activity *ActivityRecorder,
	cacheStore *cache.Store,
	pusher realtime.Pusher,
	maxFiles int,
	log *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachments: attachments,
		tasks:       tasks,
		files:       files,
		activity:    activity,
		cache:       cacheStore,
		pusher:      pusher,
		maxFiles:    maxFiles,
		log:         log,
	}
}

// Upload stores every file or none of them, then records one
// files_uploaded entry.
func (s *AttachmentService) Upload(ctx context.Context, taskID, userID uint64, uploads []Upload) ([]models.Attachment, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFilesProvided
	}
	if len(uploads) > s.maxFiles {
		return nil, ErrTooManyFiles
	}

	if _, err := s.accessibleTask(taskID, userID); err != nil {
		return nil, err
	}

	stored := make([]*storage.StoredFile, 0, len(uploads))
	discard := func() {
		for _, file := range stored {
			if err := s.files.Remove(file.Path); err != nil {
				s.log.Warn("failed to remove stored file", zap.String("path", file.Path), zap.Error(err))
			}
		}
	}

	for _, upload := range uploads {
		file, err := s.files.Save(upload.Name, upload.Reader)
		if err != nil {
			discard()
			return nil, uploadError(upload.Name, err)
		}
		stored = append(stored, file)
	}

	attachments := make([]models.Attachment, len(stored))
	names := make([]string, len(stored))
	for i, file := range stored {
		attachments[i] = models.Attachment{
			TaskID:       taskID,
			UserID:       userID,
			FileName:     file.FileName,
			OriginalName: file.OriginalName,
			MimeType:     file.MimeType,
			FileSize:     file.Size,
			FilePath:     file.Path,
		}
		names[i] = file.OriginalName
	}

	if err := s.attachments.CreateBatch(attachments); err != nil {
		discard()
		return nil, fmt.Errorf("failed to save attachments: %w", err)
	}

	_ = runFollowUps(s.log, "upload attachments",
		step("record files_uploaded", func() error {
			_, err := s.activity.Record(taskID, userID, ActionFilesUploaded, map[string]any{
				"count": len(attachments),
				"files": strings.Join(names, ", "),
			})
			return err
		}),
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(taskID))
		}),
		step("push attachments:uploaded", func() error {
			s.pusher.PushToTask(taskID, realtime.EventFilesUploaded, map[string]any{
				"taskId":      taskID,
				"attachments": attachments,
			})
			return nil
		}),
	)

	return attachments, nil
}

// List returns a task's attachments, newest first.
func (s *AttachmentService) List(taskID, userID uint64) (*AttachmentList, error) {
	if _, err := s.accessibleTask(taskID, userID); err != nil {
		return nil, err
	}

	attachments, err := s.attachments.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	var total int64
	for _, attachment := range attachments {
		total += attachment.FileSize
	}
	return &AttachmentList{Attachments: attachments, TotalSize: total}, nil
}

// Open returns an attachment and a reader for its content. The caller
// closes the file.
func (s *AttachmentService) Open(attachmentID, userID uint64) (*models.Attachment, afero.File, error) {
	attachment, err := s.find(attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.accessibleTask(attachment.TaskID, userID); err != nil {
		return nil, nil, err
	}

	file, err := s.files.Open(attachment.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return attachment, file, nil
}

// Delete removes an attachment. The uploader and the task creator may
// delete.
func (s *AttachmentService) Delete(ctx context.Context, attachmentID, userID uint64) error {
	attachment, err := s.find(attachmentID)
	if err != nil {
		return err
	}

	task, err := s.tasks.FindByID(attachment.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	if attachment.UserID != userID && task.CreatedBy != userID {
		return ErrAttachmentDeleteDenied
	}

	if err := s.attachments.Delete(attachmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	_ = runFollowUps(s.log, "delete attachment",
		step("remove file", func() error {
			return s.files.Remove(attachment.FilePath)
		}),
		step("record file_deleted", func() error {
			_, err := s.activity.Record(task.ID, userID, ActionFileDeleted, map[string]any{
				"fileName": attachment.OriginalName,
			})
			return err
		}),
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(task.ID))
		}),
		step("push attachment:deleted", func() error {
			s.pusher.PushToTask(task.ID, realtime.EventFileDeleted, map[string]uint64{
				"id":     attachment.ID,
				"taskId": task.ID,
			})
			return nil
		}),
	)

	return nil
}

// Recent returns the user's latest uploads.
func (s *AttachmentService) Recent(userID uint64, limit int) ([]models.Attachment, error) {
	attachments, err := s.attachments.ListRecentByUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent uploads: %w", err)
	}
	return attachments, nil
}

func (s *AttachmentService) find(attachmentID uint64) (*models.Attachment, error) {
	attachment, err := s.attachments.FindByID(attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to find attachment: %w", err)
	}
	return attachment, nil
}

func (s *AttachmentService) accessibleTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if !task.CanAccess(userID) {
		return nil, ErrTaskAccessDenied
	}
	return task, nil
}

// uploadError turns storage rejections into validation failures.
func uploadError(name string, err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge),
		errors.Is(err, storage.ErrFileTypeNotAllowed),
		errors.Is(err, storage.ErrDangerousExtension),
		errors.Is(err, storage.ErrEmptyFile):
		return invalid(fmt.Sprintf("%s: %v", name, err))
	default:
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
}
