package services

import (
	"fmt"
	"strings"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

// ActivityAction names a recorded state change.
type ActivityAction string

const (
	ActionTaskCreated             ActivityAction = "task_created"
	ActionStatusChanged           ActivityAction = "status_changed"
	ActionPriorityChanged         ActivityAction = "priority_changed"
	ActionAssigned                ActivityAction = "assigned"
	ActionDueDateChanged          ActivityAction = "due_date_changed"
	ActionTaskCompleted           ActivityAction = "task_completed"
	ActionTaskReopened            ActivityAction = "task_reopened"
	ActionFilesUploaded           ActivityAction = "files_uploaded"
	ActionFileDeleted             ActivityAction = "file_deleted"
	ActionTaskCreatedFromTemplate ActivityAction = "task_created_from_template"
)

// ActivityRecorder appends activity entries to a task's history. It never
// triggers notifications.
type ActivityRecorder struct {
	comments repository.CommentRepository
}

func NewActivityRecorder(comments repository.CommentRepository) *ActivityRecorder {
	return &ActivityRecorder{comments: comments}
}

// Record persists one activity entry. Unknown actions are recorded with a
// generic message.
func (r *ActivityRecorder) Record(taskID, actorID uint64, action ActivityAction, metadata map[string]any) (*models.ActivityEntry, error) {
	row := &models.Comment{
		TaskID:   taskID,
		UserID:   actorID,
		Content:  FormatActivityMessage(action, metadata),
		Type:     models.CommentTypeActivity,
		Action:   string(action),
		Metadata: metadata,
	}
	if err := r.comments.Create(row); err != nil {
		return nil, fmt.Errorf("failed to record %s activity: %w", action, err)
	}
	return &models.ActivityEntry{Comment: row}, nil
}

// FormatActivityMessage renders the human-readable line for an action.
func FormatActivityMessage(action ActivityAction, metadata map[string]any) string {
	switch action {
	case ActionTaskCreated:
		return "created this task"
	case ActionStatusChanged:
		return fmt.Sprintf("changed status from %q to %q", metaString(metadata, "oldStatus"), metaString(metadata, "newStatus"))
	case ActionPriorityChanged:
		return fmt.Sprintf("changed priority from %q to %q", metaString(metadata, "oldPriority"), metaString(metadata, "newPriority"))
	case ActionAssigned:
		return "assigned task to " + metaString(metadata, "assigneeName")
	case ActionDueDateChanged:
		return "changed due date to " + metaString(metadata, "newDueDate")
	case ActionTaskCompleted:
		return "marked task as completed"
	case ActionTaskReopened:
		return "reopened this task"
	case ActionFilesUploaded:
		return fmt.Sprintf("uploaded %s file(s): %s", metaString(metadata, "count"), metaString(metadata, "files"))
	case ActionFileDeleted:
		return "deleted file: " + metaString(metadata, "fileName")
	case ActionTaskCreatedFromTemplate:
		return "created this task from template: " + metaString(metadata, "templateName")
	default:
		return "performed action: " + string(action)
	}
}

func metaString(metadata map[string]any, key string) string {
	switch v := metadata[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
