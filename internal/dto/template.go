package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// TemplateDTO represents a task template in API responses
type TemplateDTO struct {
	ID              uint64                `json:"id"`
	UserID          uint64                `json:"userId"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Title           string                `json:"title"`
	TaskDescription string                `json:"taskDescription"`
	Priority        models.TaskPriority   `json:"priority"`
	Tags            []string              `json:"tags"`
	ChecklistItems  []string              `json:"checklistItems"`
	IsPublic        bool                  `json:"isPublic"`
	UsageCount      int64                 `json:"usageCount"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	Owner           *UserSummaryDTO       `json:"owner,omitempty"`
	Stats           *models.TemplateStats `json:"stats,omitempty"`
}

// ToTemplateDTO converts a Template model to TemplateDTO
func ToTemplateDTO(template models.Template) TemplateDTO {
	return TemplateDTO{
		ID:              template.ID,
		UserID:          template.UserID,
		Name:            template.Name,
		Description:     template.Description,
		Title:           template.Title,
		TaskDescription: template.TaskDescription,
		Priority:        template.Priority,
		Tags:            nonNil(template.Tags),
		ChecklistItems:  nonNil(template.ChecklistItems),
		IsPublic:        template.IsPublic,
		UsageCount:      template.UsageCount,
		CreatedAt:       template.CreatedAt,
		UpdatedAt:       template.UpdatedAt,
		Owner:           toUserSummary(template.Owner),
	}
}

// ToTemplateDTOs converts a list of templates
func ToTemplateDTOs(templates []models.Template) []TemplateDTO {
	items := make([]TemplateDTO, len(templates))
	for i, template := range templates {
		items[i] = ToTemplateDTO(template)
	}
	return items
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
