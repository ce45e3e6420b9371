package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

// AnalyticsService aggregates a user's assigned tasks.
type AnalyticsService struct {
	tasks repository.TaskRepository
	now   func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(tasks repository.TaskRepository) *AnalyticsService {
	return &AnalyticsService{
		tasks: tasks,
		now:   time.Now,
	}
}

// DailyProductivity is the number of tasks completed on one day.
type DailyProductivity struct {
	Date           string `json:"date"`
	CompletedTasks int    `json:"completedTasks"`
}

// PriorityTrend summarizes completed tasks of one priority.
type PriorityTrend struct {
	Priority             models.TaskPriority `json:"priority"`
	Count                int                 `json:"count"`
	AvgCompletionSeconds float64             `json:"avgCompletionTime"`
}

// Overview counts the user's assigned tasks by status, plus overdue ones.
func (s *AnalyticsService) Overview(userID uint64) (repository.TaskStatusCounts, error) {
	counts, err := s.tasks.CountByStatusForAssignee(userID, s.now())
	if err != nil {
		return repository.TaskStatusCounts{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	return counts, nil
}

// Productivity groups the user's recently updated tasks by day and counts
// the completed ones, newest day first.
func (s *AnalyticsService) Productivity(userID uint64) ([]DailyProductivity, error) {
	tasks, err := s.tasks.ListUpdatedSinceForAssignee(userID, s.now().Add(-constants.ProductivityPeriod))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tasks: %w", err)
	}

	byDay := make(map[string]int)
	for _, task := range tasks {
		day := task.UpdatedAt.UTC().Format(time.DateOnly)
		if task.Status == models.TaskStatusCompleted {
			byDay[day]++
		} else if _, ok := byDay[day]; !ok {
			byDay[day] = 0
		}
	}

	days := make([]DailyProductivity, 0, len(byDay))
	for day, completed := range byDay {
		days = append(days, DailyProductivity{Date: day, CompletedTasks: completed})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days, nil
}

// Trends reports, per priority, how many assigned tasks were completed and
// the mean time from creation to the last update.
func (s *AnalyticsService) Trends(userID uint64) ([]PriorityTrend, error) {
	tasks, err := s.tasks.ListCompletedForAssignee(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}

	type acc struct {
		count int
		total time.Duration
	}
	byPriority := make(map[models.TaskPriority]*acc)
	for _, task := range tasks {
		a, ok := byPriority[task.Priority]
		if !ok {
			a = &acc{}
			byPriority[task.Priority] = a
		}
		a.count++
		a.total += task.UpdatedAt.Sub(task.CreatedAt)
	}

	trends := make([]PriorityTrend, 0, len(byPriority))
	for _, priority := range []models.TaskPriority{
		models.TaskPriorityUrgent,
		models.TaskPriorityHigh,
		models.TaskPriorityMedium,
		models.TaskPriorityLow,
	} {
		a, ok := byPriority[priority]
		if !ok {
			continue
		}
		trends = append(trends, PriorityTrend{
			Priority:             priority,
			Count:                a.count,
			AvgCompletionSeconds: a.total.Seconds() / float64(a.count),
		})
	}
	return trends, nil
}
