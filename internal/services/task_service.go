package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodbridge/foodbridge/internal/matching"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

// CreateTaskInput defines a volunteer task tied to a listing.
type CreateTaskInput struct {
	TaskType          models.TaskType
	Title             string
	Description       string
	Location          string
	ScheduledTime     time.Time
	EstimatedDuration int
	Priority          int
	ListingID         string
}

// UpdateTaskPatch carries the optional fields of a task update.
type UpdateTaskPatch struct {
	Title             *string
	Description       *string
	Location          *string
	ScheduledTime     *time.Time
	EstimatedDuration *int
	Priority          *int
	Status            *models.TaskStatus
	VolunteerID       *string
}

// ListTasksInput filters the task listing.
type ListTasksInput struct {
	TaskType *models.TaskType
	Status   *models.TaskStatus
	Skip     int
	Limit    int
}

// TaskService owns the volunteer task workflow.
type TaskService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
	matcher    matching.Optimizer
	now        func() time.Time
}

// NewTaskService constructs a TaskService. A nil matcher falls back to the
// static optimizer.
func NewTaskService(db *gorm.DB, dispatcher *notify.Dispatcher, matcher matching.Optimizer) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if matcher == nil {
		matcher = matching.NewStaticOptimizer()
	}
	return &TaskService{db: db, dispatcher: dispatcher, matcher: matcher, now: time.Now}, nil
}

// Create registers a pending task for a listing. Admins may create tasks for
// any listing; donors and traders only for their own. Matched volunteers are
// notified about the new opportunity.
func (s *TaskService) Create(ctx context.Context, actor models.User, input CreateTaskInput) (*models.VolunteerTask, error) {
	ctx = ensureContext(ctx)

	if !input.TaskType.Valid() {
		return nil, apperrors.NewBadRequest("unknown task type")
	}
	if input.Title == "" {
		return nil, apperrors.NewBadRequest("task title is required")
	}
	if !input.ScheduledTime.After(s.now()) {
		return nil, apperrors.NewBadRequest("scheduled time must be in the future")
	}
	if input.EstimatedDuration <= 0 {
		return nil, apperrors.NewBadRequest("estimated duration must be positive")
	}
	if input.Priority < 1 || input.Priority > 5 {
		return nil, apperrors.NewBadRequest("priority must be between 1 and 5")
	}

	var listing models.Listing
	if err := s.db.WithContext(ctx).First(&listing, "id = ?", input.ListingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Listing not found")
		}
		return nil, fmt.Errorf("task service: load listing: %w", err)
	}
	if listing.OwnerID != actor.ID && !actor.UserType.IsAdmin() {
		return nil, apperrors.ErrForbidden.WithMessage("Only the listing owner or an admin can create tasks")
	}

	task := models.VolunteerTask{
		TaskType:          input.TaskType,
		Title:             input.Title,
		Description:       input.Description,
		Location:          input.Location,
		ScheduledTime:     input.ScheduledTime,
		EstimatedDuration: input.EstimatedDuration,
		Priority:          input.Priority,
		Status:            models.TaskPending,
		ListingID:         listing.ID,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("task service: create task: %w", err)
	}

	s.notifyMatchedVolunteers(ctx, task)
	return &task, nil
}

// Get loads a single task.
func (s *TaskService) Get(ctx context.Context, taskID string) (*models.VolunteerTask, error) {
	ctx = ensureContext(ctx)

	var task models.VolunteerTask
	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Task not found")
		}
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	return &task, nil
}

// ClaimTask assigns a pending task to the calling volunteer. The row is
// locked so concurrent volunteers race cleanly: one wins, the rest get a
// conflict and the task is left unchanged.
func (s *TaskService) ClaimTask(ctx context.Context, taskID string, actor models.User) (*models.VolunteerTask, error) {
	ctx = ensureContext(ctx)

	if actor.UserType != models.UserTypeVolunteer {
		return nil, apperrors.ErrForbidden.WithMessage("Only volunteers can claim tasks")
	}

	var task models.VolunteerTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound.WithMessage("Task not found")
			}
			return fmt.Errorf("task service: lock task: %w", err)
		}
		if task.Status != models.TaskPending {
			return apperrors.NewConflict("task is no longer available")
		}

		task.Status = models.TaskAssigned
		task.VolunteerID = &actor.ID
		if err := tx.Model(&task).Updates(map[string]any{
			"status":       models.TaskAssigned,
			"volunteer_id": actor.ID,
		}).Error; err != nil {
			return fmt.Errorf("task service: claim task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListingOwner(ctx, task, "Task claimed",
		fmt.Sprintf("A volunteer picked up the task %q", task.Title))
	return &task, nil
}

// Update applies a partial patch to a task. Admins may update anything; the
// assigned volunteer may update status and details of their own task.
// Reassignment is admin-only and the target must be an existing volunteer.
func (s *TaskService) Update(ctx context.Context, taskID string, actor models.User, patch UpdateTaskPatch) (*models.VolunteerTask, error) {
	ctx = ensureContext(ctx)

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewBadRequest("unknown task status")
	}
	if patch.ScheduledTime != nil && !patch.ScheduledTime.After(s.now()) {
		return nil, apperrors.NewBadRequest("scheduled time must be in the future")
	}
	if patch.EstimatedDuration != nil && *patch.EstimatedDuration <= 0 {
		return nil, apperrors.NewBadRequest("estimated duration must be positive")
	}
	if patch.Priority != nil && (*patch.Priority < 1 || *patch.Priority > 5) {
		return nil, apperrors.NewBadRequest("priority must be between 1 and 5")
	}

	var task models.VolunteerTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound.WithMessage("Task not found")
			}
			return fmt.Errorf("task service: load task: %w", err)
		}

		isAssignee := task.VolunteerID != nil && *task.VolunteerID == actor.ID
		if !actor.UserType.IsAdmin() && !isAssignee {
			return apperrors.ErrForbidden.WithMessage("Not authorized to update this task")
		}
		if patch.VolunteerID != nil && !actor.UserType.IsAdmin() {
			return apperrors.ErrForbidden.WithMessage("Only admins can reassign tasks")
		}

		updates := map[string]any{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Location != nil {
			updates["location"] = *patch.Location
		}
		if patch.ScheduledTime != nil {
			updates["scheduled_time"] = *patch.ScheduledTime
		}
		if patch.EstimatedDuration != nil {
			updates["estimated_duration"] = *patch.EstimatedDuration
		}
		if patch.Priority != nil {
			updates["priority"] = *patch.Priority
		}
		if patch.Status != nil {
			task.Status = *patch.Status
			updates["status"] = *patch.Status
		}
		if patch.VolunteerID != nil {
			var volunteer models.User
			if err := tx.First(&volunteer, "id = ?", *patch.VolunteerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrNotFound.WithMessage("Volunteer not found")
				}
				return fmt.Errorf("task service: load volunteer: %w", err)
			}
			if volunteer.UserType != models.UserTypeVolunteer {
				return apperrors.NewBadRequest("assignee must be a volunteer")
			}
			task.VolunteerID = patch.VolunteerID
			updates["volunteer_id"] = *patch.VolunteerID
			if patch.Status == nil && task.Status == models.TaskPending {
				task.Status = models.TaskAssigned
				updates["status"] = models.TaskAssigned
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return fmt.Errorf("task service: update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if (patch.Status != nil || patch.VolunteerID != nil) && task.VolunteerID != nil && *task.VolunteerID != actor.ID {
		s.notifyVolunteer(*task.VolunteerID, task, "Task updated",
			fmt.Sprintf("Task %q is now %s", task.Title, task.Status))
	}
	return &task, nil
}

// ListAvailable returns pending unassigned tasks ranked for the calling
// volunteer's location.
func (s *TaskService) ListAvailable(ctx context.Context, actor models.User) ([]models.VolunteerTask, error) {
	ctx = ensureContext(ctx)

	if actor.UserType != models.UserTypeVolunteer {
		return nil, apperrors.ErrForbidden.WithMessage("Only volunteers can browse available tasks")
	}

	var tasks []models.VolunteerTask
	if err := s.db.WithContext(ctx).
		Where("status = ? AND volunteer_id IS NULL AND scheduled_time > ?", models.TaskPending, s.now()).
		Order("priority DESC, scheduled_time ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list available tasks: %w", err)
	}
	return s.matcher.OptimizeVolunteerTasks(actor.Location, tasks), nil
}

// List returns tasks visible to the actor. Volunteers see pending tasks plus
// their own assignments; everyone else sees all tasks.
func (s *TaskService) List(ctx context.Context, actor models.User, input ListTasksInput) ([]models.VolunteerTask, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.VolunteerTask{}).Order("scheduled_time ASC")
	if actor.UserType == models.UserTypeVolunteer {
		query = query.Where("status = ? OR volunteer_id = ?", models.TaskPending, actor.ID)
	}
	if input.TaskType != nil {
		query = query.Where("task_type = ?", *input.TaskType)
	}
	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}
	if input.Skip > 0 {
		query = query.Offset(input.Skip)
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var tasks []models.VolunteerTask
	if err := query.Limit(limit).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) notifyMatchedVolunteers(ctx context.Context, task models.VolunteerTask) {
	if s.dispatcher == nil {
		return
	}

	var volunteers []models.User
	if err := s.db.WithContext(ctx).
		Where("user_type = ? AND is_active = ?", models.UserTypeVolunteer, true).
		Find(&volunteers).Error; err != nil {
		return
	}
	for _, volunteer := range s.matcher.MatchVolunteers(task, volunteers) {
		s.notifyVolunteer(volunteer.ID, task, "New task available",
			fmt.Sprintf("A %s task %q needs a volunteer", task.TaskType, task.Title))
	}
}

func (s *TaskService) notifyVolunteer(volunteerID string, task models.VolunteerTask, title, message string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Notify(notify.Request{
		RecipientID: volunteerID,
		Type:        models.NotificationTaskUpdate,
		Title:       title,
		Message:     message,
		Data:        map[string]any{"task_id": task.ID, "status": string(task.Status)},
	})
}

func (s *TaskService) notifyListingOwner(ctx context.Context, task models.VolunteerTask, title, message string) {
	if s.dispatcher == nil {
		return
	}

	var listing models.Listing
	if err := s.db.WithContext(ctx).Select("owner_id").First(&listing, "id = ?", task.ListingID).Error; err != nil {
		return
	}
	s.dispatcher.Notify(notify.Request{
		RecipientID: listing.OwnerID,
		Type:        models.NotificationTaskUpdate,
		Title:       title,
		Message:     message,
		Data:        map[string]any{"task_id": task.ID, "status": string(task.Status)},
	})
}
