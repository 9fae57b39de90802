package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/matching"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// TaskHandler exposes HTTP endpoints for volunteer tasks.
type TaskHandler struct {
	tasks *services.TaskService
	users *services.UserService
}

// NewTaskHandler constructs a task handler.
func NewTaskHandler(db *gorm.DB, dispatcher *notify.Dispatcher, matcher matching.Optimizer) (*TaskHandler, error) {
	tasks, err := services.NewTaskService(db, dispatcher, matcher)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &TaskHandler{tasks: tasks, users: users}, nil
}

type createTaskRequest struct {
	TaskType          string    `json:"task_type" validate:"required,oneof=pickup delivery sorting inspection"`
	Title             string    `json:"title" validate:"required,max=160"`
	Description       string    `json:"description"`
	Location          string    `json:"location"`
	ScheduledTime     time.Time `json:"scheduled_time" validate:"required"`
	EstimatedDuration int       `json:"estimated_duration" validate:"required,gt=0"`
	Priority          int       `json:"priority" validate:"required,min=1,max=5"`
	ListingID         string    `json:"listing_id" validate:"required"`
}

type updateTaskRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Location          *string    `json:"location"`
	ScheduledTime     *time.Time `json:"scheduled_time"`
	EstimatedDuration *int       `json:"estimated_duration"`
	Priority          *int       `json:"priority"`
	Status            *string    `json:"status"`
	VolunteerID       *string    `json:"volunteer_id"`
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), actor, services.CreateTaskInput{
		TaskType:          models.TaskType(req.TaskType),
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		ScheduledTime:     req.ScheduledTime,
		EstimatedDuration: req.EstimatedDuration,
		Priority:          req.Priority,
		ListingID:         req.ListingID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Skip:  parseIntQuery(c, "skip", 0),
		Limit: parseIntQuery(c, "limit", 25),
	}
	if raw := strings.TrimSpace(c.Query("task_type")); raw != "" {
		taskType := models.TaskType(raw)
		input.TaskType = &taskType
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.TaskStatus(raw)
		input.Status = &status
	}

	tasks, err := h.tasks.List(requestContext(c), actor, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/available
func (h *TaskHandler) ListAvailable(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListAvailable(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// POST /api/tasks/:id/claim
func (h *TaskHandler) Claim(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	task, err := h.tasks.ClaimTask(requestContext(c), strings.TrimSpace(c.Param("id")), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	patch := services.UpdateTaskPatch{
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		ScheduledTime:     req.ScheduledTime,
		EstimatedDuration: req.EstimatedDuration,
		Priority:          req.Priority,
		VolunteerID:       req.VolunteerID,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		patch.Status = &status
	}

	task, err := h.tasks.Update(requestContext(c), strings.TrimSpace(c.Param("id")), actor, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}
