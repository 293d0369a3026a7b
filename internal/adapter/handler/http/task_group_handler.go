package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
)

// TaskGroupService creates and promotes task groups.
type TaskGroupService interface {
	Create(ctx context.Context, req *dto.CreateTaskGroupRequest) (*dto.TaskGroupResponse, error)
	Push(ctx context.Context, taskID int64) (*dto.PushTaskResponse, error)
}

// TaskGroupHandler handles task group endpoints
type TaskGroupHandler struct {
	logger  *zap.Logger
	service TaskGroupService
}

// NewTaskGroupHandler creates a new TaskGroupHandler
func NewTaskGroupHandler(logger *zap.Logger, service TaskGroupService) *TaskGroupHandler {
	return &TaskGroupHandler{
		logger:  logger,
		service: service,
	}
}

// Create handles POST /api/v1/task-groups
func (h *TaskGroupHandler) Create(c echo.Context) error {
	var req dto.CreateTaskGroupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	res, err := h.service.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// Push handles POST /api/v1/tasks/:id/push
func (h *TaskGroupHandler) Push(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest("invalid task id")
	}

	res, err := h.service.Push(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, res)
}
