package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/usecase"
)

type TemplateService interface {
	Create(ctx context.Context, req *dto.CreateTemplateRequest) (*model.Template, error)
}

type RuleService interface {
	Create(ctx context.Context, req *dto.CreateRuleRequest) (*model.Rule, error)
}

type SectionSyncService interface {
	Sync(ctx context.Context, projectID string, dryRun bool) (*usecase.SectionSyncResult, error)
}

// AdminHandler serves the reference data endpoints: templates, rules and
// sections.
type AdminHandler struct {
	logger           *zap.Logger
	templates        TemplateService
	rules            RuleService
	sections         SectionSyncService
	defaultProjectID string
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(logger *zap.Logger, templates TemplateService, rules RuleService, sections SectionSyncService, defaultProjectID string) *AdminHandler {
	return &AdminHandler{
		logger:           logger,
		templates:        templates,
		rules:            rules,
		sections:         sections,
		defaultProjectID: defaultProjectID,
	}
}

// CreateTemplate handles POST /api/v1/templates
func (h *AdminHandler) CreateTemplate(c echo.Context) error {
	var req dto.CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	template, err := h.templates.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, template)
}

// CreateRule handles POST /api/v1/rules
func (h *AdminHandler) CreateRule(c echo.Context) error {
	var req dto.CreateRuleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	rule, err := h.rules.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, rule)
}

// SyncSections handles POST /api/v1/sections/sync
func (h *AdminHandler) SyncSections(c echo.Context) error {
	var req dto.SyncSectionsRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid request body")
		}
	}
	if req.ProjectID == "" {
		req.ProjectID = h.defaultProjectID
	}

	result, err := h.sections.Sync(c.Request().Context(), req.ProjectID, req.DryRun)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}
