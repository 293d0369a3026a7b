package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
	pkgerrors "github.com/wekeepgrowing/todosync/pkg/errors"
)

// respondError writes the JSON error for err. Validation and upstream
// failures carry extra fields; everything else goes through echo's error
// handler with a status picked from the error code.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var verr *domainErrors.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "validation failed",
			"code":   pkgerrors.ErrInvalidArgument,
			"fields": verr.Fields,
		})
	}

	if status := provider.StatusCode(err); status != 0 {
		pkgerrors.LogError(logger, pkgerrors.NewAppError(pkgerrors.ErrUpstream, "todoist request failed", err),
			"Todoist request failed", zap.Int("upstream_status", status))
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error":           "todoist request failed",
			"code":            pkgerrors.ErrUpstream,
			"upstream_status": status,
		})
	}

	code := errorCode(err)
	if code == pkgerrors.ErrInternal || code == pkgerrors.ErrUpstream {
		pkgerrors.LogError(logger, pkgerrors.NewAppError(code, "request failed", err), "Request failed",
			zap.String("path", c.Request().URL.Path))
	}
	return pkgerrors.ToHTTPError(pkgerrors.NewAppError(code, err.Error(), nil)).SetInternal(err)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domainErrors.ErrTemplateNotFound),
		errors.Is(err, domainErrors.ErrTaskNotFound),
		errors.Is(err, domainErrors.ErrSectionNotFound):
		return pkgerrors.ErrNotFound
	case errors.Is(err, domainErrors.ErrUnknownTaskType):
		return pkgerrors.ErrInvalidArgument
	case errors.Is(err, domainErrors.ErrParentNotSynced):
		return pkgerrors.ErrConflict
	case provider.IsRetryable(err):
		return pkgerrors.ErrUpstream
	}
	return pkgerrors.CodeOf(err)
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}
