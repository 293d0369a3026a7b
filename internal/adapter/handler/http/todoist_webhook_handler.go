package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	"github.com/wekeepgrowing/todosync/internal/usecase"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Todoist-Hmac-SHA256"

// WebhookProcessor applies a verified webhook event.
type WebhookProcessor interface {
	Process(ctx context.Context, payload *dto.WebhookPayload) (*usecase.WebhookOutcome, error)
}

// TodoistWebhookHandler receives Todoist item events.
type TodoistWebhookHandler struct {
	logger    *zap.Logger
	processor WebhookProcessor
	secret    string
}

// NewTodoistWebhookHandler creates a new TodoistWebhookHandler. An empty
// secret disables signature verification.
func NewTodoistWebhookHandler(logger *zap.Logger, processor WebhookProcessor, secret string) *TodoistWebhookHandler {
	return &TodoistWebhookHandler{
		logger:    logger,
		processor: processor,
		secret:    secret,
	}
}

// Handle processes POST /webhooks/todoist
func (h *TodoistWebhookHandler) Handle(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		return badRequest("failed to read request body")
	}

	if h.secret != "" && !VerifySignature(h.secret, body, c.Request().Header.Get(SignatureHeader)) {
		h.logger.Warn("Rejected webhook with invalid signature",
			zap.String("remote_ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("Failed to parse webhook payload", zap.Error(err))
		return badRequest("invalid JSON payload")
	}
	if err := c.Validate(&payload); err != nil {
		return respondError(c, h.logger, err)
	}

	outcome, err := h.processor.Process(c.Request().Context(), &payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	status := "ok"
	if !outcome.Tracked {
		status = "ignored"
	}
	return c.JSON(http.StatusOK, dto.WebhookResult{Status: status, Updated: outcome.Updated})
}

// VerifySignature compares signature with the base64 HMAC-SHA256 of body.
func VerifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	given, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}
