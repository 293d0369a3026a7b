package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Operator is the caller of the admin API, taken from the token claims.
type Operator struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

type contextKey string

const operatorContextKey contextKey = "admin_operator"

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret string
	Logger *zap.Logger
	// AllowedRoles restricts access to tokens whose role claim is listed.
	// Empty allows any role.
	AllowedRoles []string
	SkipPaths    []string
}

// JWTMiddleware validates HS256 bearer tokens on the admin API
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			})
			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			subject, _ := claims.GetSubject()
			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)
			if subject == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid token claims",
					"code":  "INVALID_CLAIMS",
				})
			}

			if !roleAllowed(config.AllowedRoles, role) {
				config.Logger.Warn("Role not allowed on admin API",
					zap.String("sub", subject),
					zap.String("role", role),
					zap.String("path", path))
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Insufficient role",
					"code":  "FORBIDDEN_ROLE",
				})
			}

			operator := &Operator{Subject: subject, Email: email, Role: role}
			ctx := context.WithValue(c.Request().Context(), operatorContextKey, operator)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("operator", subject)

			return next(c)
		}
	}
}

func roleAllowed(allowed []string, role string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// OperatorFromContext returns the authenticated operator.
func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(operatorContextKey).(*Operator)
	return op, ok && op != nil
}
