package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func createJWT(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "ops-1",
		"email": "ops@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

func run(config JWTConfig, path, authHeader string) (*httptest.ResponseRecorder, *Operator) {
	e := echo.New()
	var seen *Operator
	handler := JWTMiddleware(config)(func(c echo.Context) error {
		seen, _ = OperatorFromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = handler(c)
	return rec, seen
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop()}
	token := createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("admin"))

	rec, op := run(config, "/api/v1/templates", "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, op)
	assert.Equal(t, &Operator{Subject: "ops-1", Email: "ops@example.com", Role: "admin"}, op)
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	expired := validClaims("admin")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	noSubject := validClaims("admin")
	delete(noSubject, "sub")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantCode: "MISSING_AUTH_HEADER"},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_AUTH_FORMAT"},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "wrong secret", header: "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte("other"), validClaims("admin")), wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "expired", header: "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), expired), wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "no subject", header: "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject), wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CLAIMS"},
		{name: "role not allowed", header: "Bearer " + createJWT(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("viewer")), wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN_ROLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := JWTConfig{Secret: testSecret, Logger: zap.NewNop(), AllowedRoles: []string{"admin"}}

			rec, op := run(config, "/api/v1/rules", tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
			assert.Nil(t, op)
		})
	}
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	config := JWTConfig{Secret: testSecret, Logger: zap.NewNop(), SkipPaths: []string{"/api/v1/public"}}

	rec, op := run(config, "/api/v1/public/info", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, op)
}
