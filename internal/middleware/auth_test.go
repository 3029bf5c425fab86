package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulsecrm/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func protectedRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	cfg.JWT.Secret = secret
	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	r := protectedRouter(secret)
	now := time.Now()

	valid, err := SignHS256(map[string]interface{}{
		"user_id": 42,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	}, secret)
	assert.NoError(t, err)

	expired, _ := SignHS256(map[string]interface{}{
		"user_id": 42,
		"exp":     now.Add(-time.Hour).Unix(),
	}, secret)

	wrongKey, _ := SignHS256(map[string]interface{}{"user_id": 42}, "other-secret")

	noUser, _ := SignHS256(map[string]interface{}{"role": "admin"}, secret)

	subOnly, _ := SignHS256(map[string]interface{}{"sub": 7}, secret)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, `"user_id":42`},
		{"numeric sub fallback", "Bearer " + subOnly, http.StatusOK, `"user_id":7`},
		{"no header", "", http.StatusUnauthorized, "missing bearer token"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "missing bearer token"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "Unauthorized"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "exp"},
		{"wrong signature", "Bearer " + wrongKey, http.StatusUnauthorized, "invalid signature"},
		{"no user claim", "Bearer " + noUser, http.StatusUnauthorized, "no numeric user id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestSignHS256RoundTrip(t *testing.T) {
	tok, err := SignHS256(map[string]interface{}{"user_id": 5}, "s")
	assert.NoError(t, err)

	claims, err := validateHS256JWT(tok, "s", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, float64(5), claims["user_id"])

	_, err = validateHS256JWT(tok, "wrong", time.Now())
	assert.Error(t, err)
}
