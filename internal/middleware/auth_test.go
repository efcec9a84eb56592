package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/admin", AuthMiddleware(testSecret), RequireAdmin("admin"))
	admin.GET("/ping", func(c *gin.Context) {
		user, role := GetLoginUser(c)
		c.JSON(http.StatusOK, gin.H{"user": user, "role": role})
	})
	return r
}

func doRequest(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAllowed(t *testing.T) {
	token, err := GenerateToken(testSecret, "alice", []string{"user", "admin"}, time.Hour)
	require.NoError(t, err)

	w := doRequest(newTestRouter(), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"alice"`)
}

func TestAuthFailures(t *testing.T) {
	userToken, err := GenerateToken(testSecret, "bob", []string{"user"}, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(testSecret, "bob", []string{"admin"}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := GenerateToken("other", "bob", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		JwtUserRole: "admin",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"wrong key", wrongKey, http.StatusUnauthorized},
		{"no subject", noSubject, http.StatusUnauthorized},
		{"not admin", userToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(newTestRouter(), tt.token)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"Unauthorized"`)
		})
	}
}

func TestParseTokenRequiresSecret(t *testing.T) {
	_, err := ParseToken("", "anything")
	assert.Error(t, err)
}
