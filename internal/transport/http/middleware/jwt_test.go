package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker-api/internal/pkg/jwtutil"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthJWT(testSecret), func(c *gin.Context) {
		fromCtx, _ := UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": c.GetString(ContextUserIDKey), "ctx": fromCtx})
	})
	return r
}

func doAuth(t *testing.T, r *gin.Engine, header string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestAuthJWT_ValidToken(t *testing.T) {
	tok, err := jwtutil.GenerateToken(testSecret, time.Hour, "user-1")
	require.NoError(t, err)

	code, body := doAuth(t, newAuthRouter(), "Bearer "+tok)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user-1", body["gin"])
	assert.Equal(t, "user-1", body["ctx"])
}

func TestAuthJWT_Rejections(t *testing.T) {
	expired, err := jwtutil.GenerateToken(testSecret, -time.Minute, "user-1")
	require.NoError(t, err)
	foreign, err := jwtutil.GenerateToken("other-secret", time.Hour, "user-1")
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing", "", "No token, authorization denied"},
		{"empty bearer", "Bearer ", "No token, authorization denied"},
		{"wrong scheme", "Basic abc", "Token is not valid"},
		{"garbage", "Bearer abc.def.ghi", "Token is not valid"},
		{"expired", "Bearer " + expired, "Token is not valid"},
		{"wrong secret", "Bearer " + foreign, "Token is not valid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := doAuth(t, newAuthRouter(), tc.header)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, tc.message, body["message"])
		})
	}
}
