package call

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	callService "telecare-backend/internal/service/call"
	"telecare-backend/pkg/rtctoken"
)

func newTestRouter(t *testing.T) (*gin.Engine, *rtctoken.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := rtctoken.NewIssuer("test-key", "test-secret", 24*time.Hour)
	require.NoError(t, err)

	svc := callService.NewService(nil, nil, issuer)
	handler := NewHandler(svc, nil)

	router := gin.New()
	router.POST("/v1/rtc/token", handler.IssueToken)
	return router, issuer
}

func TestIssueToken_ResponseShape(t *testing.T) {
	router, issuer := newTestRouter(t)

	body := `{"room_id":"room-1","user_id":"user-1","role":"host"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rtc/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "room-1", envelope.Data["room_id"])

	tokenStr, ok := envelope.Data["token"].(string)
	require.True(t, ok)
	claims, err := issuer.Decode(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "room-1", claims.RoomID)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestIssueToken_MissingField(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/rtc/token", strings.NewReader(`{"room_id":"room-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
