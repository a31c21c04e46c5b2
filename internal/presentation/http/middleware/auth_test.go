package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bingocast/bingocast-go/internal/application/services"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/bingocast/bingocast-go/pkg/config"
)

func newTestRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	prevSecret, prevHash := config.JWTSecret, config.BroadcasterPassHash
	config.JWTSecret = "test-jwt-secret"
	config.BroadcasterPassHash = string(hash)
	t.Cleanup(func() {
		config.JWTSecret = prevSecret
		config.BroadcasterPassHash = prevHash
	})

	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	require.NoError(t, err)
	auth := services.NewAuthService(logger)

	router := gin.New()
	router.GET("/viewer", RequireAuth(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": AuthSubject(c), "role": AuthRole(c)})
	})
	router.POST("/broadcast", RequireAuth(auth), RequireBroadcaster(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, auth
}

func perform(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := perform(router, http.MethodGet, "/viewer", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := perform(router, http.MethodGet, "/viewer", "not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	router, auth := newTestRouter(t)
	token, err := auth.Login("streamer-1", "hunter2")
	require.NoError(t, err)

	rec := perform(router, http.MethodGet, "/viewer", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "streamer-1")
	require.Contains(t, rec.Body.String(), security.RoleBroadcaster)
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	router, auth := newTestRouter(t)
	token, err := auth.Login("streamer-1", "hunter2")
	require.NoError(t, err)

	rec := perform(router, http.MethodGet, "/viewer?token="+token, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireBroadcasterRejectsViewerRole(t *testing.T) {
	router, _ := newTestRouter(t)
	viewerToken, err := security.GenerateToken("viewer-1", security.RoleViewer, "test-jwt-secret", time.Hour)
	require.NoError(t, err)

	rec := perform(router, http.MethodPost, "/broadcast", viewerToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireBroadcasterAllowsBroadcasterRole(t *testing.T) {
	router, auth := newTestRouter(t)
	token, err := auth.Login("streamer-1", "hunter2")
	require.NoError(t, err)

	rec := perform(router, http.MethodPost, "/broadcast", token)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
