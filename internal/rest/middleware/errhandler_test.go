package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flexprice/lockbox/internal/config"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newErrorRouter(cfg *config.Configuration, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SentryMiddleware(cfg), ErrorHandler(logger.NewNoopLogger()))
	router.GET("/fail", handler)
	return router
}

func serve(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	return w
}

func TestErrorHandler_StatusFromError(t *testing.T) {
	router := newErrorRouter(config.GetDefaultConfig(), func(c *gin.Context) {
		_ = c.Error(ierr.NewError("batch not found").Mark(ierr.ErrNotFound))
	})

	w := serve(router)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestErrorHandler_ReportsServerErrors(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Sentry.Enabled = true

	var reported []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			reported = append(reported, event)
			return nil
		},
	})
	require.NoError(t, err)

	status := http.StatusInternalServerError
	router := newErrorRouter(cfg, func(c *gin.Context) {
		hub := sentrygin.GetHubFromContext(c)
		require.NotNil(t, hub)
		hub.BindClient(client)

		if status == http.StatusInternalServerError {
			_ = c.Error(ierr.NewError("connection refused").Mark(ierr.ErrDatabase))
			return
		}
		_ = c.Error(ierr.NewError("bad limit").Mark(ierr.ErrValidation))
	})

	assert.Equal(t, http.StatusInternalServerError, serve(router).Code)
	assert.Len(t, reported, 1)

	status = http.StatusBadRequest
	assert.Equal(t, http.StatusBadRequest, serve(router).Code)
	assert.Len(t, reported, 1, "client errors are not reported")
}

func TestSentryMiddleware_Disabled(t *testing.T) {
	called := false
	router := newErrorRouter(config.GetDefaultConfig(), func(c *gin.Context) {
		called = true
		assert.Nil(t, sentrygin.GetHubFromContext(c))
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(router).Code)
	assert.True(t, called)
}
