package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/farmtrack/backend/internal/infrastructure/config"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rg.GET("/panic", func(*gin.Context) { panic("boom") })
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		HTTP: config.HTTPConfig{
			RequestTimeout:   time.Second,
			MaxBodySize:      1 << 10,
			CORSAllowOrigins: []string{"http://dashboard.local"},
			CORSAllowMethods: []string{"GET", "POST"},
			CORSAllowHeaders: []string{"Content-Type"},
		},
		Telemetry: config.TelemetryConfig{ServiceName: "farmtrack-test"},
	}
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := NewEngine(EngineOptions{Config: testConfig(), Logger: zap.NewNop()})
	NewRouter(engine, WithAPIVersion("v1")).Register(pingRoutes{}).Setup()
	return engine
}

func TestRouter_VersionedRoutes(t *testing.T) {
	engine := newTestEngine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PanicRecovered(t *testing.T) {
	engine := newTestEngine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
}
