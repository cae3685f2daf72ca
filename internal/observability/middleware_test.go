package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRequestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(logger), RequestMetricsMiddleware("test"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/health", "/stats", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := buf.String()
	if strings.Contains(out, `"path":"/health"`) {
		t.Fatalf("health probe should log below info: %s", out)
	}
	if !strings.Contains(out, `"level":"info","method":"GET","path":"/stats"`) {
		t.Fatalf("missing info line for /stats: %s", out)
	}
	if !strings.Contains(out, `"level":"error","method":"GET","path":"/boom"`) {
		t.Fatalf("missing error line for /boom: %s", out)
	}
	if !strings.Contains(out, `"level":"warn","method":"GET","path":"/missing"`) {
		t.Fatalf("missing warn line for unknown route: %s", out)
	}
}

func TestAppLoggerTagsApp(t *testing.T) {
	var buf bytes.Buffer
	logger := AppLogger("linkctl").Output(&buf)
	logger.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"app":"linkctl"`) {
		t.Fatalf("app field missing: %s", buf.String())
	}
}
