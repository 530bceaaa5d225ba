package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ngramlm/internal/config"
	"ngramlm/internal/controller"
	"ngramlm/internal/service/ngram"
	"ngramlm/pkg/mcp"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.App.ModelDir = t.TempDir()
	cfg.Generation.Seed = 3

	logger := zap.NewNop()
	ns, err := ngram.NewNGramService(cfg, logger)
	require.NoError(t, err)

	return SetupRouter(controller.NewNGramController(ns, logger), mcp.NewNGramMCPServer(ns, logger), logger)
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	w, body := do(t, router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestModelLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w, body := do(t, router, http.MethodPost, "/api/v1/models", map[string]any{
		"name":  "cats",
		"order": 2,
		"sentences": [][]string{
			{"el", "gato", "come"},
			{"el", "gato", "duerme"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "cats", body["name"])

	w, body = do(t, router, http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["models"], 1)

	w, body = do(t, router, http.MethodPost, "/api/v1/models/cats/score", map[string]any{"sentence": []string{"el", "gato", "come"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.5, body["probability"])
	assert.Equal(t, -1.0, body["log_probability"])

	w, body = do(t, router, http.MethodPost, "/api/v1/models/cats/score", map[string]any{"text": "el perro"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.0, body["probability"])
	assert.Equal(t, "-Inf", body["log_probability"])

	w, body = do(t, router, http.MethodPost, "/api/v1/models/cats/generate", map[string]any{"count": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, body["sentences"], 2)

	w, body = do(t, router, http.MethodPost, "/api/v1/models/cats/evaluate", map[string]any{
		"sentences": [][]string{{"el", "gato", "come"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 4.0, body["token_count"])
	assert.InDelta(t, 0.25, body["cross_entropy"], 1e-12)

	w, body = do(t, router, http.MethodGet, "/api/v1/models/cats/distribution?context=gato", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dist := body["distribution"].([]any)
	require.Len(t, dist, 2)
	assert.Equal(t, "duerme", dist[0].(map[string]any)["token"])

	w, _ = do(t, router, http.MethodPost, "/api/v1/models/cats/save", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = do(t, router, http.MethodDelete, "/api/v1/models/cats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/models/cats", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(t, router, http.MethodPost, "/api/v1/models/cats/load", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cats", body["name"])
}

func TestErrorStatuses(t *testing.T) {
	router := newTestRouter(t)

	w, _ := do(t, router, http.MethodPost, "/api/v1/models/missing/score", map[string]any{"sentence": []string{"a"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/models", map[string]any{"name": "bad", "order": -1, "sentences": [][]string{{"a"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/models", map[string]any{"order": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/models", map[string]any{"name": "x", "sentences": [][]string{{"a", "b"}}})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/models/x/score", map[string]any{"sentence": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/models/x/distribution?context=a&context=b", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/models/x/evaluate", map[string]any{"sentences": [][]string{{}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/models/x/generate", map[string]any{"count": 1 << 60})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDistributionContextWithComma(t *testing.T) {
	router := newTestRouter(t)

	w, _ := do(t, router, http.MethodPost, "/api/v1/models", map[string]any{
		"name":      "csv",
		"order":     2,
		"sentences": [][]string{{"a,b", "c"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body := do(t, router, http.MethodGet, "/api/v1/models/csv/distribution?context=a%2Cb", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{"a,b"}, body["context"])
	dist := body["distribution"].([]any)
	require.Len(t, dist, 1)
	assert.Equal(t, "c", dist[0].(map[string]any)["token"])
	assert.Equal(t, 1.0, dist[0].(map[string]any)["probability"])
}

func TestCustomRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(CustomRecoveryMiddleware(zap.NewNop()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w, body := do(t, router, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body["error"])
}
