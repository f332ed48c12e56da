package audrey

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIServerStatus(t *testing.T) {
	t.Parallel()
	api, err := newAPIServer(DefaultConfig().API, nil, nil)
	require.NoError(t, err)

	for _, path := range []string{"/", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		api.httpServer.Handler.ServeHTTP(w, req)

		require.Equalf(t, http.StatusOK, w.Code, "path: %s", path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Contains(t, body, "version")
	}
}

func TestAPIServerTimeouts(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().API
	api, err := newAPIServer(cfg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, cfg.ReadTimeout, api.httpServer.ReadTimeout)
	assert.Equal(t, cfg.ReadHeaderTimeout, api.httpServer.ReadHeaderTimeout)
	assert.Equal(t, cfg.WriteTimeout, api.httpServer.WriteTimeout)
	assert.Equal(t, cfg.IdleTimeout, api.httpServer.IdleTimeout)
}

func TestAPIServerNilConfig(t *testing.T) {
	t.Parallel()
	_, err := newAPIServer(nil, nil, nil)
	assert.Error(t, err)
}
