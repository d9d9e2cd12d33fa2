package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/gateway"
	"example.com/backstage/dashboard/internal/gateway/fakebackend"
	"example.com/backstage/dashboard/internal/metrics"
	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/panels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterServesPanelsWithCORS(t *testing.T) {
	fb := fakebackend.Start()
	defer fb.Close()
	fb.Lock()
	fb.Products = []models.Product{{ID: 1, Name: "acero", Type: models.ProductTypeRaw}}
	fb.Unlock()

	m := metrics.NewMetrics()
	client := gateway.NewClient(fb.Config(), nil, m)
	center := notify.NewCenter(10)
	dashboard := panels.NewDashboard(client, namecache.New(client, nil, "products"), center, nil, 2)

	srv := NewServer(config.ServerConfig{Address: "127.0.0.1:0", CorsOrigins: []string{"http://localhost:4200"}}, dashboard, center, m, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), `"acero"`)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
