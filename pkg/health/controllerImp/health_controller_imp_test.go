package controllerImp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formassist/database"
)

type fixedSize int

func (n fixedSize) Len() int { return int(n) }

func health(t *testing.T, h *HealthCtrl) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthy(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	code, body := health(t, NewHealthCtrl(db, fixedSize(3)))
	assert.Equal(t, http.StatusOK, code)
	kb := body["checks"].(map[string]any)["knowledge_base"].(map[string]any)
	assert.Equal(t, true, kb["ok"])
	assert.Equal(t, float64(3), kb["entries"])
}

func TestDatabaseDown(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, body := health(t, NewHealthCtrl(db, fixedSize(0)))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	kb := body["checks"].(map[string]any)["knowledge_base"].(map[string]any)
	assert.Equal(t, false, kb["ok"])
}

func TestNoDatabase(t *testing.T) {
	code, _ := health(t, NewHealthCtrl(nil, fixedSize(1)))
	assert.Equal(t, http.StatusOK, code)
}
