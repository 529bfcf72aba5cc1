package controllerImp

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var appStart = time.Now()

// Sizer reports how many knowledge-base entries are loaded.
type Sizer interface{ Len() int }

type HealthCtrl struct {
	db *gorm.DB
	kb Sizer
}

// NewHealthCtrl accepts a nil db for runs without persistence.
func NewHealthCtrl(db *gorm.DB, kb Sizer) *HealthCtrl { return &HealthCtrl{db: db, kb: kb} }

type check struct {
	OK      bool   `json:"ok"`
	Err     string `json:"err,omitempty"`
	Entries *int   `json:"entries,omitempty"`
}

func (h *HealthCtrl) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	db := check{OK: true}
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil {
			db = check{Err: "db.DB(): " + err.Error()}
		} else if err := sqlDB.PingContext(ctx); err != nil {
			db = check{Err: "ping: " + err.Error()}
		}
	}

	kb := check{Err: "knowledge base not loaded"}
	if h.kb != nil {
		n := h.kb.Len()
		kb = check{OK: n > 0, Entries: &n}
		if n == 0 {
			kb.Err = "knowledge base is empty"
		}
	}

	// an empty knowledge base still serves requests, it just resolves nothing
	allOK := db.OK
	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{
		"status":     map[string]any{"ok": allOK},
		"uptime_sec": int(time.Since(appStart).Seconds()),
		"checks": map[string]any{
			"database":       db,
			"knowledge_base": kb,
		},
		"time": time.Now().Format(time.RFC3339),
	})
}
