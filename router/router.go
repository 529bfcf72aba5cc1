package router

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	healthCtrl "formassist/pkg/health/controller"
	kbCtrl "formassist/pkg/kb/controller"
	"formassist/pkg/middleware"
	sessionCtrl "formassist/pkg/session/controller"
)

type Options struct {
	APIToken       string
	MaxUploadBytes int64
}

func New(
	e *echo.Echo,
	log *zap.Logger,
	opts Options,
	sessions sessionCtrl.SessionController,
	kb kbCtrl.KBController,
	health healthCtrl.HealthController,
) *echo.Echo {
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestLog(log))

	e.GET("/health", health.Health)

	api := e.Group("/api/v1", middleware.APIToken(opts.APIToken))
	if opts.MaxUploadBytes > 0 {
		// multipart framing adds a little on top of the file itself
		api.Use(echoMiddleware.BodyLimit(strconv.FormatInt(opts.MaxUploadBytes+1<<20, 10)))
	}

	api.POST("/sessions", sessions.Create)
	api.GET("/sessions/:id", sessions.Get)
	api.GET("/sessions/:id/versions", sessions.Versions)
	api.POST("/sessions/:id/finalize", sessions.Finalize)
	api.GET("/sessions/:id/document", sessions.Document)

	api.GET("/kb", kb.List)
	api.GET("/kb/lookup", kb.Lookup)
	api.GET("/kb/search", kb.Search)
	return e
}
