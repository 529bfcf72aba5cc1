package controller

import "github.com/labstack/echo/v4"

type SessionController interface {
	Create(c echo.Context) error
	Get(c echo.Context) error
	Versions(c echo.Context) error
	Finalize(c echo.Context) error
	Document(c echo.Context) error
}
