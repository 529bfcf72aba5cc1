package controllerImp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"formassist/entities"
	"formassist/pkg/session/service"
)

type SessionCtrl struct {
	s        service.Service
	maxBytes int64
}

func New(s service.Service, maxUploadBytes int64) *SessionCtrl {
	return &SessionCtrl{s: s, maxBytes: maxUploadBytes}
}

// errorStatus maps pipeline errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, entities.ErrMalformedDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, entities.ErrUnknownSession), errors.Is(err, entities.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidInput), errors.Is(err, entities.ErrBlockIndex):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func (h *SessionCtrl) Create(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart field 'file' required"})
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()
	var r io.Reader = f
	if h.maxBytes > 0 {
		r = io.LimitReader(f, h.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fail(c, err)
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
	}

	rec, err := h.s.ProcessDocument(c.Request().Context(), service.Upload{
		Filename: fh.Filename,
		Format:   c.FormValue("format"),
		Data:     data,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *SessionCtrl) Get(c echo.Context) error {
	rec, err := h.s.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *SessionCtrl) Versions(c echo.Context) error {
	recs, err := h.s.Versions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

type finalizeReq struct {
	Answers map[string]string `json:"answers"`
}

func (h *SessionCtrl) Finalize(c echo.Context) error {
	var req finalizeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if len(req.Answers) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "answers required"})
	}
	rec, rejected, err := h.s.FinalizeSession(c.Request().Context(), c.Param("id"), req.Answers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"record": rec, "rejected": rejected})
}

func (h *SessionCtrl) Document(c echo.Context) error {
	version := 0
	if v := c.QueryParam("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "version must be a positive integer"})
		}
		version = n
	}
	art, err := h.s.Document(c.Request().Context(), c.Param("id"), version)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", art.Filename))
	return c.Blob(http.StatusOK, art.ContentType, art.Data)
}
