package controllerImp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"formassist/pkg/kb/service"
	"formassist/pkg/textnorm"
)

type KBCtrl struct {
	s service.KnowledgeBase
}

func New(s service.KnowledgeBase) *KBCtrl { return &KBCtrl{s: s} }

func (h *KBCtrl) List(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"entries": h.s.Entries(), "count": h.s.Len()})
}

// Lookup answers the same question the resolver asks: does this text resolve?
func (h *KBCtrl) Lookup(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q required"})
	}
	norm := textnorm.Normalize(q)
	m, ok := h.s.Lookup(norm)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "no match", "normalized": norm})
	}
	return c.JSON(http.StatusOK, map[string]any{"match": m, "normalized": norm})
}

func (h *KBCtrl) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q required"})
	}
	k := 6
	if v := c.QueryParam("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "k must be a positive integer"})
		}
		k = n
	}
	return c.JSON(http.StatusOK, h.s.Search(q, k))
}
