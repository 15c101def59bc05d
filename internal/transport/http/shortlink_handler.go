package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roomyhq/roomy-server/internal/service"
	"github.com/roomyhq/roomy-server/internal/util"
)

type ShortLinkHandler struct {
	links *service.ShortLinkService
}

func RegisterShortLinks(e *echo.Echo, auth *service.AuthService, links *service.ShortLinkService) {
	handler := &ShortLinkHandler{links: links}

	e.GET("/s/:code", handler.redirect)

	group := e.Group("/api/v1/guidebooks/:id", RequireAuth(auth))
	group.POST("/short-link", handler.ensure)
	group.GET("/qr", handler.qrCode)
	group.GET("/clicks", handler.clickStats)
}

// redirect is the public hot path: resolve, count, 302 to the guest page.
func (h *ShortLinkHandler) redirect(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	resolution, err := h.links.Resolve(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrShortLinkNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("link not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not resolve link"))
	}
	return c.Redirect(http.StatusFound, "/api/v1/guides/"+resolution.Guidebook.Slug)
}

func (h *ShortLinkHandler) ensure(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	link, err := h.links.EnsureLink(c.Request().Context(), user.ID, guidebookID)
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"code":      link.Code,
		"short_url": h.links.ShortURL(link.Code),
	})
}

func (h *ShortLinkHandler) qrCode(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	png, err := h.links.QRCode(c.Request().Context(), user.ID, guidebookID)
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *ShortLinkHandler) clickStats(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	since := time.Now().AddDate(0, 0, -30)
	if raw := strings.TrimSpace(c.QueryParam("since")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("since must be YYYY-MM-DD"))
		}
		since = parsed
	}

	link, buckets, err := h.links.ClickStats(c.Request().Context(), user.ID, guidebookID, since)
	if err != nil {
		if errors.Is(err, service.ErrShortLinkNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("no short link for this guidebook"))
		}
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"link":    link,
		"buckets": buckets,
	})
}
