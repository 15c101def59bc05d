package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roomyhq/roomy-server/internal/render"
	"github.com/roomyhq/roomy-server/internal/service"
	"github.com/roomyhq/roomy-server/internal/util"
)

type GuestHandler struct {
	guidebooks *service.GuidebookService
	assistant  *service.AssistantService
	stats      *service.ViewStatsService
	renderer   *render.Renderer
}

func RegisterGuestPages(
	e *echo.Echo,
	guidebooks *service.GuidebookService,
	assistant *service.AssistantService,
	stats *service.ViewStatsService,
	renderer *render.Renderer,
) {
	handler := &GuestHandler{
		guidebooks: guidebooks,
		assistant:  assistant,
		stats:      stats,
		renderer:   renderer,
	}

	group := e.Group("/api/v1/guides")
	group.GET("/:slug", handler.view)
	group.POST("/:slug/chat", handler.chat)
}

func (h *GuestHandler) view(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	guidebook, blocks, err := h.guidebooks.GetPublishedBySlug(c.Request().Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrGuidebookNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("guidebook not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not load guidebook"))
	}

	visitor := h.stats.VisitorHash(c.RealIP(), c.Request().UserAgent())
	h.stats.RecordView(c.Request().Context(), guidebook.ID, visitor, c.Request().Referer())

	view := h.renderer.AssembleGuestView(guidebook, blocks)
	return c.JSON(http.StatusOK, view)
}

func (h *GuestHandler) chat(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))

	var req struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	answer, err := h.assistant.GuestChat(c.Request().Context(), slug, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatQuestionEmpty):
			return c.JSON(http.StatusBadRequest, util.Error("question is required"))
		case errors.Is(err, service.ErrGuidebookNotFound):
			return c.JSON(http.StatusNotFound, util.Error("guidebook not found"))
		case errors.Is(err, service.ErrAICreditsExhausted):
			return c.JSON(http.StatusServiceUnavailable, util.Error("the host has no AI credits remaining"))
		case errors.Is(err, service.ErrAIUnavailable):
			return c.JSON(http.StatusServiceUnavailable, util.Error("chat is unavailable"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not answer that"))
		}
	}
	return c.JSON(http.StatusOK, util.Envelope{"answer": answer})
}
