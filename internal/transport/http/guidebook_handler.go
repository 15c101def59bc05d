package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/service"
	"github.com/roomyhq/roomy-server/internal/util"
)

type GuidebookHandler struct {
	guidebooks *service.GuidebookService
	importer   *service.ListingImportService
	stats      *service.ViewStatsService
	nudges     *service.ReviewNudgeService
}

func RegisterGuidebooks(
	e *echo.Echo,
	auth *service.AuthService,
	guidebooks *service.GuidebookService,
	importer *service.ListingImportService,
	stats *service.ViewStatsService,
	nudges *service.ReviewNudgeService,
) {
	handler := &GuidebookHandler{
		guidebooks: guidebooks,
		importer:   importer,
		stats:      stats,
		nudges:     nudges,
	}

	group := e.Group("/api/v1/guidebooks", RequireAuth(auth))
	group.GET("", handler.list)
	group.POST("", handler.create)
	group.POST("/import", handler.importListing)
	group.GET("/trending", handler.trending)
	group.GET("/:id", handler.get)
	group.PATCH("/:id", handler.updateSettings)
	group.DELETE("/:id", handler.remove)
	group.POST("/:id/publish", handler.publish)
	group.POST("/:id/archive", handler.archive)
	group.GET("/:id/stats", handler.viewStats)
	group.POST("/:id/nudge-test", handler.sendTestNudge)
}

func (h *GuidebookHandler) list(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	guidebooks, err := h.guidebooks.List(c.Request().Context(), user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not load guidebooks"))
	}
	return c.JSON(http.StatusOK, util.Envelope{"guidebooks": guidebooks})
}

func (h *GuidebookHandler) create(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req struct {
		Title       string  `json:"title"`
		Slug        string  `json:"slug"`
		Description *string `json:"description"`
		Theme       string  `json:"theme"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	guidebook, err := h.guidebooks.Create(c.Request().Context(), user.ID, service.GuidebookCreateInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Theme:       req.Theme,
	})
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Envelope{"guidebook": guidebook})
}

func (h *GuidebookHandler) importListing(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req struct {
		ListingURL string `json:"listing_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	guidebook, blocks, err := h.importer.Import(c.Request().Context(), user.ID, req.ListingURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingURLInvalid):
			return c.JSON(http.StatusBadRequest, util.Error("listing_url must be an Airbnb listing URL"))
		case errors.Is(err, service.ErrListingFetchFailed):
			return c.JSON(http.StatusBadGateway, util.Error("could not fetch the listing page"))
		case errors.Is(err, service.ErrListingParseFailed):
			return c.JSON(http.StatusUnprocessableEntity, util.Error("could not extract listing details"))
		case errors.Is(err, service.ErrPlanLimitReached):
			return c.JSON(http.StatusPaymentRequired, util.Error("guidebook limit reached for your plan"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not import listing"))
		}
	}

	return c.JSON(http.StatusCreated, util.Envelope{
		"guidebook": guidebook,
		"blocks":    blocks,
	})
}

func (h *GuidebookHandler) get(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	guidebook, blocks, err := h.guidebooks.Get(c.Request().Context(), user.ID, guidebookID)
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"guidebook": guidebook,
		"blocks":    blocks,
	})
}

func (h *GuidebookHandler) updateSettings(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var settings domain.GuidebookSettings
	if err := c.Bind(&settings); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	guidebook, err := h.guidebooks.UpdateSettings(c.Request().Context(), user.ID, guidebookID, settings)
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"guidebook": guidebook})
}

func (h *GuidebookHandler) remove(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	if err := h.guidebooks.Delete(c.Request().Context(), user.ID, guidebookID); err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true})
}

func (h *GuidebookHandler) publish(c echo.Context) error {
	return h.transition(c, h.guidebooks.Publish)
}

func (h *GuidebookHandler) archive(c echo.Context) error {
	return h.transition(c, h.guidebooks.Archive)
}

func (h *GuidebookHandler) transition(c echo.Context, apply func(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error)) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	guidebook, err := apply(c.Request().Context(), user.ID, guidebookID)
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"guidebook": guidebook})
}

func (h *GuidebookHandler) viewStats(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	forceRefresh := strings.EqualFold(c.QueryParam("refresh"), "true")
	stats, err := h.stats.Stats(c.Request().Context(), user.ID, guidebookID, forceRefresh)
	if err != nil {
		return writeGuidebookError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"stats": stats})
}

func (h *GuidebookHandler) trending(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	limit := 10
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	rangeKey := domain.ViewRange(strings.TrimSpace(c.QueryParam("range")))

	popular, err := h.stats.Trending(c.Request().Context(), user.ID, rangeKey, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not load trending guidebooks"))
	}
	return c.JSON(http.StatusOK, util.Envelope{"guidebooks": popular})
}

func (h *GuidebookHandler) sendTestNudge(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var req struct {
		ReviewURL string `json:"review_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	if err := h.nudges.SendTestNudge(c.Request().Context(), user.ID, guidebookID, req.ReviewURL); err != nil {
		switch {
		case errors.Is(err, service.ErrReviewURLInvalid):
			return c.JSON(http.StatusBadRequest, util.Error("review_url must be an absolute http(s) URL"))
		case errors.Is(err, service.ErrNudgeNotConfigured):
			return c.JSON(http.StatusServiceUnavailable, util.Error("email sending is not configured"))
		default:
			return writeGuidebookError(c, err)
		}
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true})
}

func writeGuidebookError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, util.FieldErrors(verr))
	case errors.Is(err, service.ErrGuidebookValidation):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrSlugTaken):
		return c.JSON(http.StatusConflict, util.Error("slug is already in use"))
	case errors.Is(err, service.ErrPlanLimitReached):
		return c.JSON(http.StatusPaymentRequired, util.Error("guidebook limit reached for your plan"))
	case errors.Is(err, service.ErrGuidebookNotFound):
		return c.JSON(http.StatusNotFound, util.Error("guidebook not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, util.Error("you do not own this guidebook"))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("something went wrong"))
	}
}

func parseIDParam(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Param(name)))
}
