package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/service"
	"github.com/roomyhq/roomy-server/internal/util"
)

type BlockHandler struct {
	blocks    *service.BlockService
	assistant *service.AssistantService
}

type reorderRequest struct {
	Orders   []domain.BlockOrder `json:"orders"`
	BlockIDs []uuid.UUID         `json:"block_ids"`
}

func RegisterBlocks(e *echo.Echo, auth *service.AuthService, blocks *service.BlockService, assistant *service.AssistantService) {
	handler := &BlockHandler{blocks: blocks, assistant: assistant}

	group := e.Group("/api/v1/guidebooks/:id/blocks", RequireAuth(auth))
	group.GET("", handler.list)
	group.POST("", handler.create)
	group.PUT("/reorder", handler.reorder)
	group.PATCH("/:blockId", handler.update)
	group.DELETE("/:blockId", handler.remove)
	group.POST("/:blockId/generate", handler.generate)
}

func (h *BlockHandler) list(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	blocks, err := h.blocks.List(c.Request().Context(), user.ID, guidebookID)
	if err != nil {
		return writeBlockError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"blocks": blocks})
}

func (h *BlockHandler) create(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var req struct {
		Type       string          `json:"type"`
		Content    json.RawMessage `json:"content"`
		OrderIndex *int            `json:"order_index"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	block, err := h.blocks.Create(c.Request().Context(), user.ID, guidebookID, service.BlockCreateInput{
		Type:       domain.BlockTypeFromStorage(req.Type),
		Content:    req.Content,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		return writeBlockError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Envelope{"block": block})
}

func (h *BlockHandler) update(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, blockID, err := parseBlockParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("ids must be valid UUIDs"))
	}

	var req struct {
		Content   json.RawMessage `json:"content"`
		IsVisible *bool           `json:"is_visible"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	block, err := h.blocks.Update(c.Request().Context(), user.ID, guidebookID, blockID, service.BlockUpdateInput{
		Content:   req.Content,
		IsVisible: req.IsVisible,
	})
	if err != nil {
		return writeBlockError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"block": block})
}

func (h *BlockHandler) remove(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, blockID, err := parseBlockParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("ids must be valid UUIDs"))
	}

	if err := h.blocks.Delete(c.Request().Context(), user.ID, guidebookID, blockID); err != nil {
		return writeBlockError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true})
}

func (h *BlockHandler) reorder(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	blocks, err := applyReorder(c, h.blocks, user.ID, guidebookID, req)
	if err != nil {
		return writeBlockError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"blocks": blocks})
}

// applyReorder accepts either explicit order pairs or the full ordered id
// list shorthand.
func applyReorder(c echo.Context, blocks *service.BlockService, ownerID, guidebookID uuid.UUID, req reorderRequest) ([]domain.Block, error) {
	ctx := c.Request().Context()
	if len(req.Orders) > 0 {
		return blocks.Reorder(ctx, ownerID, guidebookID, req.Orders)
	}
	if len(req.BlockIDs) > 0 {
		return blocks.ReorderByIDs(ctx, ownerID, guidebookID, req.BlockIDs)
	}
	return nil, service.ErrReorderMismatch
}

func (h *BlockHandler) generate(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, blockID, err := parseBlockParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("ids must be valid UUIDs"))
	}

	var req struct {
		Instructions string `json:"instructions"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	draft, err := h.assistant.GenerateBlockContent(c.Request().Context(), user.ID, guidebookID, blockID, req.Instructions)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAICreditsExhausted):
			return c.JSON(http.StatusPaymentRequired, util.Error("no AI credits remaining this month"))
		case errors.Is(err, service.ErrAIDraftInvalid):
			return c.JSON(http.StatusUnprocessableEntity, util.Error("the assistant produced unusable content, try again"))
		case errors.Is(err, service.ErrAIUnavailable):
			return c.JSON(http.StatusServiceUnavailable, util.Error("AI generation is unavailable"))
		default:
			return writeBlockError(c, err)
		}
	}
	return c.JSON(http.StatusOK, util.Envelope{"draft": draft})
}

func writeBlockError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, util.FieldErrors(verr))
	case errors.Is(err, domain.ErrUnknownBlockType):
		return c.JSON(http.StatusBadRequest, util.Error("unknown block type"))
	case errors.Is(err, service.ErrReorderMismatch):
		return c.JSON(http.StatusConflict, util.Error("reorder payload must cover every block exactly once"))
	case errors.Is(err, service.ErrBlockNotFound):
		return c.JSON(http.StatusNotFound, util.Error("block not found"))
	case errors.Is(err, service.ErrGuidebookNotFound):
		return c.JSON(http.StatusNotFound, util.Error("guidebook not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, util.Error("you do not own this guidebook"))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("something went wrong"))
	}
}

func parseBlockParams(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	blockID, err := parseIDParam(c, "blockId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return guidebookID, blockID, nil
}
