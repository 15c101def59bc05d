package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roomyhq/roomy-server/internal/service"
	"github.com/roomyhq/roomy-server/internal/util"
)

type MediaHandler struct {
	media *service.MediaService
}

func RegisterMedia(e *echo.Echo, auth *service.AuthService, media *service.MediaService) {
	handler := &MediaHandler{media: media}

	group := e.Group("/api/v1/guidebooks/:id", RequireAuth(auth))
	group.POST("/images", handler.upload)
}

func (h *MediaHandler) upload(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	guidebookID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("image file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("could not read uploaded file"))
	}
	defer file.Close()

	result, err := h.media.UploadImage(c.Request().Context(), user.ID, guidebookID, service.MediaUpload{
		Reader:      file,
		Size:        fileHeader.Size,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, util.Error("image is too large"))
		case errors.Is(err, service.ErrUploadUnsupported):
			return c.JSON(http.StatusUnsupportedMediaType, util.Error("file must be a jpeg, png, gif or webp image"))
		default:
			return writeGuidebookError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, util.Envelope{
		"url":          result.URL,
		"object_key":   result.ObjectKey,
		"content_type": result.ContentType,
		"width":        result.Width,
		"height":       result.Height,
		"size_bytes":   result.SizeBytes,
	})
}
