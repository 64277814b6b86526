package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"flatfinder/internal/service"
)

// multipartOverhead covers boundaries and part headers around the file.
const multipartOverhead = 64 << 10

type photoResponse struct {
	ID        string    `json:"id"`
	FlatID    string    `json:"flatId"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"sizeBytes"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

func newPhotoResponse(v service.PhotoView) photoResponse {
	return photoResponse{
		ID:        v.ID,
		FlatID:    v.FlatID,
		Format:    v.Format,
		SizeBytes: v.SizeBytes,
		URL:       v.URL,
		CreatedAt: v.CreatedAt,
	}
}

func (h HandlerSet) UploadPhoto(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Storage.MaxPhotoBytes+multipartOverhead)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, service.ErrPhotoTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid photo.",
			"errors":  map[string]string{"file": "is required"},
		})
		return
	}
	defer file.Close()

	view, err := h.photos.Upload(c.Request.Context(), actor, c.Param("id"), service.UploadInput{
		File:         file,
		DeclaredType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPhotoResponse(view))
}

func (h HandlerSet) ListPhotos(c *gin.Context) {
	views, err := h.photos.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	items := make([]photoResponse, 0, len(views))
	for _, v := range views {
		items = append(items, newPhotoResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) DownloadPhoto(c *gin.Context) {
	content, err := h.photos.Open(c.Request.Context(), c.Param("id"), c.Query("sig"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer content.Body.Close()

	c.Header("Content-Type", content.MIME)
	c.Header("Content-Length", strconv.FormatInt(content.Size, 10))
	c.Header("Cache-Control", "private, max-age=3600")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, content.Body); err != nil {
		h.log.Warn().Err(err).Str("photo_id", content.Photo.ID).Msg("photo stream interrupted")
	}
}

func (h HandlerSet) DeletePhoto(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.photos.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
