package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addFavoriteRequest struct {
	FlatID string `json:"flatId"`
}

func (h HandlerSet) ListFavorites(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	flats, err := h.favorites.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": flats})
}

func (h HandlerSet) AddFavorite(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid request body.")
		return
	}

	if err := h.favorites.Add(c.Request.Context(), actor, c.Param("id"), req.FlatID); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusCreated, "Flat added to favorites")
}

func (h HandlerSet) RemoveFavorite(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.favorites.Remove(c.Request.Context(), actor, c.Param("id"), c.Param("flatId")); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Flat removed from favorites")
}
