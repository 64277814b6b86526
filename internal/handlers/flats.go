package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flatfinder/internal/service"
)

func (h HandlerSet) ListFlats(c *gin.Context) {
	var query service.FlatQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badBody(c, "Invalid filter.")
		return
	}

	flats, err := h.flats.List(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":   flats,
		"page":    max(query.Page.Page, 1),
		"perPage": query.Limit(),
	})
}

func (h HandlerSet) GetFlat(c *gin.Context) {
	flat, err := h.flats.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flat)
}

func (h HandlerSet) CreateFlat(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req service.FlatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid request body.")
		return
	}

	flat, err := h.flats.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flat)
}

func (h HandlerSet) UpdateFlat(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req service.FlatPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid request body.")
		return
	}

	flat, err := h.flats.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flat)
}

func (h HandlerSet) DeleteFlat(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.flats.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Flat deleted successfully")
}
