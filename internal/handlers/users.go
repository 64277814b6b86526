package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flatfinder/internal/service"
)

func (h HandlerSet) ListUsers(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var page service.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		badBody(c, "Invalid paging parameters.")
		return
	}

	users, err := h.users.List(c.Request.Context(), actor, page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"page":    max(page.Page, 1),
		"perPage": page.Limit(),
	})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req service.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid request body.")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req service.PasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid request body.")
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Password updated successfully.")
}

type setAdminRequest struct {
	IsAdmin *bool `json:"isAdmin"`
}

func (h HandlerSet) SetAdmin(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req setAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAdmin == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid request body.",
			"errors":  map[string]string{"isAdmin": "is required"},
		})
		return
	}

	user, err := h.users.SetAdmin(c.Request.Context(), actor, c.Param("id"), *req.IsAdmin)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusOK, "User deleted successfully.")
}
