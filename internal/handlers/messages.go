package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flatfinder/internal/service"
)

func (h HandlerSet) Inbox(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var page service.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		badBody(c, "Invalid paging parameters.")
		return
	}

	inbox, err := h.messages.Inbox(c.Request.Context(), actor, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": inbox.Messages,
		"unread":   inbox.Unread,
	})
}

func (h HandlerSet) SentMessages(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var page service.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		badBody(c, "Invalid paging parameters.")
		return
	}

	msgs, err := h.messages.Sent(c.Request.Context(), actor, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h HandlerSet) SendMessage(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req service.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid request body.")
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), actor, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h HandlerSet) MarkMessageRead(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	msg, err := h.messages.MarkRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h HandlerSet) DeleteMessage(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusOK, "Message deleted")
}
