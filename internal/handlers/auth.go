package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flatfinder/internal/models"
	"flatfinder/internal/service"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Birthdate string    `json:"birthdate"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Birthdate: u.Birthdate.Format(time.DateOnly),
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type loginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      loginUser `json:"user"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "All fields are required.")
		return
	}

	if _, err := h.auth.Register(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	message(c, http.StatusCreated, "User registered successfully.")
}

func (h HandlerSet) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "Invalid email or password")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      loginUser{ID: result.User.ID, Email: result.User.Email},
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}
