package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centsible-app/centsible/internal/auth"
	"github.com/centsible-app/centsible/internal/middleware"
	"github.com/centsible-app/centsible/internal/models"
)

// AuthHandler serves signup, login, and the current-user lookup.
type AuthHandler struct {
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
	users         auth.UserStorage
}

// NewAuthHandler creates an AuthHandler on top of the given authenticator.
func NewAuthHandler(authenticator auth.Authenticator, jwt *auth.JWTManager, users auth.UserStorage) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwt:           jwt,
		users:         users,
	}
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Signup registers a new account and returns the user with a session token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slog.Info("Signup request received", "email", req.Email)

	user, err := h.authenticator.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		slog.Error("Signup failed", "email", req.Email, "error", err)
		writeError(c, err)
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Signup successful", "user_id", user.ID)
	c.JSON(http.StatusCreated, authResponse{User: user, Token: token})
}

// Login authenticates an existing account and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slog.Info("Login request received", "email", req.Email)

	user, err := h.authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Email)
		writeError(c, err)
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Login successful", "user_id", user.ID)
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
