package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"expense-tracker-api/internal/app"
	"expense-tracker-api/internal/transport/http/response"
)

const (
	msgWeakPassword       = "Password must be at least 8 characters long, contain at least one capital letter and one special character."
	msgInvalidEmail       = "Invalid email format."
	msgUserExists         = "Username or email already exists."
	msgRegistrationFailed = "Registration failed"
	msgRegistered         = "User registered successfully"
	msgInvalidCredentials = "Invalid credentials"
	msgLoginFailed        = "Login failed"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgRegistrationFailed, err)
		return
	}

	_, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrWeakPassword):
			response.Message(c, http.StatusBadRequest, msgWeakPassword)
		case errors.Is(err, app.ErrInvalidEmail):
			response.Message(c, http.StatusBadRequest, msgInvalidEmail)
		case errors.Is(err, app.ErrUserExists):
			response.Message(c, http.StatusBadRequest, msgUserExists)
		default:
			response.Error(c, http.StatusBadRequest, msgRegistrationFailed, err)
		}
		return
	}

	response.Message(c, http.StatusCreated, msgRegistered)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgLoginFailed, err)
		return
	}

	token, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		EmailOrUsername: req.EmailOrUsername,
		Password:        req.Password,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredential) {
			response.Message(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		response.Error(c, http.StatusBadRequest, msgLoginFailed, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
