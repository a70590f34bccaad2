package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pvforge/helios/internal/domain/auth"
	apperrors "github.com/pvforge/helios/pkg/errors"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	svc    auth.Service
	logger *slog.Logger
}

// NewAuthHandler constructs the auth endpoints.
func NewAuthHandler(svc auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger.With("component", "http.auth"),
	}
}

// Register creates a new account from an email and password pair.
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "Invalid registration data", errMessage(err), err))
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalidInput):
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "Invalid registration data", apperrors.MessageOf(err), err))
		case apperrors.IsCode(err, apperrors.CodeEmailExists):
			abortWithError(c, NewHTTPError(http.StatusConflict, "Email already registered", apperrors.MessageOf(err), err))
		default:
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Registration failed", apperrors.MessageOf(err), err))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login verifies credentials and issues a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "Email and password required", errMessage(err), err))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalidInput):
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "Email and password required", apperrors.MessageOf(err), err))
		case apperrors.IsCode(err, apperrors.CodeInvalidCredentials):
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "Invalid credentials", "", err))
		default:
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Login failed", apperrors.MessageOf(err), err))
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
