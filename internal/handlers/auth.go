package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/utils"
)

const refreshCookie = "refresh_token"

// maxUploadSize caps avatar and medical record files.
const maxUploadSize = 10 << 20

// AuthService is the account behaviour the auth endpoints need.
type AuthService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*accounts.Session, error)
	Refresh(ctx context.Context, token string) (*accounts.Session, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in accounts.ProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID string, file io.Reader, filename string) (*models.UserProfile, error)
	DeleteAvatar(ctx context.Context, userID string) error
}

// AuthHandler handles authentication and profile requests.
type AuthHandler struct {
	svc AuthService
	cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, token, maxAge, "/", "", !h.cfg.IsDevelopment(), true)
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req accounts.RegisterInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken, int(h.cfg.JWT.RefreshTTL.Seconds()))
	utils.Success(c, "Login successful", session)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// presentedToken reads the refresh token from the cookie, falling back to
// the request body.
func presentedToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		return token, true
	}
	var req RefreshTokenRequest
	if !utils.BindAndValidate(c, &req) {
		return "", false
	}
	return req.RefreshToken, true
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, ok := presentedToken(c)
	if !ok {
		return
	}

	session, err := h.svc.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken, int(h.cfg.JWT.RefreshTTL.Seconds()))
	utils.Success(c, "Token refreshed successfully", session)
}

// Logout revokes the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := presentedToken(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logged out successfully", nil)
}

// GetProfile returns the signed-in user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.svc.Profile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Profile retrieved successfully", user.Sanitize())
}

// UpdateProfile applies partial updates to the signed-in user.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req accounts.ProfileInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// UploadAvatar stores the "avatar" form file as the profile picture.
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("avatar")
	if err != nil {
		utils.BadRequest(c, "An avatar image is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.BadRequest(c, "Could not read the uploaded file")
		return
	}
	defer file.Close()

	profile, err := h.svc.UploadAvatar(c.Request.Context(), id, file, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Avatar uploaded successfully", profile)
}

func (h *AuthHandler) DeleteAvatar(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteAvatar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Avatar removed successfully", nil)
}
