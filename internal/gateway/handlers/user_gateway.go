package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gestvendas/internal/database/models"
	user "gestvendas/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *user.UserHandler
}

func NewUserHTTPHandler(userHandler *user.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{users: userHandler}
}

type RegisterRequest struct {
	Username string  `json:"username" binding:"required,min=3"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	FullName *string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type UpsertSettingRequest struct {
	Value    string `json:"value" binding:"required"`
	DataType string `json:"data_type,omitempty"`
}

// userView hides the password hash and confirmation token from API
// responses.
type userView struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
	Role     string  `json:"role"`
	IsActive bool    `json:"is_active"`
}

func toUserView(u models.User) userView {
	return userView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

func (h *UserHTTPHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	created, err := h.users.Register(c.Request.Context(), user.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("User registered successfully", toUserView(*created)))
}

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	result, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       toUserView(result.User),
	}))
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	u, err := h.users.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User retrieved successfully", toUserView(*u)))
}

func (h *UserHTTPHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Password changed successfully", nil))
}

// --- Settings ---

func (h *UserHTTPHandler) ListSettings(c *gin.Context) {
	settings, err := h.users.ListSettings(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Settings retrieved successfully", settings))
}

func (h *UserHTTPHandler) GetSetting(c *gin.Context) {
	setting, err := h.users.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Setting retrieved successfully", setting))
}

func (h *UserHTTPHandler) UpsertSetting(c *gin.Context) {
	var req UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	setting, err := h.users.UpsertSetting(c.Request.Context(), c.Param("key"), req.Value, req.DataType)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Setting saved successfully", setting))
}
