package handlers

import (
	"net/http"
	"time"

	userRepo "bottlebank/database/repository/user"
	"bottlebank/models"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 72 * time.Hour

// AuthHandler owns signup and signin. The role is fixed at onboarding and
// never changes afterwards.
type AuthHandler struct {
	Users userRepo.UserRepository
}

func NewAuthHandler(users userRepo.UserRepository) *AuthHandler {
	return &AuthHandler{Users: users}
}

type registerInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	City     string `json:"city"`
	FCMToken string `json:"fcmToken"`
}

// RegisterHandler creates an account and returns a signed token.
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	role := models.Role(input.Role)
	if role != models.RoleHost && role != models.RoleCollector {
		utils.JSONError(c, http.StatusBadRequest, "unknown role", "Sign up as a host or a collector.")
		return
	}

	existing, err := h.Users.GetByEmail(c.Request.Context(), input.Email)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not check email", "Please try again later.")
		return
	}
	if existing != nil {
		utils.JSONError(c, http.StatusConflict, "an account with this email already exists", "Sign in instead.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not create account", "Please try again later.")
		return
	}

	user := &models.UserProfile{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		City:         input.City,
		FCMToken:     input.FCMToken,
		JoinedAt:     time.Now().UTC(),
	}
	if err := h.Users.Create(c.Request.Context(), user); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not create account", "Please try again later.")
		return
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role), tokenLifetime)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not issue token", "Sign in to continue.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthenticateHandler verifies credentials and returns a signed token.
func (h *AuthHandler) AuthenticateHandler(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	user, err := h.Users.GetByEmail(c.Request.Context(), input.Email)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not sign in", "Please try again later.")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		utils.JSONError(c, http.StatusUnauthorized, "invalid email or password", "Check your credentials and try again.")
		return
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role), tokenLifetime)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not issue token", "Please try again later.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetProfileHandler returns the caller's own profile.
func (h *AuthHandler) GetProfileHandler(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		utils.JSONError(c, http.StatusNotFound, "profile not found", "Sign in again.")
		return
	}
	c.JSON(http.StatusOK, user)
}

type fcmTokenInput struct {
	FCMToken string `json:"fcmToken" binding:"required"`
}

// UpdateFCMTokenHandler stores the caller's push token.
func (h *AuthHandler) UpdateFCMTokenHandler(c *gin.Context) {
	var input fcmTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	userID := c.GetString("userID")
	user, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		utils.JSONError(c, http.StatusNotFound, "profile not found", "Sign in again.")
		return
	}
	user.FCMToken = input.FCMToken
	if err := h.Users.Update(c.Request.Context(), user); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not save push token", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
