package handlers

import (
	"costest/models"
	"costest/storage"
	"costest/utils"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var validRoles = map[string]bool{
	models.RoleAdmin:      true,
	models.RoleContractor: true,
	models.RoleQS:         true,
	models.RolePM:         true,
	models.RoleDeveloper:  true,
}

// RegisterUser godoc
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  models.RegisterRequest  true  "Account details"
// @Success      201  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/register [post]
func RegisterUser(c *gin.Context) {
	db := storage.GetDB()

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleContractor
	}
	if !validRoles[role] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	// Admin accounts are provisioned manually, never self-registered.
	if role == models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot self-register as admin"})
		return
	}

	if existing, _ := storage.GetUserByEmail(db, req.Email); existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := &models.User{
		Email:     strings.ToLower(req.Email),
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		Company:   req.Company,
		Phone:     req.Phone,
	}
	id, err := storage.CreateUser(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "email": user.Email, "role": user.Role})
}

// LoginUser godoc
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  models.LoginRequest  true  "Credentials"
// @Success      200  {object}  object
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/login [post]
func LoginUser(c *gin.Context) {
	db := storage.GetDB()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := storage.GetUserByEmail(db, req.Email)
	if err != nil || !utils.ValidatePassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if user.Suspended {
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		return
	}

	token, err := utils.GenerateJWT(user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	session := &models.Session{
		UserID:    user.ID,
		SessionID: token,
		HostName:  user.Email,
		IPAddress: c.ClientIP(),
		Timestamp: time.Now(),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := storage.SaveSession(db, session, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
		},
	})
}

// LogoutUser godoc
// @Summary      Log out the current session
// @Tags         auth
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer token"
// @Success      200  {object}  utils.Response
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/logout [post]
func LogoutUser(c *gin.Context) {
	db := storage.GetDB()

	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	token := bearerToken(c)
	if err := storage.DeleteSessionByID(db, token, user.ID); err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	utils.SuccessResponse(c, "Logged out", http.StatusOK)
}

// GetProfile godoc
// @Summary      Current account profile
// @Tags         auth
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer token"
// @Success      200  {object}  models.User
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/profile [get]
func GetProfile(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}
	c.JSON(http.StatusOK, user)
}
