package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mittell/blogpost/middleware"
	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

const minPasswordLength = 6

// AuthController handles signup, login, logout and session introspection,
// plus third-party OAuth login (see oauth.go).
type AuthController struct {
	db       *gorm.DB
	sessions *utils.SessionManager
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, sessions *utils.SessionManager) *AuthController {
	return &AuthController{db: db, sessions: sessions}
}

func claimsFor(u models.User) utils.Claims {
	return utils.Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
		Blocked:  u.Blocked,
	}
}

// Signup registers a local account and opens a session.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing required fields")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing required fields")
		return
	}
	if len(req.Password) < minPasswordLength {
		utils.Fail(ctx, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	var existing models.User
	err := a.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		utils.Fail(ctx, http.StatusConflict, "Email or username already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Fail(ctx, http.StatusInternalServerError, "Signup failed")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := a.sessions.Set(ctx, claimsFor(user)); err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.OK(ctx, http.StatusOK, userView(user))
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing email or password")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing email or password")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.Fail(ctx, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	ok, needsRehash := utils.VerifyPassword(user.PasswordHash, req.Password)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	// Legacy SHA-256 credential verified: migrate it to bcrypt in place.
	if needsRehash {
		if hash, err := utils.HashPassword(req.Password); err == nil {
			if err := a.db.Model(&user).Update("password_hash", hash).Error; err != nil && utils.Sugar != nil {
				utils.Sugar.Warnf("credential migration failed for user %s: %v", user.ID, err)
			}
		}
	}

	if err := a.sessions.Set(ctx, claimsFor(user)); err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.OK(ctx, http.StatusOK, userView(user))
}

// Logout clears the session cookie and revokes the token until it would have
// expired on its own. Safe to call without a session.
func (a *AuthController) Logout(ctx *gin.Context) {
	if claims, token, ok := a.sessions.Get(ctx); ok && claims.ExpiresAt != nil {
		utils.BlacklistToken(token, claims.ExpiresAt.Time)
	}
	a.sessions.Clear(ctx)
	utils.OK(ctx, http.StatusOK, nil)
}

// Me returns the claims snapshot carried by the session token. By design this
// is issuance-time state; live block/role state is enforced on write paths.
func (a *AuthController) Me(ctx *gin.Context) {
	claims, ok := middleware.CurrentClaims(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, "Not authenticated")
		return
	}
	utils.OK(ctx, http.StatusOK, sessionView(claims))
}
