package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

const (
	// ContextClaimsKey stores the verified session claims in the Gin context.
	ContextClaimsKey = "session_claims"
	// ContextUserKey stores the live user record loaded by AdminRequired.
	ContextUserKey = "session_user"
)

// SessionRequired ensures the request carries a valid, unrevoked session
// cookie and stashes the claims snapshot in the context.
func SessionRequired(sm *utils.SessionManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, token, ok := sm.Get(ctx)
		if !ok {
			utils.Fail(ctx, http.StatusUnauthorized, "Authentication required")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(token) {
			utils.Fail(ctx, http.StatusUnauthorized, "Session revoked")
			ctx.Abort()
			return
		}

		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// AdminRequired loads the acting user from storage and rejects non-admins.
// The live record is authoritative: an admin demoted or deleted after login
// is rejected even while the token claims still say otherwise.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := CurrentClaims(ctx)
		if !ok {
			utils.Fail(ctx, http.StatusUnauthorized, "Authentication required")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Fail(ctx, http.StatusUnauthorized, "Authentication required")
			} else {
				utils.Fail(ctx, http.StatusInternalServerError, "Failed to load user")
			}
			ctx.Abort()
			return
		}

		if !user.IsAdmin() {
			utils.Fail(ctx, http.StatusForbidden, "Admin access required")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserKey, &user)
		ctx.Next()
	}
}

// CurrentClaims returns the session claims set by SessionRequired.
func CurrentClaims(ctx *gin.Context) (*utils.Claims, bool) {
	v, exists := ctx.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}

// CurrentUser returns the live user record set by AdminRequired.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, exists := ctx.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
