package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mittell/blogpost/middleware"
	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

// userView serializes a user for API responses. The password hash never
// appears here.
func userView(u models.User) gin.H {
	return gin.H{
		"userId":    u.ID,
		"email":     u.Email,
		"username":  u.Username,
		"role":      u.Role,
		"blocked":   u.Blocked,
		"createdAt": u.CreatedAt,
	}
}

// sessionView serializes the claims snapshot carried by the session token.
func sessionView(c *utils.Claims) gin.H {
	return gin.H{
		"userId":   c.UserID,
		"email":    c.Email,
		"username": c.Username,
		"role":     c.Role,
		"blocked":  c.Blocked,
	}
}

// commentView serializes a comment; the display author comes from the
// preloaded association so renames are reflected immediately.
func commentView(c models.Comment) gin.H {
	return gin.H{
		"id":        c.ID,
		"postId":    c.PostID,
		"author":    c.Author.Username,
		"authorId":  c.AuthorID,
		"content":   c.Content,
		"createdAt": c.CreatedAt,
	}
}

func postView(p models.Post, commentCount int64) gin.H {
	return gin.H{
		"id":           p.ID,
		"title":        p.Title,
		"content":      p.Content,
		"author":       p.Author.Username,
		"authorId":     p.AuthorID,
		"createdAt":    p.CreatedAt,
		"updatedAt":    p.UpdatedAt,
		"commentCount": commentCount,
	}
}

func postDetailView(p models.Post, comments []models.Comment) gin.H {
	views := make([]gin.H, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView(c))
	}
	v := postView(p, int64(len(comments)))
	v["comments"] = views
	return v
}

// requireWriter loads the acting user from storage for a write operation.
// The live record is authoritative: a deleted user reads as unauthenticated,
// a blocked user is forbidden from writing regardless of what the token
// claims say. Writes the error response itself and returns ok=false.
func requireWriter(ctx *gin.Context, db *gorm.DB) (*models.User, bool) {
	claims, ok := middleware.CurrentClaims(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	var user models.User
	if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusUnauthorized, "Authentication required")
		} else {
			utils.Fail(ctx, http.StatusInternalServerError, "Failed to load user")
		}
		return nil, false
	}

	if user.Blocked {
		utils.Fail(ctx, http.StatusForbidden, "Account is blocked")
		return nil, false
	}

	return &user, true
}
