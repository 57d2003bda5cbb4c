package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mittell/blogpost/middleware"
	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

// AdminController serves the moderation dashboard: user management plus
// list/delete over all posts and comments. Every handler runs behind the
// admin middleware, which loads the acting admin into the context.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates an AdminController.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

// ListUsers returns all users, newest first, without credentials.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	var users []models.User
	if err := a.db.Order("created_at DESC").Find(&users).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot fetch users")
		return
	}

	views := make([]gin.H, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	utils.OK(ctx, http.StatusOK, views)
}

// CreateUser creates an account with an explicit role.
func (a *AdminController) CreateUser(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing required fields")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing required fields")
		return
	}
	if len(req.Password) < minPasswordLength {
		utils.Fail(ctx, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid role")
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).
		Where("email = ? OR username = ?", req.Email, req.Username).
		Count(&count).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot create user")
		return
	}
	if count > 0 {
		utils.Fail(ctx, http.StatusConflict, "Email or username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot create user")
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot create user")
		return
	}

	utils.OK(ctx, http.StatusCreated, userView(user))
}

// UpdateUser edits profile fields, role, blocked state or password. Admins
// cannot block, demote or otherwise lock themselves out.
func (a *AdminController) UpdateUser(ctx *gin.Context) {
	admin, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Email    *string `json:"email"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
		Blocked  *bool   `json:"blocked"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid payload")
		return
	}

	userID := ctx.Param("id")
	if userID == admin.ID {
		if req.Blocked != nil && *req.Blocked {
			utils.Fail(ctx, http.StatusBadRequest, "Cannot block yourself")
			return
		}
		if req.Role != nil && *req.Role != models.RoleAdmin {
			utils.Fail(ctx, http.StatusBadRequest, "Cannot change your own admin role")
			return
		}
	}

	var user models.User
	if err := a.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "User not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load user")
		return
	}

	updates := map[string]interface{}{}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" {
			utils.Fail(ctx, http.StatusBadRequest, "Email cannot be empty")
			return
		}
		updates["email"] = email
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			utils.Fail(ctx, http.StatusBadRequest, "Username cannot be empty")
			return
		}
		updates["username"] = username
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			utils.Fail(ctx, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			utils.Fail(ctx, http.StatusInternalServerError, "Cannot update user")
			return
		}
		updates["password_hash"] = hash
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			utils.Fail(ctx, http.StatusBadRequest, "Invalid role")
			return
		}
		updates["role"] = *req.Role
	}
	if req.Blocked != nil {
		updates["blocked"] = *req.Blocked
	}

	if len(updates) == 0 {
		utils.Fail(ctx, http.StatusBadRequest, "No fields to update")
		return
	}

	if email, ok := updates["email"].(string); ok && email != user.Email {
		var count int64
		if err := a.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, user.ID).
			Count(&count).Error; err != nil || count > 0 {
			utils.Fail(ctx, http.StatusConflict, "Email or username already exists")
			return
		}
	}
	if username, ok := updates["username"].(string); ok && username != user.Username {
		var count int64
		if err := a.db.Model(&models.User{}).
			Where("username = ? AND id <> ?", username, user.ID).
			Count(&count).Error; err != nil || count > 0 {
			utils.Fail(ctx, http.StatusConflict, "Email or username already exists")
			return
		}
	}

	if err := a.db.Model(&user).Updates(updates).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot update user")
		return
	}

	if err := a.db.First(&user, "id = ?", user.ID).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot update user")
		return
	}
	utils.OK(ctx, http.StatusOK, userView(user))
}

// DeleteUser removes an account. Self-deletion is rejected.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	admin, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, "Not authenticated")
		return
	}

	userID := ctx.Param("id")
	if userID == admin.ID {
		utils.Fail(ctx, http.StatusBadRequest, "Cannot delete yourself")
		return
	}

	res := a.db.Delete(&models.User{}, "id = ?", userID)
	if res.Error != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot delete user")
		return
	}
	if res.RowsAffected == 0 {
		utils.Fail(ctx, http.StatusNotFound, "User not found")
		return
	}

	utils.OK(ctx, http.StatusOK, nil)
}

// ListPosts returns every post, newest first.
func (a *AdminController) ListPosts(ctx *gin.Context) {
	var posts []models.Post
	if err := a.db.Order("created_at DESC").Preload("Author").Find(&posts).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot fetch posts")
		return
	}

	counts := map[string]int64{}
	if len(posts) > 0 {
		var rows []struct {
			PostID string
			N      int64
		}
		if err := a.db.Model(&models.Comment{}).
			Select("post_id, COUNT(*) AS n").
			Group("post_id").
			Scan(&rows).Error; err != nil {
			utils.Fail(ctx, http.StatusInternalServerError, "Cannot fetch posts")
			return
		}
		for _, r := range rows {
			counts[r.PostID] = r.N
		}
	}

	views := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		views = append(views, postView(post, counts[post.ID]))
	}
	utils.OK(ctx, http.StatusOK, views)
}

// DeletePost removes any post and its comments.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	if err := a.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	if err := deletePostTree(a.db, post.ID); err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot delete post")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix + postID)

	utils.OK(ctx, http.StatusOK, nil)
}

// adminCommentRow is the flattened comment projection for the dashboard.
type adminCommentRow struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	PostTitle string    `json:"postTitle"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListComments returns every comment across all posts, newest first, each
// carrying its post id and title.
func (a *AdminController) ListComments(ctx *gin.Context) {
	var rows []struct {
		ID        string
		PostID    string
		Content   string
		CreatedAt time.Time
		PostTitle string
		Username  string
	}
	err := a.db.Model(&models.Comment{}).
		Select("comments.id, comments.post_id, comments.content, comments.created_at, posts.title AS post_title, users.username AS username").
		Joins("LEFT JOIN posts ON posts.id = comments.post_id").
		Joins("LEFT JOIN users ON users.id = comments.author_id").
		Order("comments.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot fetch comments")
		return
	}

	views := make([]adminCommentRow, 0, len(rows))
	for _, r := range rows {
		views = append(views, adminCommentRow{
			ID:        r.ID,
			PostID:    r.PostID,
			PostTitle: r.PostTitle,
			Author:    r.Username,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	utils.OK(ctx, http.StatusOK, views)
}

// DeleteComment removes any comment given its id and the post it belongs to.
// Absent comment on an existing post is a successful no-op.
func (a *AdminController) DeleteComment(ctx *gin.Context) {
	var req struct {
		PostID string `json:"postId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PostID) == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing post id")
		return
	}

	var post models.Post
	if err := a.db.First(&post, "id = ?", req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	commentID := ctx.Param("id")
	if err := a.db.Where("id = ? AND post_id = ?", commentID, post.ID).
		Delete(&models.Comment{}).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot delete comment")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix + req.PostID)

	utils.OK(ctx, http.StatusOK, nil)
}
