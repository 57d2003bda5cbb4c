package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	postListCachePrefix   = "cache:posts:list:"
	postDetailCachePrefix = "cache:post:detail:"
)

// PostController manages CRUD for posts and their comments.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// parsePage reads skip/limit query values with defaults 0/10.
func parsePage(skipStr, limitStr string) (int, int) {
	skip, limit := 0, defaultPageLimit
	if v := strings.TrimSpace(skipStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := strings.TrimSpace(limitStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxPageLimit {
			limit = n
		}
	}
	return skip, limit
}

// ListPosts returns a page of posts ranked by comment count, newest first as
// tiebreak. Public, cached.
func (p *PostController) ListPosts(ctx *gin.Context) {
	skip, limit := parsePage(ctx.Query("skip"), ctx.Query("limit"))

	cacheKey := fmt.Sprintf("%sskip=%d:limit=%d", postListCachePrefix, skip, limit)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var posts []models.Post
	err := p.db.Model(&models.Post{}).
		Select("posts.*").
		Joins("LEFT JOIN comments ON comments.post_id = posts.id").
		Group("posts.id").
		Order("COUNT(comments.id) DESC, posts.created_at DESC").
		Offset(skip).Limit(limit).
		Preload("Author").
		Find(&posts).Error
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot fetch posts")
		return
	}

	counts, err := p.commentCounts(posts)
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot fetch posts")
		return
	}

	views := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		views = append(views, postView(post, counts[post.ID]))
	}

	utils.CacheSetJSON(cacheKey, utils.Envelope{OK: true, Data: views}, time.Hour)
	utils.OK(ctx, http.StatusOK, views)
}

func (p *PostController) commentCounts(posts []models.Post) (map[string]int64, error) {
	counts := map[string]int64{}
	if len(posts) == 0 {
		return counts, nil
	}
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}

	var rows []struct {
		PostID string
		N      int64
	}
	err := p.db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.PostID] = r.N
	}
	return counts, nil
}

// GetPost returns a single post with its comments in creation order. Public,
// cached.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	if b, ok := utils.CacheGetBytes(postDetailCachePrefix + postID); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var post models.Post
	if err := p.db.Preload("Author").First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ?", post.ID).Order("created_at ASC").Preload("Author").Find(&comments).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load comments")
		return
	}

	view := postDetailView(post, comments)
	utils.CacheSetJSON(postDetailCachePrefix+postID, utils.Envelope{OK: true, Data: view}, time.Hour)
	utils.OK(ctx, http.StatusOK, view)
}

// CreatePost creates a post authored by the session user. The author is taken
// from the session, never from the payload.
func (p *PostController) CreatePost(ctx *gin.Context) {
	user, ok := requireWriter(ctx, p.db)
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing fields")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	content := utils.Sanitize(req.Content)
	if title == "" || content == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing fields")
		return
	}

	post := models.Post{
		AuthorID: user.ID,
		Title:    title,
		Content:  content,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot create post")
		return
	}
	post.Author = *user

	utils.InvalidateByPrefix(postListCachePrefix)

	utils.OK(ctx, http.StatusCreated, postView(post, 0))
}

// UpdatePost lets the author or an admin change title and content. The author
// field is immutable after creation.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	user, ok := requireWriter(ctx, p.db)
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing fields")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	content := utils.Sanitize(req.Content)
	if title == "" || content == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing fields")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.Preload("Author").First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	if post.AuthorID != user.ID && !user.IsAdmin() {
		utils.Fail(ctx, http.StatusForbidden, "You can only update your own posts")
		return
	}

	post.Title = title
	post.Content = content
	if err := p.db.Save(&post).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot update post")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix + postID)

	counts, err := p.commentCounts([]models.Post{post})
	if err != nil {
		counts = map[string]int64{}
	}
	utils.OK(ctx, http.StatusOK, postView(post, counts[post.ID]))
}

// DeletePost removes a post and its comments; author or admin only.
func (p *PostController) DeletePost(ctx *gin.Context) {
	user, ok := requireWriter(ctx, p.db)
	if !ok {
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	if post.AuthorID != user.ID && !user.IsAdmin() {
		utils.Fail(ctx, http.StatusForbidden, "You can only delete your own posts")
		return
	}

	if err := deletePostTree(p.db, post.ID); err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot delete post")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix + postID)

	utils.OK(ctx, http.StatusOK, nil)
}

// deletePostTree removes a post together with its comments, mirroring the
// single-document delete the embedded layout would give us.
func deletePostTree(db *gorm.DB, postID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", postID).Error
	})
}

// CreateComment appends a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	user, ok := requireWriter(ctx, p.db)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing fields")
		return
	}
	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing fields")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		Content:  content,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot create comment")
		return
	}
	comment.Author = *user

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix + postID)

	utils.OK(ctx, http.StatusOK, commentView(comment))
}

// DeleteComment removes a comment from a post by its id; comment owner or
// admin only. A comment id that does not exist on the post is a successful
// no-op, while a missing post is Not Found.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	user, ok := requireWriter(ctx, p.db)
	if !ok {
		return
	}

	var req struct {
		CommentID string `json:"commentId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CommentID) == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Missing comment id")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Post not found")
			return
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}

	var comment models.Comment
	err := p.db.Where("id = ? AND post_id = ?", req.CommentID, post.ID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Pulling an absent comment succeeds without changing anything.
		utils.OK(ctx, http.StatusOK, nil)
		return
	}
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load comment")
		return
	}

	if comment.AuthorID != user.ID && !user.IsAdmin() {
		utils.Fail(ctx, http.StatusForbidden, "You can only delete your own comments")
		return
	}

	if err := p.db.Delete(&comment).Error; err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "Cannot delete comment")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix + postID)

	utils.OK(ctx, http.StatusOK, nil)
}
