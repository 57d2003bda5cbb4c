package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mittell/blogpost/config"
	"github.com/mittell/blogpost/middleware"
	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	sessions *utils.SessionManager
}

// newTestEnv builds a full handler stack against an in-memory database and a
// fresh miniredis, wired the same way the real router is.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if utils.Logger == nil {
		if err := utils.InitLogger(config.AppConfig{LogLevel: "error"}); err != nil {
			t.Fatalf("init logger: %v", err)
		}
	}

	mr := miniredis.RunT(t)
	utils.SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { utils.SetRedis(nil) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessions := utils.NewSessionManager("test-secret", false)

	authController := NewAuthController(db, sessions)
	postController := NewPostController(db)
	adminController := NewAdminController(db)

	r := gin.New()

	authGroup := r.Group("/auth")
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/me", middleware.SessionRequired(sessions), authController.Me)

	r.GET("/posts", postController.ListPosts)
	r.GET("/posts/:id", postController.GetPost)

	postsAuthed := r.Group("/posts", middleware.SessionRequired(sessions))
	postsAuthed.POST("", postController.CreatePost)
	postsAuthed.PATCH("/:id", postController.UpdatePost)
	postsAuthed.DELETE("/:id", postController.DeletePost)
	postsAuthed.POST("/:id/comments", postController.CreateComment)
	postsAuthed.DELETE("/:id/comments", postController.DeleteComment)

	adminGroup := r.Group("/admin", middleware.SessionRequired(sessions), middleware.AdminRequired(db))
	adminGroup.GET("/users", adminController.ListUsers)
	adminGroup.POST("/users", adminController.CreateUser)
	adminGroup.PATCH("/users/:id", adminController.UpdateUser)
	adminGroup.DELETE("/users/:id", adminController.DeleteUser)
	adminGroup.GET("/posts", adminController.ListPosts)
	adminGroup.DELETE("/posts/:id", adminController.DeletePost)
	adminGroup.GET("/comments", adminController.ListComments)
	adminGroup.DELETE("/comments/:id", adminController.DeleteComment)

	return &testEnv{router: r, db: db, sessions: sessions}
}

// do runs a request through the router. A nil body sends no payload; cookies
// are attached when given.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if env.Data == nil {
		t.Fatalf("envelope has no data (body: %s)", w.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v (data: %s)", err, string(env.Data))
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// signup registers a user through the handler and returns the session cookie.
func (e *testEnv) signup(t *testing.T, email, username, password string) *http.Cookie {
	t.Helper()
	w := e.do(t, "POST", "/auth/signup", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup %s: status %d (body: %s)", email, w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w := e.do(t, "POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d (body: %s)", email, w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

// createAdmin seeds an admin account directly and logs it in.
func (e *testEnv) createAdmin(t *testing.T, email, username, password string) *http.Cookie {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Email: email, Username: username, PasswordHash: hash, Role: models.RoleAdmin}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return e.login(t, email, password)
}

func (e *testEnv) userByEmail(t *testing.T, email string) models.User {
	t.Helper()
	var user models.User
	if err := e.db.First(&user, "email = ?", email).Error; err != nil {
		t.Fatalf("load user %s: %v", email, err)
	}
	return user
}

// createPost makes a post through the handler and returns its id.
func (e *testEnv) createPost(t *testing.T, cookie *http.Cookie, title, content string) string {
	t.Helper()
	w := e.do(t, "POST", "/posts", map[string]string{"title": title, "content": content}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create post: status %d (body: %s)", w.Code, w.Body.String())
	}
	var data struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &data)
	return data.ID
}

// createComment adds a comment through the handler and returns its id.
func (e *testEnv) createComment(t *testing.T, cookie *http.Cookie, postID, content string) string {
	t.Helper()
	w := e.do(t, "POST", "/posts/"+postID+"/comments", map[string]string{"content": content}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("create comment: status %d (body: %s)", w.Code, w.Body.String())
	}
	var data struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &data)
	return data.ID
}
