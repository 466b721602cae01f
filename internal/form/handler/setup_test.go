package handler

import (
	"testing"
	"time"

	"github.com/formkite/formkite/internal/config"
	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/service"
	"github.com/formkite/formkite/internal/form/testutil"
	"github.com/formkite/formkite/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type testEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	Repos  *repository.Repositories
	Svc    *service.Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	cfg := &config.Config{}
	cfg.JWT.Secret = testutil.JWTSecret
	cfg.JWT.AccessTokenExpire = time.Hour
	cfg.JWT.RefreshTokenExpire = 24 * time.Hour
	cfg.JWT.Issuer = "formkite"

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	t.Cleanup(func() { rdb.Close() })

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg)
	handlers := NewHandlers(services, repos, cfg)
	registerTestRoutes(router, handlers)

	return &testEnv{DB: db, Router: router, Repos: repos, Svc: services}
}

func registerTestRoutes(r *gin.Engine, h *Handlers) {
	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	v1.GET("/invite/:code", h.Invite.Resolve)

	authorized := v1.Group("", middleware.JWTAuth(testutil.JWTSecret))
	authorized.GET("/auth/me", h.Auth.Me)
	authorized.POST("/invite/:code/accept", h.Invite.Accept)

	forms := authorized.Group("/forms")
	forms.GET("", h.Form.List)
	forms.GET("/:templateId", h.Form.Get)
	forms.PUT("/:templateId/draft", h.Form.SaveDraft)
	forms.POST("/:templateId/submit", h.Form.Submit)

	admin := authorized.Group("/admin", middleware.RequireRole(entity.RoleAdmin))
	admin.GET("/invite", h.Invite.MyCode)
	admin.GET("/submissions", h.Review.List)
	admin.GET("/submissions/:id", h.Review.Get)
	admin.GET("/submissions/:id/notes", h.Review.ListNotes)
	admin.POST("/submissions/:id/notes", h.Review.AddNote)

	super := authorized.Group("", middleware.RequireRole(entity.RoleSuperAdmin))
	templates := super.Group("/templates")
	templates.GET("", h.Template.List)
	templates.POST("", h.Template.Create)
	templates.GET("/:id", h.Template.Get)
	templates.PUT("/:id", h.Template.Update)
	templates.DELETE("/:id", h.Template.Delete)
	templates.POST("/:id/duplicate", h.Template.Duplicate)
	templates.POST("/:id/fields", h.Template.AddField)
	templates.PUT("/:id/fields/:fieldId", h.Template.UpdateField)
	templates.DELETE("/:id/fields/:fieldId", h.Template.RemoveField)
	templates.POST("/:id/fields/:fieldId/move", h.Template.MoveField)
	templates.POST("/:id/fields/:fieldId/options", h.Template.AddOption)
	templates.DELETE("/:id/fields/:fieldId/options/:value", h.Template.RemoveOption)

	super.GET("/admin/assignments", h.Assignment.List)
	super.POST("/admin/assignments", h.Assignment.Create)
	super.DELETE("/admin/assignments/:id", h.Assignment.Delete)
	super.GET("/admin/users", h.Assignment.ListUsers)
	super.PUT("/admin/users/:id/role", h.Assignment.SetRole)
}

// basicFields 一份常用的测试模板字段
func basicFields() entity.FieldList {
	return entity.FieldList{
		{ID: "fld_name", Label: "Name", Type: entity.FieldText, Required: true},
		{ID: "fld_age", Label: "Age", Type: entity.FieldNumber},
		{ID: "fld_salary", Label: "Salary", Type: entity.FieldNumber, Sensitive: true},
		{ID: "fld_level", Label: "Level", Type: entity.FieldDropdown, Options: []entity.FieldOption{
			{Label: "Junior", Value: "junior"},
			{Label: "Senior", Value: "senior"},
		}},
	}
}
