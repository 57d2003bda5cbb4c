package main

import (
	"github.com/mittell/blogpost/config"
	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/routes"
	"github.com/mittell/blogpost/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	if cfg.JWTSecret == config.DefaultJWTSecret {
		utils.Sugar.Warn("JWT_SECRET not set, using the built-in fallback; set a real secret in production")
	}

	db, err := config.OpenDatabase(cfg, &models.User{}, &models.Post{}, &models.Comment{})
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	r := routes.SetupRouter(cfg, db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
