package main

import (
	"github.com/gin-gonic/gin"

	"github.com/ShaanSolanki/lms/internal/app"
	"github.com/ShaanSolanki/lms/internal/config"
)

func main() {
	gin.SetMode(gin.ReleaseMode)
	cfg := config.MustLoad()
	app.Run(cfg)
}
