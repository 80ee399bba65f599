package main

import (
	"context"
	"log"

	"github.com/VladKovDev/qpay-gateway/internal/app"
	"github.com/gin-gonic/gin"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("qpay gateway stopped: %v", err)
	}
}
