package router

import (
	"github.com/gin-gonic/gin"

	"dom360.app/sdrbot/internal/http/handler/webhook"
)

func SetupRoutes(router *gin.Engine, chatwootWebhook *webhook.ChatwootWebhookHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/webhooks/chatwoot", chatwootWebhook.HandleEvent)
	}
}
