package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the API routes and serves the built site from destination.
func NewRouter(pages *PageHandler, ws *WSHandler, destination string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/pages", pages.GetPages)
		api.GET("/tree", pages.GetTree)
		api.GET("/render/*path", pages.GetPage)
		api.GET("/ws", ws.HandleWS)
	}

	r.NoRoute(gin.WrapH(http.FileServer(http.Dir(destination))))
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
