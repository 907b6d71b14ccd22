package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WSHandler upgrades and serves a realtime connection; the gateway hub
// implements it.
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// NewRouter builds the gin engine with all REST routes plus the
// websocket endpoint.
func NewRouter(s *Server, ws WSHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/indicators", s.ListIndicators)
	r.GET("/indicators/:symbol", s.GetIndicator)
	r.POST("/indicators/batch", s.BatchIndicators)
	r.POST("/indicators/refresh", s.TriggerRefresh)

	if ws != nil {
		r.GET("/ws", func(c *gin.Context) {
			ws.HandleWS(c.Writer, c.Request)
		})
	}

	return r
}
