// Package api exposes the indicator store over REST. All bodies use the
// {success, data, error, timestamp} envelope.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"screener-systemv1/internal/scheduler"
	"screener-systemv1/internal/store"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 100

// Server holds the REST handlers' dependencies.
type Server struct {
	store *store.Store
	sched *scheduler.Scheduler
	log   *slog.Logger
}

// NewServer creates the REST handler set.
func NewServer(st *store.Store, sched *scheduler.Scheduler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: st, sched: sched, log: log}
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC(),
	})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success":   false,
		"error":     msg,
		"timestamp": time.Now().UTC(),
	})
}

// GetIndicator returns the latest vector for one symbol.
// GET /indicators/:symbol
func (s *Server) GetIndicator(c *gin.Context) {
	symbol := c.Param("symbol")
	v, err := s.store.Get(symbol)
	if err != nil {
		if errors.Is(err, store.ErrSymbolNotFound) {
			respondError(c, http.StatusNotFound, "Indicators not found for symbol")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}
	respond(c, http.StatusOK, v)
}

// BatchIndicators returns vectors for the requested symbols. Symbols
// without a vector are silently dropped, not an error.
// POST /indicators/batch
func (s *Server) BatchIndicators(c *gin.Context) {
	var body struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Symbols == nil {
		respondError(c, http.StatusBadRequest, "symbols must be an array of strings")
		return
	}
	respond(c, http.StatusOK, s.store.GetMany(body.Symbols))
}

// TriggerRefresh enqueues an asynchronous refresh of every tracked
// symbol and acknowledges immediately.
// POST /indicators/refresh
func (s *Server) TriggerRefresh(c *gin.Context) {
	s.sched.TriggerRefresh()
	respond(c, http.StatusAccepted, gin.H{"status": "refresh scheduled"})
}

// ListIndicators returns a bounded snapshot of the cache.
// GET /indicators?limit=N
func (s *Server) ListIndicators(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > store.MaxSnapshot {
		limit = store.MaxSnapshot
	}
	respond(c, http.StatusOK, s.store.GetAll(limit))
}
