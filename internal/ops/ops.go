// Package ops serves the operational HTTP surface: venue connection states
// and the latest published summary.
package ops

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/BullionBear/aggbook/internal/bus"
	"github.com/BullionBear/aggbook/internal/exchange"
	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/logger"
)

// Holder keeps the most recent summary for request-time reads. It is fed
// by its own bus subscriber, so HTTP handlers can never back-pressure the
// pipeline.
type Holder struct {
	latest atomic.Pointer[book.Summary]
}

// Watch consumes the bus until it closes, retaining only the newest
// summary. Lag is irrelevant here, latest wins by construction.
func (h *Holder) Watch(ctx context.Context, subscriber *bus.Subscriber) {
	for {
		summary, err := subscriber.Recv(ctx)
		if err != nil {
			var lagged *bus.LaggedError
			if errors.As(err, &lagged) {
				continue
			}
			return
		}
		h.latest.Store(&summary)
	}
}

// Latest returns the most recent summary, or nil before the first one.
func (h *Holder) Latest() *book.Summary {
	return h.latest.Load()
}

// Server is the gin engine plus its data sources.
type Server struct {
	engine  *gin.Engine
	holder  *Holder
	runners map[book.Exchange]*exchange.Runner
}

func NewServer(holder *Holder, runners map[book.Exchange]*exchange.Runner) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:  gin.New(),
		holder:  holder,
		runners: runners,
	}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/book", s.book)
	return s
}

// Run serves until the listener fails. Intended to run in its own
// goroutine next to the gRPC server.
func (s *Server) Run(address string) {
	if err := s.engine.Run(address); err != nil {
		logger.Log.Error().Err(err).Msg("ops server stopped")
	}
}

func (s *Server) healthz(c *gin.Context) {
	venues := make(map[string]string, len(s.runners))
	healthy := true
	for ex, runner := range s.runners {
		state := runner.State()
		venues[ex.String()] = string(state)
		if state != exchange.StateStreaming {
			healthy = false
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"venues": venues})
}

func (s *Server) book(c *gin.Context) {
	latest := s.holder.Latest()
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary published yet"})
		return
	}
	c.JSON(http.StatusOK, latest)
}
