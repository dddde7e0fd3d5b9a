// Package httpserver exposes the inbound chunk API: session lifecycle over
// REST and frame delivery over JSON or a websocket stream.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/session"
)

// Server bundles the router and its dependencies.
type Server struct {
	echo *echo.Echo
	mgr  *session.Manager
}

// New creates a configured server instance.
func New(mgr *session.Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, mgr: mgr}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	v1 := e.Group("/v1")
	v1.POST("/sessions", s.createSession)
	v1.GET("/sessions/:id", s.getSession)
	v1.DELETE("/sessions/:id", s.deleteSession)
	v1.POST("/sessions/:id/chunks", s.postChunk)
	v1.GET("/sessions/:id/stream", s.streamChunks)

	return s
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler { return s.echo }

func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrOutOfOrder):
		return http.StatusConflict
	case errors.Is(err, session.ErrResolver):
		// retryable: the caller decides whether to resubmit the utterance
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
