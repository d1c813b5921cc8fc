// Package admin is the operator-console HTTP surface called out in §1 of
// the spec as an external collaborator consumed through an abstract
// interface, not core. It is entirely additive: leaving its bind address
// empty disables it with no effect on core behavior.
package admin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats is the snapshot shape the core exposes; kept separate from
// irc.Stats so this package has no import-time dependency on irc.
type Stats struct {
	Connections int
	Channels    int
	Uptime      time.Duration
}

// StatsSource is the abstract interface this package talks to the core
// through. irc/ircd satisfies it with an adapter around *irc.Server, whose
// Snapshot routes the request through the server's event-loop channel.
type StatsSource interface {
	Snapshot() Stats
}

// Server is the admin HTTP server: /healthz, /metrics, /stats.
type Server struct {
	echo   *echo.Echo
	source StatsSource
}

// New builds an admin server backed by source, grounded on the teacher's
// own echo-based webportal/admind surfaces.
func New(source StatsSource) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, source: source}

	e.GET("/healthz", s.healthz)
	e.GET("/stats", s.stats)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Serve runs the admin HTTP server on addr until the process exits or the
// listener errors; it never touches the IRC core's registries directly.
func (s *Server) Serve(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) stats(c echo.Context) error {
	snap := s.source.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"connections": snap.Connections,
		"channels":    snap.Channels,
		"uptime":      snap.Uptime.String(),
	})
}
