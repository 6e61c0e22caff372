// Package status serves a read-only JSON view of the processor over
// HTTP. It never mutates pipeline state.
package status

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ytharvest/internal/ledger"
	"ytharvest/internal/processor"
	"ytharvest/internal/version"
)

// Server exposes /health, /stats and /queries.
type Server struct {
	echo *echo.Echo
	proc *processor.Processor
	led  ledger.Ledger
}

// New builds the status server around a running processor and its ledger.
func New(proc *processor.Processor, led ledger.Ledger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{echo: e, proc: proc, led: led}

	e.GET("/health", s.health)
	e.GET("/stats", s.stats)
	e.GET("/queries", s.queries)

	return s
}

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.echo.Close()
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.proc.Stats())
}

func (s *Server) queries(c echo.Context) error {
	entries, err := s.led.Entries(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if status := c.QueryParam("status"); status != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return c.JSON(http.StatusOK, entries)
}
