// Package web serves the dashboard, the JSON query API, the command endpoint,
// the websocket live feed and the health/status/metrics endpoints.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"salesbot/internal/domain"
	"salesbot/internal/observability"
	"salesbot/internal/scheduler"
)

//go:embed templates/*.html
var templateFS embed.FS

// Queries is the read surface the handlers use.
type Queries interface {
	Location() *time.Location
	Total(ctx context.Context, period domain.Period, groupID *int64) (int64, error)
	Chart(ctx context.Context, groupID *int64) ([]domain.DailyTotal, error)
	Forecast(ctx context.Context) (domain.Forecast, error)
	Snapshots(ctx context.Context, days int) ([]*domain.DailySnapshot, error)
	Anomalies(ctx context.Context, limit int) ([]*domain.Anomaly, error)
}

// CommandHandler answers chat commands.
type CommandHandler interface {
	Handle(ctx context.Context, text string) string
}

// StatusProvider reports scheduler counters.
type StatusProvider interface {
	Stats() scheduler.Stats
	Groups() []int64
}

// Options configures the Server.
type Options struct {
	Queries   Queries
	Commands  CommandHandler
	Status    StatusProvider // Optional
	Hub       *Hub           // Optional; /ws is not routed without it
	Logger    *log.Logger
	LogWriter io.Writer // gin request log. Default: os.Stdout
	Clock     func() time.Time
}

// Server is the HTTP surface.
type Server struct {
	queries  Queries
	commands CommandHandler
	status   StatusProvider
	hub      *Hub
	router   *gin.Engine
	logger   *log.Logger
	now      func() time.Time
	started  time.Time
}

// NewServer creates a new Server with all routes registered.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	w := opts.LogWriter
	if w == nil {
		w = os.Stdout
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(w, "/health", "/metrics"), gin.Recovery())

	s := &Server{
		queries:  opts.Queries,
		commands: opts.Commands,
		status:   opts.Status,
		hub:      opts.Hub,
		router:   router,
		logger:   logger,
		now:      now,
		started:  now(),
	}

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.handleDashboard)
	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(observability.Handler()))
	if s.hub != nil {
		router.GET("/ws", s.handleWS)
	}

	api := router.Group("/api")
	{
		api.GET("/totals", s.handleTotals)
		api.GET("/chart", s.handleChart)
		api.GET("/forecast", s.handleForecast)
		api.GET("/snapshots", s.handleSnapshots)
		api.GET("/anomalies", s.handleAnomalies)
		api.POST("/command", s.handleCommand)
	}

	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Println("HTTP server stopped")
	return nil
}
