package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"salesbot/internal/domain"
	"salesbot/internal/query"
	"salesbot/internal/scheduler"
)

const (
	defaultSnapshotDays = 30
	maxSnapshotDays     = 366
	defaultAnomalyLimit = 20
	maxAnomalyLimit     = 500
	dateLayout          = "2006-01-02"
)

const loadFailed = "failed to load data"

// DailyTotalResponse is one chart bar.
type DailyTotalResponse struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

// TotalResponse is the JSON response for /api/totals.
type TotalResponse struct {
	Period  string `json:"period"`
	GroupID *int64 `json:"group_id,omitempty"`
	Total   int64  `json:"total"`
}

// ChartResponse is the JSON response for /api/chart.
type ChartResponse struct {
	GroupID *int64               `json:"group_id,omitempty"`
	Days    []DailyTotalResponse `json:"days"`
}

// ForecastResponse is the JSON response for /api/forecast.
type ForecastResponse struct {
	PredictedNext  int64   `json:"predicted_next"`
	Confidence     string  `json:"confidence"`
	BasedOn        string  `json:"based_on"`
	MovingAverage7 float64 `json:"moving_average_7"`
	Trend          float64 `json:"trend"`
	Volatility     float64 `json:"volatility"`
}

// SnapshotResponse is one entry of /api/snapshots.
type SnapshotResponse struct {
	Date           string    `json:"date"`
	Total          int64     `json:"total"`
	MovingAverage7 float64   `json:"moving_average_7"`
	Trend          float64   `json:"trend"`
	Volatility     float64   `json:"volatility"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AnomalyResponse is one entry of /api/anomalies.
type AnomalyResponse struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Value      int64     `json:"value"`
	Threshold  float64   `json:"threshold"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Text string `json:"text" binding:"required"`
}

// CommandResponse is the reply to POST /api/command.
type CommandResponse struct {
	Reply string `json:"reply"`
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status          string           `json:"status"`
	Uptime          string           `json:"uptime"`
	Groups          []int64          `json:"groups"`
	LiveSubscribers int              `json:"live_subscribers"`
	Scheduler       *scheduler.Stats `json:"scheduler,omitempty"`
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.logger.Printf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": loadFailed})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// groupParam parses the optional group query parameter.
func groupParam(c *gin.Context) (*int64, error) {
	raw := strings.TrimSpace(c.Query("group"))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid group %q", raw)
	}
	return &id, nil
}

// intParam parses an optional positive integer parameter capped at max.
func intParam(c *gin.Context, name string, def, max int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	if n > max {
		n = max
	}
	return n, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Status: "running",
		Uptime: s.now().Sub(s.started).Truncate(time.Second).String(),
		Groups: []int64{},
	}
	if s.hub != nil {
		resp.LiveSubscribers = s.hub.Len()
	}
	if s.status != nil {
		st := s.status.Stats()
		resp.Groups = s.status.Groups()
		resp.Scheduler = &st
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWS(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request)
}

func (s *Server) handleTotals(c *gin.Context) {
	period, err := domain.ParsePeriod(c.DefaultQuery("period", string(domain.PeriodToday)))
	if err != nil {
		badRequest(c, "invalid period")
		return
	}
	group, err := groupParam(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	total, err := s.queries.Total(c.Request.Context(), period, group)
	if err != nil {
		s.fail(c, "totals", err)
		return
	}
	c.JSON(http.StatusOK, TotalResponse{Period: string(period), GroupID: group, Total: total})
}

func (s *Server) handleChart(c *gin.Context) {
	group, err := groupParam(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	days, err := s.queries.Chart(c.Request.Context(), group)
	if err != nil {
		s.fail(c, "chart", err)
		return
	}

	resp := ChartResponse{GroupID: group, Days: make([]DailyTotalResponse, len(days))}
	for i, d := range days {
		resp.Days[i] = DailyTotalResponse{Date: d.Date.Format(dateLayout), Total: d.Total}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleForecast(c *gin.Context) {
	f, err := s.queries.Forecast(c.Request.Context())
	if err != nil {
		if errors.Is(err, query.ErrNoForecast) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not enough data for a forecast yet"})
			return
		}
		s.fail(c, "forecast", err)
		return
	}
	c.JSON(http.StatusOK, forecastResponse(f))
}

func forecastResponse(f domain.Forecast) ForecastResponse {
	return ForecastResponse{
		PredictedNext:  f.PredictedNext,
		Confidence:     f.Confidence.String(),
		BasedOn:        f.BasedOn.Format(dateLayout),
		MovingAverage7: f.MovingAverage7,
		Trend:          f.Trend,
		Volatility:     f.Volatility,
	}
}

func (s *Server) handleSnapshots(c *gin.Context) {
	days, err := intParam(c, "days", defaultSnapshotDays, maxSnapshotDays)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	snaps, err := s.queries.Snapshots(c.Request.Context(), days)
	if err != nil {
		s.fail(c, "snapshots", err)
		return
	}

	resp := make([]SnapshotResponse, len(snaps))
	for i, snap := range snaps {
		resp[i] = SnapshotResponse{
			Date:           snap.Date.Format(dateLayout),
			Total:          snap.Total,
			MovingAverage7: snap.MovingAverage7,
			Trend:          snap.Trend,
			Volatility:     snap.Volatility,
			UpdatedAt:      snap.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnomalies(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultAnomalyLimit, maxAnomalyLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	anomalies, err := s.queries.Anomalies(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, "anomalies", err)
		return
	}

	resp := make([]AnomalyResponse, len(anomalies))
	for i, a := range anomalies {
		resp[i] = AnomalyResponse{
			ID:         a.ID,
			Date:       a.Date.Format(dateLayout),
			Value:      a.Value,
			Threshold:  a.Threshold,
			Reason:     a.Reason,
			DetectedAt: a.DetectedAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}
	c.JSON(http.StatusOK, CommandResponse{Reply: s.commands.Handle(c.Request.Context(), req.Text)})
}
