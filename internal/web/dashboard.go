package web

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesbot/internal/domain"
	"salesbot/internal/query"
	"salesbot/internal/reporting"
)

var templateFuncs = template.FuncMap{
	"amount": reporting.FormatAmount,
	"pct":    reporting.FormatRatio,
}

type periodTotal struct {
	Label string
	Total int64
}

type chartBar struct {
	Date  string
	Total int64
	Width int // percent of the largest day
}

type dashboardData struct {
	GeneratedAt string
	Location    string
	Totals      []periodTotal
	Chart       []chartBar
	Forecast    *ForecastResponse
	Anomalies   []AnomalyResponse
}

func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	data := dashboardData{
		GeneratedAt: s.now().In(s.queries.Location()).Format("2006-01-02 15:04 MST"),
		Location:    s.queries.Location().String(),
	}

	for _, p := range []domain.Period{domain.PeriodToday, domain.PeriodWeek, domain.PeriodMonth} {
		total, err := s.queries.Total(ctx, p, nil)
		if err != nil {
			s.fail(c, "dashboard totals", err)
			return
		}
		data.Totals = append(data.Totals, periodTotal{Label: string(p), Total: total})
	}

	days, err := s.queries.Chart(ctx, nil)
	if err != nil {
		s.fail(c, "dashboard chart", err)
		return
	}
	data.Chart = chartBars(days)

	f, err := s.queries.Forecast(ctx)
	switch {
	case err == nil:
		resp := forecastResponse(f)
		data.Forecast = &resp
	case !errors.Is(err, query.ErrNoForecast):
		s.fail(c, "dashboard forecast", err)
		return
	}

	anomalies, err := s.queries.Anomalies(ctx, 5)
	if err != nil {
		s.fail(c, "dashboard anomalies", err)
		return
	}
	for _, a := range anomalies {
		data.Anomalies = append(data.Anomalies, AnomalyResponse{
			ID:        a.ID,
			Date:      a.Date.Format(dateLayout),
			Value:     a.Value,
			Threshold: a.Threshold,
			Reason:    a.Reason,
		})
	}

	c.HTML(http.StatusOK, "dashboard.html", data)
}

func chartBars(days []domain.DailyTotal) []chartBar {
	var peak int64
	for _, d := range days {
		if d.Total > peak {
			peak = d.Total
		}
	}

	bars := make([]chartBar, len(days))
	for i, d := range days {
		bars[i] = chartBar{Date: d.Date.Format(dateLayout), Total: d.Total}
		if peak > 0 {
			bars[i].Width = int(d.Total * 100 / peak)
		}
	}
	return bars
}
