package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

const defaultFlightsReportLimit = 50

type ReportHandler struct {
	reports controllers.ReportController
	now     func() time.Time
}

func NewReportHandler(reports controllers.ReportController) *ReportHandler {
	return &ReportHandler{reports: reports, now: time.Now}
}

// parseIDs reads a comma-separated id list such as "1,2,3".
func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.ErrInvalidInput.WithReason(fmt.Sprintf("invalid id %q", part))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.ErrInvalidInput.WithReason("id must be a number"))
		return 0, false
	}
	return id, true
}

func (h *ReportHandler) Flights(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.Error(err)
		return
	}
	limit := defaultFlightsReportLimit
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			c.Error(errors.ErrInvalidInput.WithReason("limit must be a number"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": h.reports.FlightsReport(c.Request.Context(), limit, ids)})
}

// FlightFigures returns revenue and occupancy for the flights in ?ids=.
func (h *ReportHandler) FlightFigures(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.Error(err)
		return
	}
	figures := h.reports.RevenueOccupancyForFlights(c.Request.Context(), ids)
	out := make([]v1alpha1.FlightFigures, 0, len(figures))
	for _, id := range ids {
		if f, ok := figures[id]; ok {
			out = append(out, f)
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *ReportHandler) Flight(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, v1alpha1.FlightFigures{
		FlightID:  id,
		Revenue:   h.reports.FlightRevenue(ctx, id),
		Occupancy: h.reports.FlightOccupancy(ctx, id),
	})
}

func (h *ReportHandler) Airports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.reports.AirportsRevenueReport(c.Request.Context())})
}

func (h *ReportHandler) AuditOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.reports.AuditOperationsReport(c.Request.Context())})
}

// UserPayments sums a user's payments between ?from= and ?to=, which default
// to the last thirty days.
func (h *ReportHandler) UserPayments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	to := h.now()
	from := to.AddDate(0, 0, -30)
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := schema.ParseTimestamp(raw)
		if err != nil {
			c.Error(errors.ErrInvalidInput.WithReason(p.name + " must be a date or timestamp"))
			return
		}
		*p.dst = t
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": id,
		"from":    from,
		"to":      to,
		"total":   h.reports.UserPaymentsInPeriod(c.Request.Context(), id, from, to),
	})
}

func (h *ReportHandler) Statistics(c *gin.Context) {
	stats, err := h.reports.Statistics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportCSV downloads the statistics as a spreadsheet-friendly CSV.
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	stats, err := h.reports.Statistics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	var buf bytes.Buffer
	if err := h.reports.WriteStatisticsCSV(&buf, stats); err != nil {
		c.Error(errors.ErrInternal.WithReason("could not write the report"))
		return
	}
	filename := fmt.Sprintf("statistics_%s.csv", h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
