package controllers

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/metrics"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// Section headers of the statistics CSV.
const (
	CSVTicketSection  = "Ticket status statistics"
	CSVRevenueSection = "Revenue by month"
)

const utf8BOM = "\ufeff"

var ticketStatusLabels = map[string]string{
	"AVAILABLE":  "Available",
	"BOOKED":     "Booked",
	"PAID":       "Paid",
	"CHECKED_IN": "Checked in",
	"CANCELLED":  "Cancelled",
}

// ReportController reads the database-side revenue and occupancy routines and
// reporting views. Those reads degrade to zero or an empty result on any
// failure; callers treat empty as "no data or unavailable".
type ReportController interface {
	FlightRevenue(ctx context.Context, flightID int64) decimal.Decimal
	FlightOccupancy(ctx context.Context, flightID int64) decimal.Decimal
	UserPaymentsInPeriod(ctx context.Context, userID int64, from, to time.Time) decimal.Decimal

	// FlightsReport reads v_flights_report, filtered to flightIDs when given,
	// otherwise capped at limit rows when limit is positive.
	FlightsReport(ctx context.Context, limit int, flightIDs []int64) []map[string]interface{}
	AirportsRevenueReport(ctx context.Context) []map[string]interface{}
	AuditOperationsReport(ctx context.Context) []map[string]interface{}
	RevenueOccupancyForFlights(ctx context.Context, flightIDs []int64) map[int64]v1alpha1.FlightFigures

	// Statistics aggregates ticket statuses and the last twelve months of
	// completed payments.
	Statistics(ctx context.Context) (*v1alpha1.Statistics, error)
	WriteStatisticsCSV(w io.Writer, stats *v1alpha1.Statistics) error
}

type reportController struct {
	store    dynamic.DynamicStore
	dialect  schema.Dialect
	tickets  *schema.EntitySchema
	payments *schema.EntitySchema
	logger   *zap.Logger
	now      func() time.Time
}

func NewReportController(store dynamic.DynamicStore, dialect schema.Dialect, logger *zap.Logger) ReportController {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := schema.Airline()
	return &reportController{
		store:    store,
		dialect:  dialect,
		tickets:  reg.MustLookup(schema.KindTicket),
		payments: reg.MustLookup(schema.KindPayment),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *reportController) degraded(report string, err error) {
	metrics.ReportFailures.WithLabelValues(report).Inc()
	c.logger.Warn("report query failed", zap.String("report", report), zap.Error(err))
}

func (c *reportController) query(ctx context.Context, report, stmt string, args ...interface{}) []map[string]interface{} {
	rows, err := c.store.Query(ctx, stmt, args...)
	if err != nil {
		c.degraded(report, err)
		return []map[string]interface{}{}
	}
	return rows
}

func (c *reportController) scalar(ctx context.Context, report, stmt string, args ...interface{}) decimal.Decimal {
	rows, err := c.store.Query(ctx, stmt, args...)
	if err != nil {
		c.degraded(report, err)
		return decimal.Zero
	}
	if len(rows) == 0 {
		return decimal.Zero
	}
	d, ok := decimalOf(rows[0]["value"])
	if !ok {
		return decimal.Zero
	}
	return d
}

func decimalOf(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (c *reportController) FlightRevenue(ctx context.Context, flightID int64) decimal.Decimal {
	return c.scalar(ctx, "calc_flight_revenue", "SELECT calc_flight_revenue(?) AS value", flightID)
}

func (c *reportController) FlightOccupancy(ctx context.Context, flightID int64) decimal.Decimal {
	return c.scalar(ctx, "calc_flight_occupancy", "SELECT calc_flight_occupancy(?) AS value", flightID)
}

func (c *reportController) UserPaymentsInPeriod(ctx context.Context, userID int64, from, to time.Time) decimal.Decimal {
	return c.scalar(ctx, "calc_user_payments_in_period",
		"SELECT calc_user_payments_in_period(?, ?, ?) AS value", userID, from, to)
}

func (c *reportController) FlightsReport(ctx context.Context, limit int, flightIDs []int64) []map[string]interface{} {
	if len(flightIDs) > 0 {
		return c.query(ctx, "v_flights_report", "SELECT * FROM v_flights_report WHERE id_flight IN ?", flightIDs)
	}
	if limit > 0 {
		return c.query(ctx, "v_flights_report", "SELECT * FROM v_flights_report LIMIT ?", limit)
	}
	return c.query(ctx, "v_flights_report", "SELECT * FROM v_flights_report")
}

func (c *reportController) AirportsRevenueReport(ctx context.Context) []map[string]interface{} {
	return c.query(ctx, "v_airports_revenue_report", "SELECT * FROM v_airports_revenue_report")
}

func (c *reportController) AuditOperationsReport(ctx context.Context) []map[string]interface{} {
	return c.query(ctx, "v_audit_operations_report", "SELECT * FROM v_audit_operations_report")
}

func (c *reportController) RevenueOccupancyForFlights(ctx context.Context, flightIDs []int64) map[int64]v1alpha1.FlightFigures {
	out := make(map[int64]v1alpha1.FlightFigures, len(flightIDs))
	if len(flightIDs) == 0 {
		return out
	}
	rows, err := c.store.Query(ctx,
		"SELECT id_flight, calc_flight_revenue(id_flight) AS revenue, "+
			"calc_flight_occupancy(id_flight) AS occupancy FROM flights WHERE id_flight IN ?",
		flightIDs)
	if err != nil {
		c.degraded("revenue_occupancy", err)
		return out
	}
	for _, row := range rows {
		id, err := cast.ToInt64E(row["id_flight"])
		if err != nil {
			continue
		}
		revenue, _ := decimalOf(row["revenue"])
		occupancy, _ := decimalOf(row["occupancy"])
		out[id] = v1alpha1.FlightFigures{FlightID: id, Revenue: revenue, Occupancy: occupancy}
	}
	return out
}

func (c *reportController) monthExpr() string {
	if c.dialect == schema.DialectPostgres {
		return "date_trunc('month', payment_date)"
	}
	return "strftime('%Y-%m-01', payment_date)"
}

func (c *reportController) Statistics(ctx context.Context) (*v1alpha1.Statistics, error) {
	now := c.now()
	stats := &v1alpha1.Statistics{
		GeneratedAt:    now,
		TicketStatuses: []v1alpha1.StatusCount{},
		MonthlyRevenue: []v1alpha1.MonthRevenue{},
	}

	rows, err := c.store.Query(ctx,
		"SELECT status, COUNT(*) AS count FROM "+c.tickets.Table+" GROUP BY status ORDER BY status")
	if err != nil {
		return nil, c.statisticsError(err)
	}
	for _, row := range rows {
		status := cast.ToString(row["status"])
		label, ok := ticketStatusLabels[status]
		if !ok {
			label = status
		}
		stats.TicketStatuses = append(stats.TicketStatuses, v1alpha1.StatusCount{
			Status: status,
			Label:  label,
			Count:  cast.ToInt64(row["count"]),
		})
	}

	month := c.monthExpr()
	rows, err = c.store.Query(ctx,
		"SELECT "+month+" AS month, SUM(total_cost) AS total FROM "+c.payments.Table+
			" WHERE payment_date >= ? AND status = ? GROUP BY "+month+" ORDER BY month",
		now.AddDate(0, 0, -365), "COMPLETED")
	if err != nil {
		return nil, c.statisticsError(err)
	}
	for _, row := range rows {
		m, err := monthOf(row["month"])
		if err != nil {
			c.logger.Warn("skipping unparsable revenue month", zap.Any("month", row["month"]), zap.Error(err))
			continue
		}
		total, _ := decimalOf(row["total"])
		stats.MonthlyRevenue = append(stats.MonthlyRevenue, v1alpha1.MonthRevenue{Month: m, Revenue: total})
	}
	return stats, nil
}

func monthOf(v interface{}) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return schema.ParseDate(cast.ToString(v))
}

func (c *reportController) statisticsError(err error) error {
	c.degraded("statistics", err)
	return errors.ErrStorageOperation.WithReason(errors.FriendlyMessage(err, "export"))
}

// WriteStatisticsCSV writes a UTF-8 BOM followed by the ticket status and
// monthly revenue sections.
func (c *reportController) WriteStatisticsCSV(w io.Writer, stats *v1alpha1.Statistics) error {
	if stats == nil {
		return errors.ErrInvalidInput.WithReason("statistics cannot be nil")
	}
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	records := [][]string{
		{CSVTicketSection},
		{"Status", "Count"},
	}
	for _, s := range stats.TicketStatuses {
		records = append(records, []string{s.Label, cast.ToString(s.Count)})
	}
	records = append(records,
		[]string{},
		[]string{CSVRevenueSection},
		[]string{"Month", "Revenue"},
	)
	for _, m := range stats.MonthlyRevenue {
		records = append(records, []string{m.Month.Format("January 2006"), m.Revenue.StringFixed(2)})
	}

	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
