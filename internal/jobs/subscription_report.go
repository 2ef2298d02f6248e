package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"subsync/internal/metrics"
	"subsync/internal/models"
	"subsync/internal/repositories"
	"subsync/internal/services"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

const (
	reportDateLayout  = "2006-01-02"
	reportContentType = "text/csv"
)

var ErrInvalidReportRange = errors.New("report start date is after end date")

var reportHeader = []string{"day", "new", "ended_same_day", "ended_in_range", "renewed"}

type ReportOptions struct {
	From    time.Time
	To      time.Time
	Archive bool
}

type ReportResult struct {
	From       time.Time
	To         time.Time
	Rows       []models.DailySubscriptionReport
	ObjectName string
}

// Totals sums every column over the report days.
func (r *ReportResult) Totals() models.DailySubscriptionReport {
	var total models.DailySubscriptionReport
	for _, row := range r.Rows {
		total.NewCount += row.NewCount
		total.EndedSameDay += row.EndedSameDay
		total.EndedTotal += row.EndedTotal
		total.RenewedCount += row.RenewedCount
	}
	return total
}

// SubscriptionReportJob builds the per-day subscription report and archives
// it as CSV when storage is configured.
type SubscriptionReportJob struct {
	store   repositories.Store
	storage services.ReportStorage
	logger  *zap.Logger
}

func NewSubscriptionReportJob(store repositories.Store, storage services.ReportStorage, logger *zap.Logger) *SubscriptionReportJob {
	return &SubscriptionReportJob{store: store, storage: storage, logger: logger.Named("report")}
}

// LastDays returns the range covering the n days up to and including now.
func LastDays(now time.Time, n int) (time.Time, time.Time) {
	to := truncateDay(now)
	if n < 1 {
		n = 1
	}
	return to.AddDate(0, 0, -(n - 1)), to
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseReportDate parses a YYYY-MM-DD date in UTC.
func ParseReportDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(reportDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

func ReportObjectName(from, to time.Time) string {
	return fmt.Sprintf("reports/subscriptions-%s_%s.csv", from.Format(reportDateLayout), to.Format(reportDateLayout))
}

func (j *SubscriptionReportJob) Run(ctx context.Context, opts ReportOptions) (*ReportResult, error) {
	from, to := truncateDay(opts.From), truncateDay(opts.To)
	if from.After(to) {
		return nil, ErrInvalidReportRange
	}

	rows, err := j.store.Subscriptions().DailyReport(ctx, from, to)
	if err != nil {
		metrics.ReportRunsCount.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("build subscription report: %w", err)
	}
	result := &ReportResult{From: from, To: to, Rows: rows}

	if opts.Archive {
		if j.storage == nil {
			j.logger.Warn("report archive requested but storage is not configured")
		} else {
			data, err := RenderReportCSV(rows)
			if err != nil {
				metrics.ReportRunsCount.WithLabelValues(metrics.OutcomeFailure).Inc()
				return nil, err
			}
			name := ReportObjectName(from, to)
			if err := j.storage.UploadReport(ctx, name, data, reportContentType); err != nil {
				metrics.ReportRunsCount.WithLabelValues(metrics.OutcomeFailure).Inc()
				return nil, err
			}
			result.ObjectName = name
		}
	}

	metrics.ReportRunsCount.WithLabelValues(metrics.OutcomeSuccess).Inc()
	totals := result.Totals()
	j.logger.Info("subscription report built",
		zap.String("from", from.Format(reportDateLayout)),
		zap.String("to", to.Format(reportDateLayout)),
		zap.Int("days", len(rows)),
		zap.Int64("new", totals.NewCount),
		zap.Int64("ended", totals.EndedTotal),
		zap.Int64("renewed", totals.RenewedCount),
		zap.String("object", result.ObjectName))
	return result, nil
}

// RunScheduled reports on yesterday and today and archives the result.
func (j *SubscriptionReportJob) RunScheduled(ctx context.Context) error {
	from, to := LastDays(time.Now(), 2)
	_, err := j.Run(ctx, ReportOptions{From: from, To: to, Archive: true})
	if err != nil {
		j.logger.Error("scheduled subscription report failed", zap.Error(err))
	}
	return err
}

type reportCSVRow struct {
	Day          string `csv:"day"`
	NewCount     int64  `csv:"new"`
	EndedSameDay int64  `csv:"ended_same_day"`
	EndedTotal   int64  `csv:"ended_in_range"`
	RenewedCount int64  `csv:"renewed"`
}

func RenderReportCSV(rows []models.DailySubscriptionReport) ([]byte, error) {
	records := make([]reportCSVRow, 0, len(rows))
	for _, row := range rows {
		records = append(records, reportCSVRow{
			Day:          row.Day.Format(reportDateLayout),
			NewCount:     row.NewCount,
			EndedSameDay: row.EndedSameDay,
			EndedTotal:   row.EndedTotal,
			RenewedCount: row.RenewedCount,
		})
	}
	data, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return nil, fmt.Errorf("render report csv: %w", err)
	}
	return data, nil
}

func reportRecord(day string, row models.DailySubscriptionReport) []string {
	return []string{
		day,
		strconv.FormatInt(row.NewCount, 10),
		strconv.FormatInt(row.EndedSameDay, 10),
		strconv.FormatInt(row.EndedTotal, 10),
		strconv.FormatInt(row.RenewedCount, 10),
	}
}

// RenderReportTable writes the report as a text table with a totals footer.
func RenderReportTable(out io.Writer, result *ReportResult) {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader(reportHeader)
	for _, row := range result.Rows {
		table.Append(reportRecord(row.Day.Format(reportDateLayout), row))
	}
	table.SetFooter(reportRecord("total", result.Totals()))
	table.Render()
}
