package reporting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/mongodb"
)

const dateLayout = "2006-01-02"

// LedgerReader exposes the data rows of the sales ledger.
type LedgerReader interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Service aggregates the sales ledger into daily summaries.
type Service struct {
	ledger   LedgerReader
	repo     mongodb.Repository
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance. repo may be nil when summaries are not stored.
func NewService(ledger LedgerReader, repo mongodb.Repository, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{ledger: ledger, repo: repo, location: location, logger: logger, now: time.Now}
}

// GenerateDailyReport aggregates the invoices logged on day's calendar date, stores the
// result when a repository is configured and returns it with a formatted message.
func (s *Service) GenerateDailyReport(ctx context.Context, day time.Time) (models.DailySalesReport, string, error) {
	rows, err := s.ledger.Rows(ctx)
	if err != nil {
		return models.DailySalesReport{}, "", fmt.Errorf("load sales ledger: %w", err)
	}

	day = day.In(s.location)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.location)
	end := start.AddDate(0, 0, 1)

	subtotal, discount, revenue := decimal.Zero, decimal.Zero, decimal.Zero
	report := models.DailySalesReport{Date: start, CreatedAt: s.now().UTC()}

	for _, row := range rows {
		if len(row) < len(models.LedgerHeader) {
			continue
		}

		ts, err := time.ParseInLocation(models.LedgerTimeLayout, row[1], s.location)
		if err != nil {
			s.logger.Debug("skip ledger row with invalid timestamp", zap.String("value", row[1]), zap.Error(err))
			continue
		}
		if ts.Before(start) || !ts.Before(end) {
			continue
		}

		rowSubtotal, err1 := decimal.NewFromString(row[3])
		rowDiscount, err2 := decimal.NewFromString(row[5])
		rowTotal, err3 := decimal.NewFromString(row[6])
		if err1 != nil || err2 != nil || err3 != nil {
			s.logger.Debug("skip ledger row with invalid amounts", zap.String("invoice", row[0]))
			continue
		}

		subtotal = subtotal.Add(rowSubtotal)
		discount = discount.Add(rowDiscount)
		revenue = revenue.Add(rowTotal)
		report.ItemsSold += countItems(row[2])
		report.InvoiceCount++
	}

	report.Subtotal = subtotal.Round(2).InexactFloat64()
	report.DiscountAmount = discount.Round(2).InexactFloat64()
	report.Revenue = revenue.Round(2).InexactFloat64()

	if s.repo != nil {
		if err := s.repo.SaveDailySalesReport(ctx, report); err != nil {
			return report, "", err
		}
	}

	s.logger.Info("daily sales report generated",
		zap.String("date", start.Format(dateLayout)),
		zap.Int("invoices", report.InvoiceCount),
		zap.String("revenue", revenue.StringFixed(2)))

	if report.InvoiceCount == 0 {
		return report, fmt.Sprintf("Sales (%s): no invoices yet.", start.Format(dateLayout)), nil
	}

	return report, fmt.Sprintf("Sales (%s): %d invoices, %d units. Subtotal %s, discounts %s, revenue %s.",
		start.Format(dateLayout), report.InvoiceCount, report.ItemsSold,
		subtotal.StringFixed(2), discount.StringFixed(2), revenue.StringFixed(2)), nil
}

// countItems sums the quantities of an item summary such as "A x 2; B x 1".
func countItems(summary string) int {
	total := 0
	for _, part := range strings.Split(summary, "; ") {
		idx := strings.LastIndex(part, " x ")
		if idx < 0 {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(part[idx+3:]))
		if err != nil {
			continue
		}
		total += qty
	}
	return total
}
