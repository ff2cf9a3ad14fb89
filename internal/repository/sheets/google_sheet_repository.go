package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/medpos/internal/config"
	"github.com/mamadbah2/medpos/internal/domain/models"
)

// LedgerMirror copies sales ledger rows to a secondary tabular destination.
type LedgerMirror interface {
	AppendRecord(ctx context.Context, record models.LedgerRecord) error
}

// GoogleSheetRepository mirrors ledger rows into a Google spreadsheet.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	ledgerRange   string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed mirror.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LedgerRange == "" {
		return nil, fmt.Errorf("ledger range must not be empty")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		ledgerRange:   cfg.LedgerRange,
		logger:        logger,
	}, nil
}

// AppendRecord appends one ledger row below the existing data of the ledger range.
func (r *GoogleSheetRepository) AppendRecord(ctx context.Context, record models.LedgerRecord) error {
	values := record.Values()
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	// RAW keeps invoice numbers from being reinterpreted as numbers in scientific notation.
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, r.ledgerRange, payload).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append ledger row into range %s: %w", r.ledgerRange, err)
	}

	r.logger.Debug("ledger row mirrored", zap.String("range", r.ledgerRange), zap.String("invoice", record.InvoiceNumber))
	return nil
}
