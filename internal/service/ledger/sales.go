package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/lock"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
)

const salesLockName = "sales-ledger"

// SalesLedger is the append-only invoice log stored as one remote CSV file.
type SalesLedger struct {
	store  blobstore.Store
	locker lock.Locker
	path   string
	logger *zap.Logger
}

// NewSalesLedger wires a sales ledger stored at path.
func NewSalesLedger(store blobstore.Store, locker lock.Locker, path string, logger *zap.Logger) *SalesLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &SalesLedger{store: store, locker: locker, path: path, logger: logger}
}

// Append adds one record. The whole file is re-uploaded while the ledger lock is held.
func (l *SalesLedger) Append(ctx context.Context, record models.LedgerRecord) error {
	release, err := l.locker.Lock(ctx, salesLockName)
	if err != nil {
		return err
	}
	defer release()

	records, err := l.read(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		records = append(records, models.LedgerHeader)
	}
	records = append(records, record.Values())

	data, err := encodeCSV(records)
	if err != nil {
		return err
	}
	if err := blobstore.Put(ctx, l.store, l.path, data); err != nil {
		return fmt.Errorf("upload sales ledger: %w", err)
	}

	l.logger.Info("ledger row appended",
		zap.String("invoice", record.InvoiceNumber),
		zap.String("final_total", record.FinalTotal.StringFixed(2)),
		zap.Int("rows", len(records)-1))
	return nil
}

// Rows returns the data rows of the ledger without the header.
func (l *SalesLedger) Rows(ctx context.Context) ([][]string, error) {
	records, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

func (l *SalesLedger) read(ctx context.Context) ([][]string, error) {
	data, err := l.store.Download(ctx, l.path)
	if errors.Is(err, blobstore.ErrNotFound) {
		l.logger.Info("sales ledger not found, starting empty", zap.String("path", l.path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download sales ledger: %w", err)
	}

	records, err := decodeCSV(data)
	if err != nil {
		return nil, fmt.Errorf("sales ledger %s: %w", l.path, err)
	}
	return records, nil
}
