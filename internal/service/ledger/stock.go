package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/lock"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
	"github.com/mamadbah2/medpos/internal/service/catalog"
)

const stockLockName = "stock-table"

// Delta is a quantity sold of one medicine, pending until committed.
type Delta struct {
	MedName  string `json:"med_name"`
	Quantity int    `json:"quantity"`
}

// StockLoadResult is a loaded stock table and how it was obtained.
type StockLoadResult struct {
	Table *StockTable
	// Created is set when no table existed and a blank one was uploaded.
	Created bool
	// Warning is set when the remote table could not be decoded and an empty one is used instead.
	Warning error
}

// Fallback reports whether the table is a stand-in for unreadable remote data.
func (r StockLoadResult) Fallback() bool {
	return r.Warning != nil
}

// StockLedger persists the stock table and its derived price catalog snapshot.
type StockLedger struct {
	store       blobstore.Store
	locker      lock.Locker
	tablePath   string
	catalogPath string
	logger      *zap.Logger
}

// NewStockLedger wires a stock ledger.
func NewStockLedger(store blobstore.Store, locker lock.Locker, tablePath, catalogPath string, logger *zap.Logger) *StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &StockLedger{store: store, locker: locker, tablePath: tablePath, catalogPath: catalogPath, logger: logger}
}

// Load downloads the stock table. A missing table is created blank and uploaded so
// later loads find it; an unreadable one is replaced in memory by an empty table.
func (l *StockLedger) Load(ctx context.Context) (StockLoadResult, error) {
	data, err := l.store.Download(ctx, l.tablePath)
	if errors.Is(err, blobstore.ErrNotFound) {
		l.logger.Warn("stock table not found, creating a blank one", zap.String("path", l.tablePath))
		table, _ := NewStockTable(nil)
		if err := l.uploadTable(ctx, table); err != nil {
			return StockLoadResult{}, err
		}
		return StockLoadResult{Table: table, Created: true}, nil
	}
	if err != nil {
		return StockLoadResult{}, fmt.Errorf("download stock table: %w", err)
	}

	table, err := DecodeStockTable(data)
	if err != nil {
		l.logger.Warn("stock table is invalid, using an empty table", zap.String("path", l.tablePath), zap.Error(err))
		empty, _ := NewStockTable(nil)
		return StockLoadResult{Table: empty, Warning: err}, nil
	}

	return StockLoadResult{Table: table}, nil
}

// Commit applies deltas to a fresh copy of the remote table and persists the table and
// its catalog snapshot while holding the stock lock. Nothing is uploaded if any delta
// names an unknown medicine or the remote table cannot be decoded.
func (l *StockLedger) Commit(ctx context.Context, deltas []Delta) (*StockTable, error) {
	release, err := l.locker.Lock(ctx, stockLockName)
	if err != nil {
		return nil, err
	}
	defer release()

	table, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	for _, delta := range deltas {
		if err := table.Increment(delta.MedName, delta.Quantity); err != nil {
			return nil, err
		}
	}

	if err := l.uploadTable(ctx, table); err != nil {
		return nil, err
	}
	if err := l.uploadSnapshot(ctx, table); err != nil {
		return nil, err
	}

	l.logger.Info("stock table saved",
		zap.String("path", l.tablePath),
		zap.Int("rows", table.Len()),
		zap.Int("deltas", len(deltas)))
	return table, nil
}

func (l *StockLedger) fetch(ctx context.Context) (*StockTable, error) {
	data, err := l.store.Download(ctx, l.tablePath)
	if errors.Is(err, blobstore.ErrNotFound) {
		return NewStockTable(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("download stock table: %w", err)
	}

	table, err := DecodeStockTable(data)
	if err != nil {
		return nil, fmt.Errorf("refusing to overwrite stock table %s: %w", l.tablePath, err)
	}
	return table, nil
}

func (l *StockLedger) uploadTable(ctx context.Context, table *StockTable) error {
	data, err := EncodeStockTable(table)
	if err != nil {
		return err
	}
	if err := blobstore.Put(ctx, l.store, l.tablePath, data); err != nil {
		return fmt.Errorf("upload stock table: %w", err)
	}
	return nil
}

func (l *StockLedger) uploadSnapshot(ctx context.Context, table *StockTable) error {
	data, err := catalog.Encode(table.Catalog())
	if err != nil {
		return err
	}
	if err := blobstore.Put(ctx, l.store, l.catalogPath, data); err != nil {
		return fmt.Errorf("upload price snapshot: %w", err)
	}
	return nil
}
