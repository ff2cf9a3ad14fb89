package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
	"github.com/mamadbah2/medpos/internal/repository/sheets"
	"github.com/mamadbah2/medpos/internal/service/cart"
	"github.com/mamadbah2/medpos/internal/service/catalog"
	"github.com/mamadbah2/medpos/internal/service/invoice"
	"github.com/mamadbah2/medpos/internal/service/ledger"
	"github.com/mamadbah2/medpos/internal/service/notify"
)

// CatalogStore loads and imports the price catalog.
type CatalogStore interface {
	Load(ctx context.Context, path string) (catalog.LoadResult, error)
	Import(ctx context.Context, base models.Catalog, data []byte, path string) (models.Catalog, error)
}

// StockStore loads and commits the stock table.
type StockStore interface {
	Load(ctx context.Context) (ledger.StockLoadResult, error)
	Commit(ctx context.Context, deltas []ledger.Delta) (*ledger.StockTable, error)
}

// SalesAppender appends invoice summaries to the sales ledger.
type SalesAppender interface {
	Append(ctx context.Context, record models.LedgerRecord) error
}

// DocumentRenderer turns an invoice into a printable document.
type DocumentRenderer interface {
	Render(inv models.Invoice) ([]byte, error)
}

// Dependencies groups the collaborators of the billing service.
type Dependencies struct {
	Catalog     CatalogStore
	Stock       StockStore
	Sales       SalesAppender
	Renderer    DocumentRenderer
	Store       blobstore.Store
	CatalogPath string
	InvoiceRoot string

	DefaultDiscount decimal.Decimal
	Location        *time.Location

	// Mirror and Notifier are optional.
	Mirror   sheets.LedgerMirror
	Notifier notify.Notifier

	Now    func() time.Time
	Logger *zap.Logger
}

// BillResult is the outcome of a successful "generate bill" action.
type BillResult struct {
	Invoice      models.Invoice
	Document     []byte
	DocumentPath string
	// Logged is false for invoices whose final total is zero.
	Logged bool
}

// StockView is the session's stock table with pending sales applied.
type StockView struct {
	Rows         []models.StockRow `json:"rows"`
	PendingSales []ledger.Delta    `json:"pending_sales"`
	Created      bool              `json:"created"`
	Warning      string            `json:"warning,omitempty"`
}

// Service runs point-of-sale sessions: cart editing, billing and stock updates.
type Service struct {
	deps     Dependencies
	sessions *SessionManager
	logger   *zap.Logger
}

// NewService wires the billing service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Service{deps: deps, sessions: NewSessionManager(), logger: deps.Logger}
}

// StartSession opens a session with a fresh catalog snapshot and the default discount.
func (s *Service) StartSession(ctx context.Context) (SessionView, error) {
	loaded, err := s.deps.Catalog.Load(ctx, s.deps.CatalogPath)
	if err != nil {
		return SessionView{}, fmt.Errorf("load catalog: %w", err)
	}

	sess := &Session{
		id:            uuid.NewString(),
		createdAt:     s.now(),
		cart:          cart.New(),
		catalog:       loaded.Catalog,
		catalogSource: loaded.Source,
		discount:      s.deps.DefaultDiscount,
	}
	if loaded.Warning != nil {
		sess.catalogWarning = loaded.Warning.Error()
	}
	s.sessions.PutSession(sess)

	s.logger.Info("session started",
		zap.String("session_id", sess.id),
		zap.String("catalog_source", string(loaded.Source)),
		zap.Int("catalog_entries", len(loaded.Catalog)),
		zap.Int("open_sessions", s.sessions.Len()))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Session returns a snapshot of an open session.
func (s *Service) Session(id string) (SessionView, error) {
	var view SessionView
	err := s.withSession(id, func(sess *Session) error {
		view = sess.view()
		return nil
	})
	return view, err
}

// EndSession discards a session and everything pending in it.
func (s *Service) EndSession(id string) error {
	if !s.sessions.ClearSession(id) {
		return ErrSessionNotFound
	}
	s.logger.Info("session ended", zap.String("session_id", id), zap.Int("open_sessions", s.sessions.Len()))
	return nil
}

// AddCatalogItem adds quantity units of a catalog entry to the session cart.
func (s *Service) AddCatalogItem(id, name string, quantity int) (SessionView, error) {
	var view SessionView
	err := s.withSession(id, func(sess *Session) error {
		if _, err := sess.cart.AddCatalogItem(sess.catalog, name, quantity); err != nil {
			return err
		}
		view = sess.view()
		return nil
	})
	return view, err
}

// AddCustomItem adds a single unit of a free-form item to the session cart.
func (s *Service) AddCustomItem(id, name string, unitPrice decimal.Decimal) (SessionView, error) {
	var view SessionView
	err := s.withSession(id, func(sess *Session) error {
		if _, err := sess.cart.AddCustomItem(name, unitPrice); err != nil {
			return err
		}
		view = sess.view()
		return nil
	})
	return view, err
}

// ClearCart empties the session cart.
func (s *Service) ClearCart(id string) (SessionView, error) {
	var view SessionView
	err := s.withSession(id, func(sess *Session) error {
		sess.cart.Clear()
		view = sess.view()
		return nil
	})
	return view, err
}

// SetDiscount sets the discount percent applied at billing time.
func (s *Service) SetDiscount(id string, percent decimal.Decimal) (SessionView, error) {
	if err := invoice.ValidateDiscount(percent); err != nil {
		return SessionView{}, err
	}
	var view SessionView
	err := s.withSession(id, func(sess *Session) error {
		sess.discount = percent
		view = sess.view()
		return nil
	})
	return view, err
}

// SetCustomer sets the optional customer block printed on invoices.
func (s *Service) SetCustomer(id string, customer models.Customer) (SessionView, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	var view SessionView
	err := s.withSession(id, func(sess *Session) error {
		sess.customer = customer
		view = sess.view()
		return nil
	})
	return view, err
}

// GenerateBill composes an invoice from the session cart, renders and archives its
// document, then appends the sales ledger row. Nothing is persisted for an empty cart.
// If the document was archived but the ledger append failed, a *PartialCommitError is
// returned. The cart is left untouched.
func (s *Service) GenerateBill(ctx context.Context, id string) (BillResult, error) {
	var result BillResult
	err := s.withSession(id, func(sess *Session) error {
		generatedAt := s.now()
		inv, err := invoice.Compose(sess.cart.Items(), sess.discount, models.InvoiceNumber(generatedAt), generatedAt, sess.customer)
		if err != nil {
			return err
		}

		doc, err := s.deps.Renderer.Render(inv)
		if err != nil {
			return fmt.Errorf("render invoice %s: %w", inv.Number, err)
		}

		docPath, err := invoice.Archive(ctx, s.deps.Store, s.deps.InvoiceRoot, inv, doc)
		if err != nil {
			return err
		}

		result = BillResult{Invoice: inv, Document: doc, DocumentPath: docPath}

		if inv.Loggable() {
			record := models.NewLedgerRecord(inv)
			if err := s.deps.Sales.Append(ctx, record); err != nil {
				s.logger.Error("invoice archived but ledger append failed",
					zap.String("invoice", inv.Number),
					zap.String("document_path", docPath),
					zap.Error(err))
				return &PartialCommitError{InvoiceNumber: inv.Number, DocumentPath: docPath, Err: err}
			}
			result.Logged = true
			s.mirror(ctx, record)
		}

		s.logger.Info("invoice generated",
			zap.String("session_id", sess.id),
			zap.String("invoice", inv.Number),
			zap.String("document_path", docPath),
			zap.String("final_total", inv.FinalTotal.StringFixed(2)),
			zap.Bool("logged", result.Logged))

		s.notify(ctx, inv)
		return nil
	})
	if err != nil {
		var partial *PartialCommitError
		if errors.As(err, &partial) {
			return result, err
		}
		return BillResult{}, err
	}
	return result, nil
}

// StockView returns the session's stock table, loading it on first use.
func (s *Service) StockView(ctx context.Context, id string) (StockView, error) {
	var view StockView
	err := s.withSession(id, func(sess *Session) error {
		created, err := s.ensureStock(ctx, sess)
		if err != nil {
			return err
		}
		view = StockView{
			Rows:         sess.stock.Rows(),
			PendingSales: append([]ledger.Delta{}, sess.pending...),
			Created:      created,
			Warning:      sess.stockWarning,
		}
		return nil
	})
	return view, err
}

// RecordSale adds a sold quantity to a stock row. The change stays pending until SaveStock.
func (s *Service) RecordSale(ctx context.Context, id, medName string, quantity int) (StockView, error) {
	medName = strings.TrimSpace(medName)
	var view StockView
	err := s.withSession(id, func(sess *Session) error {
		if _, err := s.ensureStock(ctx, sess); err != nil {
			return err
		}
		if err := sess.stock.Increment(medName, quantity); err != nil {
			return err
		}
		sess.pending = append(sess.pending, ledger.Delta{MedName: medName, Quantity: quantity})
		view = StockView{
			Rows:         sess.stock.Rows(),
			PendingSales: append([]ledger.Delta{}, sess.pending...),
			Warning:      sess.stockWarning,
		}
		return nil
	})
	return view, err
}

// SaveStock commits the pending sales to the remote stock table and its catalog snapshot.
func (s *Service) SaveStock(ctx context.Context, id string) (StockView, error) {
	var view StockView
	err := s.withSession(id, func(sess *Session) error {
		table, err := s.deps.Stock.Commit(ctx, sess.pending)
		if err != nil {
			return fmt.Errorf("save stock: %w", err)
		}
		s.logger.Info("stock committed", zap.String("session_id", sess.id), zap.Int("deltas", len(sess.pending)))
		sess.stock = table
		sess.stockWarning = ""
		sess.pending = nil
		view = StockView{Rows: table.Rows(), PendingSales: []ledger.Delta{}}
		return nil
	})
	return view, err
}

// Catalog returns the currently saved catalog merged over the defaults.
func (s *Service) Catalog(ctx context.Context) (catalog.LoadResult, error) {
	return s.deps.Catalog.Load(ctx, s.deps.CatalogPath)
}

// ImportCatalog merges an uploaded key->price mapping over the current catalog and saves it.
// Open sessions keep the snapshot they started with.
func (s *Service) ImportCatalog(ctx context.Context, data []byte) (models.Catalog, error) {
	current, err := s.deps.Catalog.Load(ctx, s.deps.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return s.deps.Catalog.Import(ctx, current.Catalog, data, s.deps.CatalogPath)
}

func (s *Service) withSession(id string, fn func(*Session) error) error {
	sess, ok := s.sessions.GetSession(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

// ensureStock must be called with sess.mu held.
func (s *Service) ensureStock(ctx context.Context, sess *Session) (bool, error) {
	if sess.stock != nil {
		return false, nil
	}
	loaded, err := s.deps.Stock.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load stock: %w", err)
	}
	sess.stock = loaded.Table
	if loaded.Warning != nil {
		sess.stockWarning = loaded.Warning.Error()
	}
	return loaded.Created, nil
}

func (s *Service) mirror(ctx context.Context, record models.LedgerRecord) {
	if s.deps.Mirror == nil {
		return
	}
	if err := s.deps.Mirror.AppendRecord(ctx, record); err != nil {
		s.logger.Warn("failed to mirror ledger row", zap.String("invoice", record.InvoiceNumber), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, inv models.Invoice) {
	if s.deps.Notifier == nil || inv.Customer.Phone == "" {
		return
	}
	if err := s.deps.Notifier.SendReceipt(ctx, inv); err != nil {
		s.logger.Warn("failed to send receipt", zap.String("invoice", inv.Number), zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	return s.deps.Now().In(s.deps.Location)
}
