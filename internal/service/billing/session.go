package billing

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/service/cart"
	"github.com/mamadbah2/medpos/internal/service/catalog"
	"github.com/mamadbah2/medpos/internal/service/ledger"
)

// Session is the state of one point-of-sale session. Every field is guarded by mu.
type Session struct {
	mu sync.Mutex

	id             string
	createdAt      time.Time
	cart           *cart.Cart
	catalog        models.Catalog
	catalogSource  catalog.Source
	catalogWarning string
	discount       decimal.Decimal
	customer       models.Customer

	stock        *ledger.StockTable
	stockWarning string
	pending      []ledger.Delta
}

// SessionView is a read-only snapshot of a session.
type SessionView struct {
	ID              string            `json:"id"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []models.LineItem `json:"items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
	Customer        models.Customer   `json:"customer"`
	CatalogSource   catalog.Source    `json:"catalog_source"`
	CatalogWarning  string            `json:"catalog_warning,omitempty"`
	Catalog         models.Catalog    `json:"catalog"`
	PendingSales    []ledger.Delta    `json:"pending_sales"`
}

// view must be called with s.mu held.
func (s *Session) view() SessionView {
	return SessionView{
		ID:              s.id,
		CreatedAt:       s.createdAt,
		Items:           s.cart.Items(),
		Subtotal:        s.cart.Subtotal(),
		DiscountPercent: s.discount,
		Customer:        s.customer,
		CatalogSource:   s.catalogSource,
		CatalogWarning:  s.catalogWarning,
		Catalog:         s.catalog.Clone(),
		PendingSales:    append([]ledger.Delta{}, s.pending...),
	}
}

// SessionManager keeps the open sessions in memory.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// GetSession retrieves an open session.
func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	return s, ok
}

// PutSession registers a session under its id.
func (sm *SessionManager) PutSession(s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[s.id] = s
}

// ClearSession removes a session and reports whether it existed.
func (sm *SessionManager) ClearSession(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.sessions[id]
	delete(sm.sessions, id)
	return ok
}

// Len returns the number of open sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
