package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
	"github.com/mamadbah2/medpos/internal/repository/blobstore/mocks"
	"github.com/mamadbah2/medpos/internal/server/handlers"
	"github.com/mamadbah2/medpos/internal/service/billing"
	"github.com/mamadbah2/medpos/internal/service/catalog"
	"github.com/mamadbah2/medpos/internal/service/invoice"
	"github.com/mamadbah2/medpos/internal/service/ledger"
)

type testServer struct {
	handler http.Handler
	store   *blobstore.MemoryStore
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	store := blobstore.NewMemoryStore()
	svc := billing.NewService(billing.Dependencies{
		Catalog:         catalog.NewService(store, nil),
		Stock:           ledger.NewStockLedger(store, nil, "/mmm/sales/main_sales.csv", "/mmm/sales/price_list.json", nil),
		Sales:           ledger.NewSalesLedger(store, nil, "/mmm/invoice/invoices_log.csv", nil),
		Renderer:        invoice.NewRenderer(invoice.ShopInfo{Name: "M.M. Medicine", Currency: "INR"}),
		Store:           store,
		CatalogPath:     "/mmm/data/price_list.json",
		InvoiceRoot:     "/mmm/invoice",
		DefaultDiscount: decimal.NewFromInt(18),
		Now:             func() time.Time { return time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC) },
	})
	return testServer{handler: New(handlers.NewPOSHandler(svc, nil), nil), store: store}
}

func (s testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s testServer) startSession(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: status %d body %s", rec.Code, rec.Body.String())
	}
	var view billing.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return view.ID
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBillFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)

	if rec := s.do(t, http.MethodPost, "/sessions/"+id+"/items", `{"name":"Paracetamol:Dolo 650","quantity":3}`); rec.Code != http.StatusOK {
		t.Fatalf("add item: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/sessions/"+id+"/custom-items", `{"name":"Bandage","unit_price":"5"}`); rec.Code != http.StatusOK {
		t.Fatalf("add custom item: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPut, "/sessions/"+id+"/discount", `{"percent":10}`); rec.Code != http.StatusOK {
		t.Fatalf("set discount: status %d body %s", rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/bill", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bill: status %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	docPath := rec.Header().Get(handlers.HeaderDocumentPath)
	if !strings.HasPrefix(docPath, "/mmm/invoice/2025/06/10/Invoice_") {
		t.Fatalf("unexpected document path %q", docPath)
	}
	if rec.Header().Get(handlers.HeaderLogged) != "true" {
		t.Fatalf("expected invoice to be logged")
	}
	if _, err := s.store.Download(context.Background(), docPath); err != nil {
		t.Fatalf("document not archived: %v", err)
	}
	ledgerData, err := s.store.Download(context.Background(), "/mmm/invoice/invoices_log.csv")
	if err != nil || !strings.Contains(string(ledgerData), "36.90") {
		t.Fatalf("unexpected ledger %q (%v)", ledgerData, err)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope", "", http.StatusNotFound},
		{"unknown item", http.MethodPost, "/sessions/" + id + "/items", `{"name":"Aspirin","quantity":1}`, http.StatusNotFound},
		{"zero quantity", http.MethodPost, "/sessions/" + id + "/items", `{"name":"Cetrizine:Okacet","quantity":0}`, http.StatusBadRequest},
		{"bad discount", http.MethodPut, "/sessions/" + id + "/discount", `{"percent":150}`, http.StatusBadRequest},
		{"missing discount", http.MethodPut, "/sessions/" + id + "/discount", `{}`, http.StatusBadRequest},
		{"null discount", http.MethodPut, "/sessions/" + id + "/discount", `{"percent":null}`, http.StatusBadRequest},
		{"invalid body", http.MethodPost, "/sessions/" + id + "/items", `{`, http.StatusBadRequest},
		{"empty cart", http.MethodPost, "/sessions/" + id + "/bill", "", http.StatusBadRequest},
		{"unknown stock row", http.MethodPost, "/sessions/" + id + "/stock/sales", `{"med_name":"Dolo","quantity":1}`, http.StatusNotFound},
		{"bad catalog upload", http.MethodPost, "/catalog", `{"x":-1}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := s.do(t, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}

	if paths := s.store.Paths(); len(paths) != 1 || paths[0] != "/mmm/sales/main_sales.csv" {
		t.Fatalf("only the bootstrapped stock table may be persisted, got %v", paths)
	}
}

func TestStockAndCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seed := strings.Join(models.StockHeader, ",") + "\nDolo 650,12,4\n"
	if err := blobstore.Put(ctx, s.store, "/mmm/sales/main_sales.csv", []byte(seed)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	id := s.startSession(t)

	if rec := s.do(t, http.MethodPost, "/sessions/"+id+"/stock/sales", `{"med_name":"Dolo 650","quantity":2}`); rec.Code != http.StatusOK {
		t.Fatalf("record sale: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/sessions/"+id+"/stock/save", ""); rec.Code != http.StatusOK {
		t.Fatalf("save stock: status %d body %s", rec.Code, rec.Body.String())
	}
	data, _ := s.store.Download(ctx, "/mmm/sales/main_sales.csv")
	if !strings.Contains(string(data), "Dolo 650,12,6") {
		t.Fatalf("unexpected stock table %q", data)
	}

	if rec := s.do(t, http.MethodPost, "/catalog", `{"Cough Syrup": 55}`); rec.Code != http.StatusOK {
		t.Fatalf("import catalog: status %d body %s", rec.Code, rec.Body.String())
	}
	rec := s.do(t, http.MethodGet, "/catalog", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Cough Syrup") {
		t.Fatalf("unexpected catalog response %d %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(t, http.MethodDelete, "/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("end session: %d", rec.Code)
	}
}

func TestRemoteFailureMapsToBadGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Download(gomock.Any(), "/mmm/data/price_list.json").Return(nil, errors.New("connection reset")).AnyTimes()

	svc := billing.NewService(billing.Dependencies{
		Catalog:     catalog.NewService(store, nil),
		Store:       store,
		CatalogPath: "/mmm/data/price_list.json",
	})
	handler := New(handlers.NewPOSHandler(svc, nil), nil)

	for _, path := range []string{"/sessions", "/catalog"} {
		method := http.MethodPost
		if path == "/catalog" {
			method = http.MethodGet
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("%s %s: expected 502, got %d (%s)", method, path, rec.Code, rec.Body.String())
		}
	}
}

func TestMissingDiscountKeepsCurrentValue(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)

	if rec := s.do(t, http.MethodPut, "/sessions/"+id+"/discount", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/sessions/"+id, "")
	var view billing.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if !view.DiscountPercent.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("discount must stay at 18, got %s", view.DiscountPercent)
	}
}
