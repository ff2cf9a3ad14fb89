package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
	"github.com/mamadbah2/medpos/internal/service/billing"
)

// Response headers of a generated bill.
const (
	HeaderInvoiceNumber = "X-Invoice-Number"
	HeaderDocumentPath  = "X-Invoice-Path"
	HeaderLogged        = "X-Invoice-Logged"
)

// POSHandler exposes the billing service over HTTP.
type POSHandler struct {
	svc    *billing.Service
	logger *zap.Logger
}

// NewPOSHandler constructs the HTTP handler adapter.
func NewPOSHandler(svc *billing.Service, logger *zap.Logger) *POSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &POSHandler{svc: svc, logger: logger}
}

// StartSession opens a new session.
func (h *POSHandler) StartSession(c *gin.Context) {
	view, err := h.svc.StartSession(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *POSHandler) GetSession(c *gin.Context) {
	view, err := h.svc.Session(c.Param("id"))
	h.respond(c, view, err)
}

func (h *POSHandler) EndSession(c *gin.Context) {
	if err := h.svc.EndSession(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem adds a catalog entry to the session cart.
func (h *POSHandler) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if !h.bind(c, &req) {
		return
	}
	view, err := h.svc.AddCatalogItem(c.Param("id"), req.Name, req.Quantity)
	h.respond(c, view, err)
}

// AddCustomItem adds a free-form item to the session cart.
func (h *POSHandler) AddCustomItem(c *gin.Context) {
	var req models.AddCustomItemRequest
	if !h.bind(c, &req) {
		return
	}
	view, err := h.svc.AddCustomItem(c.Param("id"), req.Name, req.UnitPrice)
	h.respond(c, view, err)
}

func (h *POSHandler) ClearCart(c *gin.Context) {
	view, err := h.svc.ClearCart(c.Param("id"))
	h.respond(c, view, err)
}

func (h *POSHandler) SetDiscount(c *gin.Context) {
	var req models.DiscountRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Percent == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percent is required"})
		return
	}
	view, err := h.svc.SetDiscount(c.Param("id"), *req.Percent)
	h.respond(c, view, err)
}

func (h *POSHandler) SetCustomer(c *gin.Context) {
	var req models.Customer
	if !h.bind(c, &req) {
		return
	}
	view, err := h.svc.SetCustomer(c.Param("id"), req)
	h.respond(c, view, err)
}

// GenerateBill builds, archives and logs an invoice and returns the PDF.
func (h *POSHandler) GenerateBill(c *gin.Context) {
	result, err := h.svc.GenerateBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header(HeaderInvoiceNumber, result.Invoice.Number)
	c.Header(HeaderDocumentPath, result.DocumentPath)
	if result.Logged {
		c.Header(HeaderLogged, "true")
	} else {
		c.Header(HeaderLogged, "false")
	}
	c.Header("Content-Disposition", `attachment; filename="Invoice_`+result.Invoice.Number+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", result.Document)
}

func (h *POSHandler) Stock(c *gin.Context) {
	view, err := h.svc.StockView(c.Request.Context(), c.Param("id"))
	h.respond(c, view, err)
}

// RecordSale applies an "update sales" action to the session stock table.
func (h *POSHandler) RecordSale(c *gin.Context) {
	var req models.RecordSaleRequest
	if !h.bind(c, &req) {
		return
	}
	view, err := h.svc.RecordSale(c.Request.Context(), c.Param("id"), req.MedName, req.Quantity)
	h.respond(c, view, err)
}

// SaveStock persists the session stock table and its catalog snapshot.
func (h *POSHandler) SaveStock(c *gin.Context) {
	view, err := h.svc.SaveStock(c.Request.Context(), c.Param("id"))
	h.respond(c, view, err)
}

func (h *POSHandler) Catalog(c *gin.Context) {
	loaded, err := h.svc.Catalog(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := gin.H{"source": loaded.Source, "catalog": loaded.Catalog}
	if loaded.Warning != nil {
		resp["warning"] = loaded.Warning.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// ImportCatalog merges an uploaded key->price JSON object over the saved catalog.
func (h *POSHandler) ImportCatalog(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	merged, err := h.svc.ImportCatalog(c.Request.Context(), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": merged})
}

func (h *POSHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *POSHandler) respond(c *gin.Context, body any, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *POSHandler) fail(c *gin.Context, err error) {
	var partial *billing.PartialCommitError

	switch {
	case errors.As(err, &partial):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":          "invoice archived but the sales ledger was not updated",
			"invoice_number": partial.InvoiceNumber,
			"document_path":  partial.DocumentPath,
		})
	case errors.Is(err, billing.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnknownItem):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEmptyCart), errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrMalformedData):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, blobstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "remote store unavailable: " + strings.TrimSpace(err.Error())})
	}
}
