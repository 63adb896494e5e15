package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
)

type openInvoiceSessionRequest struct {
	CustomerID      string `json:"customer_id"`
	CustomerStateID string `json:"customer_state_id"`
	Currency        string `json:"currency"`
	InvoiceDate     string `json:"invoice_date"`
	InvoiceID       string `json:"invoice_id"`
}

type selectItemRequest struct {
	ItemID string `json:"item_id"`
}

type editFieldRequest struct {
	Value string `json:"value"`
}

type changeCurrencyRequest struct {
	Currency     string           `json:"currency"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate"`
}

type editExchangeRateRequest struct {
	ExchangeRate *decimal.Decimal `json:"exchange_rate"`
}

type editAdjustmentRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	Name      *string          `json:"name"`
	AccountID *string          `json:"account_id"`
}

func (s *Server) OpenInvoiceSession(c *gin.Context) {
	var req openInvoiceSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var invoiceDate *time.Time
	if raw := strings.TrimSpace(req.InvoiceDate); raw != "" {
		parsed, err := time.Parse(dateOnlyLayout, raw)
		if err != nil {
			AbortWithError(c, newValidationError("invoice_date", "invalid_invoice_date", "invoice_date must be YYYY-MM-DD"))
			return
		}
		invoiceDate = &parsed
	}

	view, err := s.invoiceSvc.OpenSession(c.Request.Context(), invoicedomain.OpenSessionRequest{
		CustomerID:      strings.TrimSpace(req.CustomerID),
		CustomerStateID: strings.TrimSpace(req.CustomerStateID),
		Currency:        strings.TrimSpace(req.Currency),
		InvoiceDate:     invoiceDate,
		InvoiceID:       strings.TrimSpace(req.InvoiceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": view})
}

func (s *Server) GetInvoiceSession(c *gin.Context) {
	view, err := s.invoiceSvc.GetSession(c.Request.Context(), c.Param("id"))
	respondSession(c, view, err)
}

func (s *Server) CloseInvoiceSession(c *gin.Context) {
	if err := s.invoiceSvc.CloseSession(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AddInvoiceRow(c *gin.Context) {
	view, err := s.invoiceSvc.AddRow(c.Request.Context(), c.Param("id"))
	respondSession(c, view, err)
}

func (s *Server) RemoveInvoiceRow(c *gin.Context) {
	view, err := s.invoiceSvc.RemoveRow(c.Request.Context(), c.Param("id"), c.Param("rowId"))
	respondSession(c, view, err)
}

func (s *Server) SelectInvoiceItem(c *gin.Context) {
	var req selectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.invoiceSvc.SelectItem(c.Request.Context(), c.Param("id"), c.Param("rowId"), req.ItemID)
	respondSession(c, view, err)
}

func (s *Server) FocusInvoiceField(c *gin.Context) {
	field, ok := lineField(c)
	if !ok {
		return
	}
	view, err := s.invoiceSvc.FocusField(c.Request.Context(), c.Param("id"), c.Param("rowId"), field)
	respondSession(c, view, err)
}

func (s *Server) EditInvoiceField(c *gin.Context) {
	field, ok := lineField(c)
	if !ok {
		return
	}
	var req editFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.invoiceSvc.EditField(c.Request.Context(), c.Param("id"), c.Param("rowId"), field, req.Value)
	respondSession(c, view, err)
}

func (s *Server) BlurInvoiceField(c *gin.Context) {
	field, ok := lineField(c)
	if !ok {
		return
	}
	view, err := s.invoiceSvc.BlurField(c.Request.Context(), c.Param("id"), c.Param("rowId"), field)
	respondSession(c, view, err)
}

func (s *Server) ChangeInvoiceCurrency(c *gin.Context) {
	var req changeCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.invoiceSvc.ChangeCurrency(c.Request.Context(), c.Param("id"), invoicedomain.ChangeCurrencyRequest{
		Currency:     strings.TrimSpace(req.Currency),
		ExchangeRate: req.ExchangeRate,
	})
	respondSession(c, view, err)
}

func (s *Server) EditInvoiceExchangeRate(c *gin.Context) {
	var req editExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ExchangeRate == nil {
		AbortWithError(c, newValidationError("exchange_rate", "invalid_exchange_rate", "exchange_rate is required"))
		return
	}

	view, err := s.invoiceSvc.EditExchangeRate(c.Request.Context(), c.Param("id"), *req.ExchangeRate)
	respondSession(c, view, err)
}

func (s *Server) EditInvoiceAdjustment(c *gin.Context) {
	var req editAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.invoiceSvc.EditAdjustment(c.Request.Context(), c.Param("id"), invoicedomain.EditAdjustmentRequest{
		Amount:    req.Amount,
		Name:      req.Name,
		AccountID: req.AccountID,
	})
	respondSession(c, view, err)
}

func (s *Server) FocusInvoiceAdjustment(c *gin.Context) {
	view, err := s.invoiceSvc.FocusField(c.Request.Context(), c.Param("id"), "", invoicedomain.FieldAdjustmentAmount)
	respondSession(c, view, err)
}

func (s *Server) EditInvoiceAdjustmentText(c *gin.Context) {
	var req editFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.invoiceSvc.EditField(c.Request.Context(), c.Param("id"), "", invoicedomain.FieldAdjustmentAmount, req.Value)
	respondSession(c, view, err)
}

func (s *Server) BlurInvoiceAdjustment(c *gin.Context) {
	view, err := s.invoiceSvc.BlurField(c.Request.Context(), c.Param("id"), "", invoicedomain.FieldAdjustmentAmount)
	respondSession(c, view, err)
}

func (s *Server) SubmitInvoiceSession(c *gin.Context) {
	invoice, err := s.invoiceSvc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) RenderInvoiceSessionPDF(c *gin.Context) {
	out, err := s.invoiceSvc.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="invoice-`+c.Param("id")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}

// lineField reads the :field route parameter. The adjustment has its own
// routes, so only line fields are accepted here.
func lineField(c *gin.Context) (invoicedomain.Field, bool) {
	field := invoicedomain.Field(strings.TrimSpace(c.Param("field")))
	if !field.Valid() || field == invoicedomain.FieldAdjustmentAmount {
		AbortWithError(c, newValidationError("field", "invalid_field", "unknown field"))
		return "", false
	}
	return field, true
}

func respondSession(c *gin.Context, view *invoicedomain.SessionView, err error) {
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}
