package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/billfold/billfold/internal/audit/domain"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/pkg/db/pagination"
)

// CreateInvoice stores a new draft invoice for the caller.
//
//	@Summary	Create an invoice
//	@Tags		invoices
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/v1/invoices [post]
func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.SaveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)

	detail, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordInvoiceAudit(c, "invoice.created", detail)
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// ListInvoices pages through the caller's invoices, newest first.
//
//	@Summary	List invoices
//	@Tags		invoices
//	@Produce	json
//	@Param		page_token	query		string	false	"cursor token"
//	@Param		page_size	query		int		false	"page size"
//	@Param		status		query		string	false	"filter by status"
//	@Success	200	{object}	map[string]any
//	@Router		/v1/invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{
		Pagination: page,
		Status:     strings.TrimSpace(c.Query("status")),
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetInvoice returns one invoice with its derived detail fields.
func (s *Server) GetInvoice(c *gin.Context) {
	detail, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// UpdateInvoice replaces the editable fields and recomputes totals.
//
//	@Summary	Update an invoice
//	@Tags		invoices
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"invoice id"
//	@Success	200	{object}	map[string]any
//	@Router		/v1/invoices/{id} [put]
func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.SaveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)

	detail, err := s.invoiceSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordInvoiceAudit(c, "invoice.updated", detail)
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// UpdateInvoiceStatus moves an invoice through its lifecycle without
// touching the stored amounts.
//
//	@Summary	Update invoice status
//	@Tags		invoices
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"invoice id"
//	@Success	200	{object}	map[string]any
//	@Router		/v1/invoices/{id}/status [patch]
func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		AbortWithError(c, newValidationError("status", "missing_status", "status is required"))
		return
	}

	detail, err := s.invoiceSvc.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordInvoiceAudit(c, "invoice.status_changed", detail)
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// InvoiceHTML renders the printable invoice sheet.
func (s *Server) InvoiceHTML(c *gin.Context) {
	html, err := s.invoiceSvc.RenderHTML(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) recordInvoiceAudit(c *gin.Context, action string, detail *invoicedomain.Detail) {
	userID := detail.UserID
	s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		UserID:     &userID,
		Action:     action,
		TargetType: "invoice",
		TargetID:   detail.ID.String(),
		Metadata:   map[string]any{"status": string(detail.Status)},
	})
}
