package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/creatorstack/paisa/internal/tax"
	"github.com/gin-gonic/gin"
)

// selectionRequest is the wire form of a consolidation request. Snowflake
// ids travel as strings.
type selectionRequest struct {
	Criterion string `json:"criterion"`

	Month int `json:"month,omitempty"`
	Year  int `json:"year,omitempty"`

	BrandID  string  `json:"brand_id,omitempty"`
	AgencyID *string `json:"agency_id,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	WorkItemIDs []string `json:"work_item_ids,omitempty"`
}

func (r selectionRequest) toSelection() (dealdomain.Selection, error) {
	selection := dealdomain.Selection{
		Criterion: dealdomain.Criterion(strings.TrimSpace(r.Criterion)),
		Month:     r.Month,
		Year:      r.Year,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
	}

	if raw := strings.TrimSpace(r.BrandID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return dealdomain.Selection{}, newValidationError("selection.brand_id", "invalid_id", "invalid brand id")
		}
		selection.BrandID = id
	}
	if r.AgencyID != nil && strings.TrimSpace(*r.AgencyID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*r.AgencyID))
		if err != nil {
			return dealdomain.Selection{}, newValidationError("selection.agency_id", "invalid_id", "invalid agency id")
		}
		selection.AgencyID = &id
	}
	for _, raw := range r.WorkItemIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return dealdomain.Selection{}, newValidationError("selection.work_item_ids", "invalid_id", "invalid work item id")
		}
		selection.WorkItemIDs = append(selection.WorkItemIDs, id)
	}

	return selection, nil
}

type createInvoiceRequest struct {
	Selection selectionRequest `json:"selection"`

	Client      *invoicedomain.Client      `json:"client,omitempty"`
	TaxOverride *invoicedomain.TaxOverride `json:"tax_override,omitempty"`
	Discount    tax.Discount               `json:"discount"`

	PaymentTermDays int        `json:"payment_term_days,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Currency        string     `json:"currency,omitempty"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	selection, err := req.Selection.toSelection()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		Selection:       selection,
		ClientOverride:  req.Client,
		TaxOverride:     req.TaxOverride,
		Discount:        req.Discount,
		PaymentTermDays: req.PaymentTermDays,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
		Currency:        req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := invoicedomain.InvoiceStatus(raw)
		req.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		invoiceType := invoicedomain.InvoiceType(raw)
		req.Type = &invoiceType
	}
	if from, ok := parseTimeQuery(c, "created_from"); ok {
		req.CreatedFrom = from
	}
	if to, ok := parseTimeQuery(c, "created_to"); ok {
		req.CreatedTo = to
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

type updateInvoiceRequest struct {
	ExpectedVersion int    `json:"expected_version"`
	Actor           string `json:"actor,omitempty"`
	Description     string `json:"description,omitempty"`

	Client      *invoicedomain.Client      `json:"client,omitempty"`
	TaxOverride *invoicedomain.TaxOverride `json:"tax_override,omitempty"`
	Discount    *tax.Discount              `json:"discount,omitempty"`
	DueDate     *time.Time                 `json:"due_date,omitempty"`
	Notes       *string                    `json:"notes,omitempty"`
	LineItems   *[]invoicedomain.LineItem  `json:"line_items,omitempty"`
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Update(c.Request.Context(), id, invoicedomain.UpdateInvoiceRequest{
		ExpectedVersion: req.ExpectedVersion,
		Actor:           req.Actor,
		Description:     req.Description,
		Client:          req.Client,
		TaxOverride:     req.TaxOverride,
		Discount:        req.Discount,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
		LineItems:       req.LineItems,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

type cancelInvoiceRequest struct {
	Actor string `json:"actor,omitempty"`
}

func (s *Server) CancelInvoice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req cancelInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	invoice, err := s.invoiceSvc.Cancel(c.Request.Context(), id, req.Actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) SendInvoice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.Send(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) MarkInvoiceViewed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.MarkViewed(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.renderer.RenderInvoice(c.Request.Context(), invoice)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	content, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Invoice numbers carry slashes; keep the filename flat.
	filename := strings.ReplaceAll(invoice.InvoiceNumber, "/", "-") + ".pdf"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", content)
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return id, nil
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, false
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &value, true
}
