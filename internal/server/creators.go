package server

import (
	"net/http"
	"time"

	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	"github.com/gin-gonic/gin"
)

type createCreatorRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	StateCode string `json:"state_code,omitempty"`
	Address   string `json:"address,omitempty"`
}

func (s *Server) CreateCreator(c *gin.Context) {
	var req createCreatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	creator, err := s.creatorSvc.Create(c.Request.Context(), creatordomain.Creator{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		StateCode: req.StateCode,
		Address:   req.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": creator})
}

func (s *Server) GetProfile(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	creator, err := s.creatorSvc.Get(c.Request.Context(), creatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": creator})
}

type updateTaxPreferencesRequest struct {
	ApplyGST bool    `json:"apply_gst"`
	GSTRate  float64 `json:"gst_rate"`
	ApplyTDS bool    `json:"apply_tds"`
	TDSRate  float64 `json:"tds_rate"`

	GSTIN string `json:"gstin,omitempty"`
	PAN   string `json:"pan,omitempty"`

	TDSExemption         bool       `json:"tds_exemption,omitempty"`
	ExemptionCertificate string     `json:"exemption_certificate,omitempty"`
	ExemptionValidUntil  *time.Time `json:"exemption_valid_until,omitempty"`
}

func (s *Server) UpdateTaxPreferences(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateTaxPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	creator, err := s.creatorSvc.UpdateTaxPreferences(c.Request.Context(), creatorID, creatordomain.UpdateTaxPreferencesRequest{
		ApplyGST:             req.ApplyGST,
		GSTRate:              req.GSTRate,
		ApplyTDS:             req.ApplyTDS,
		TDSRate:              req.TDSRate,
		GSTIN:                req.GSTIN,
		PAN:                  req.PAN,
		TDSExemption:         req.TDSExemption,
		ExemptionCertificate: req.ExemptionCertificate,
		ExemptionValidUntil:  req.ExemptionValidUntil,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": creator})
}

type updateBankDetailsRequest struct {
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	UPI           string `json:"upi,omitempty"`
}

func (s *Server) UpdateBankDetails(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateBankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	creator, err := s.creatorSvc.UpdateBankDetails(c.Request.Context(), creatorID, creatordomain.UpdateBankDetailsRequest{
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		IFSC:          req.IFSC,
		UPI:           req.UPI,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": creator})
}
