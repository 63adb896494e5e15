package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
)

type upsertTaxConfigRequest struct {
	TaxTypeCode string `json:"tax_type_code"`
	TaxTypeName string `json:"tax_type_name"`
	StateID     string `json:"state_id"`
}

func (s *Server) GetTaxConfig(c *gin.Context) {
	resp, err := s.taxSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertTaxConfig(c *gin.Context) {
	var req upsertTaxConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxSvc.Upsert(c.Request.Context(), taxdomain.UpsertRequest{
		TaxTypeCode: strings.TrimSpace(req.TaxTypeCode),
		TaxTypeName: strings.TrimSpace(req.TaxTypeName),
		StateID:     strings.TrimSpace(req.StateID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DisableTaxConfig(c *gin.Context) {
	resp, err := s.taxSvc.Disable(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
