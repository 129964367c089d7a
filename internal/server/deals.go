package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type previewDealsRequest struct {
	Selection selectionRequest `json:"selection"`
}

// PreviewEligibleDeals resolves a consolidation request without creating an
// invoice, so the caller can see what would be billed.
func (s *Server) PreviewEligibleDeals(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req previewDealsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	selection, err := req.Selection.toSelection()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.selector.Select(c.Request.Context(), creatorID, selection)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
