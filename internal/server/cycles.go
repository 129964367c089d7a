package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListBillingCycles(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	cycles, err := s.cycleSvc.ListBySubscriber(c.Request.Context(), creatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cycles})
}

func (s *Server) GetCurrentBillingCycle(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	cycle, err := s.cycleSvc.Current(c.Request.Context(), creatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cycle})
}

func (s *Server) PayBillingCycle(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cycle, err := s.cycleSvc.Pay(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cycle})
}
