package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type requestUpgradeRequest struct {
	ToTier string `json:"to_tier"`
}

func (s *Server) RequestUpgrade(c *gin.Context) {
	var req requestUpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ToTier) == "" {
		AbortWithError(c, newValidationError("to_tier", "required", "to_tier is required"))
		return
	}

	upgrade, err := s.upgradeSvc.Request(c.Request.Context(), req.ToTier)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": upgrade})
}

func (s *Server) GetUpgrade(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	upgrade, err := s.upgradeSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": upgrade})
}

func (s *Server) ApplyUpgrade(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	upgrade, err := s.upgradeSvc.Apply(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": upgrade})
}

func (s *Server) CancelUpgrade(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	upgrade, err := s.upgradeSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": upgrade})
}
