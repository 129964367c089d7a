package server

import (
	"net/http"

	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	"github.com/gin-gonic/gin"
)

type activateSubscriptionRequest struct {
	Tier      string `json:"tier"`
	CycleType string `json:"cycle_type,omitempty"`
	AutoRenew *bool  `json:"auto_renew,omitempty"`
}

func (s *Server) ActivateSubscription(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req activateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	sub, err := s.subscriptionSvc.Activate(c.Request.Context(), subscriptiondomain.ActivateRequest{
		SubscriberID: creatorID,
		Tier:         req.Tier,
		CycleType:    req.CycleType,
		AutoRenew:    autoRenew,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": sub})
}

func (s *Server) GetSubscription(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sub, err := s.subscriptionSvc.GetBySubscriber(c.Request.Context(), creatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	creatorID, ok := s.actingCreatorID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sub, err := s.subscriptionSvc.Cancel(c.Request.Context(), creatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}
