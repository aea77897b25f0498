package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/middleware"
	"github.com/washpoint/washpoint-backend/services"
)

// SubscriptionHandler exposes subscribe/unsubscribe for live location feeds.
type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
	log                 *zap.SugaredLogger
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		log:                 logger.GetLogger().Named("subscription-handler"),
	}
}

// Subscribe handles POST /locations/:id/subscribe. The authenticated caller
// becomes a subscriber of the professional identified by the path.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID missing from context"})
		return
	}

	professionalID := c.Param("id")
	if professionalID == "" {
		_ = c.Error(apperrors.ValidationFailed("missing professional id", "path parameter id is required"))
		return
	}

	sub, err := h.subscriptionService.Subscribe(c.Request.Context(), userID, professionalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /locations/:id/subscribe.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID missing from context"})
		return
	}

	professionalID := c.Param("id")
	if professionalID == "" {
		_ = c.Error(apperrors.ValidationFailed("missing professional id", "path parameter id is required"))
		return
	}

	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), userID, professionalID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
