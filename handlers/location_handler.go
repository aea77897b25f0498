// Package handlers contains the gin HTTP handlers for the location API.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/middleware"
	"github.com/washpoint/washpoint-backend/services"
	"github.com/washpoint/washpoint-backend/types"
)

// LocationHandler exposes the location-record and proximity operations.
type LocationHandler struct {
	locationService  *services.LocationService
	proximityService *services.ProximityService
	log              *zap.SugaredLogger
}

func NewLocationHandler(locationService *services.LocationService, proximityService *services.ProximityService) *LocationHandler {
	return &LocationHandler{
		locationService:  locationService,
		proximityService: proximityService,
		log:              logger.GetLogger().Named("location-handler"),
	}
}

// UpdateLocation handles PUT /location: the authenticated professional
// reports a position fix for themselves.
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID missing from context"})
		return
	}

	var update types.PositionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return
	}

	loc, err := h.locationService.UpdateLocation(c.Request.Context(), userID, update)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// UpdateStatus handles PUT /location/status.
func (h *LocationHandler) UpdateStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID missing from context"})
		return
	}

	var req struct {
		Status types.ProfessionalStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return
	}

	loc, err := h.locationService.UpdateStatus(c.Request.Context(), userID, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// SetTracking handles PUT /location/tracking.
func (h *LocationHandler) SetTracking(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID missing from context"})
		return
	}

	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return
	}

	loc, err := h.locationService.SetTrackingEnabled(c.Request.Context(), userID, *req.Enabled)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// UpdateSettings handles PUT /location/settings with a partial settings
// payload; absent keys keep their stored values.
func (h *LocationHandler) UpdateSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID missing from context"})
		return
	}

	var update types.TrackingSettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return
	}

	loc, err := h.locationService.UpdateTrackingSettings(c.Request.Context(), userID, update)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// GetLocation handles GET /locations/:id.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	professionalID := c.Param("id")
	if professionalID == "" {
		_ = c.Error(apperrors.ValidationFailed("missing professional id", "path parameter id is required"))
		return
	}

	loc, err := h.locationService.GetLocation(c.Request.Context(), professionalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// GetHistory handles GET /locations/:id/history?limit=N.
func (h *LocationHandler) GetHistory(c *gin.Context) {
	professionalID := c.Param("id")
	if professionalID == "" {
		_ = c.Error(apperrors.ValidationFailed("missing professional id", "path parameter id is required"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(apperrors.ValidationFailed("invalid limit", "limit must be an integer"))
			return
		}
		limit = parsed
	}

	history, err := h.locationService.GetHistory(c.Request.Context(), professionalID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"professionalId": professionalID,
		"history":        history,
		"count":          len(history),
	})
}

// FindNearby handles GET /locations/nearby. The radius query parameter is in
// meters; results carry distances in kilometers.
func (h *LocationHandler) FindNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid latitude", "latitude must be a number"))
		return
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid longitude", "longitude must be a number"))
		return
	}

	maxDistance := 5000.0
	if raw := c.Query("maxDistanceMeters"); raw != "" {
		maxDistance, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			_ = c.Error(apperrors.ValidationFailed("invalid radius", "maxDistanceMeters must be a number"))
			return
		}
	}

	var svcFilter []string
	if raw := c.Query("services"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				svcFilter = append(svcFilter, s)
			}
		}
	}

	results, err := h.proximityService.FindNearby(c.Request.Context(), types.NearbyQuery{
		Latitude:     lat,
		Longitude:    lng,
		MaxDistanceM: maxDistance,
		Status:       c.Query("status"),
		Services:     svcFilter,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}
