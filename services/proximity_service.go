package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/internal/geo"
	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/types"
)

// NearbyCache fronts proximity queries with TTL-bound entries. Entries are
// never invalidated by writes; staleness up to the TTL is an accepted
// trade-off.
type NearbyCache interface {
	Get(ctx context.Context, key string) ([]types.NearbyProfessional, bool)
	Set(ctx context.Context, key string, results []types.NearbyProfessional)
}

// ProximityService answers "who is nearby and available" queries against the
// durable store, optionally served from the cache.
type ProximityService struct {
	locationStore store.LocationStore
	cache         NearbyCache
	log           *zap.SugaredLogger
}

// NewProximityService creates a ProximityService. cache may be nil to
// disable caching.
func NewProximityService(locationStore store.LocationStore, cache NearbyCache) *ProximityService {
	return &ProximityService{
		locationStore: locationStore,
		cache:         cache,
		log:           logger.GetLogger().Named("proximity"),
	}
}

// FindNearby returns tracking-enabled professionals within the radius,
// sorted by ascending distance, each joined with a minimal identity
// projection. An empty result is not an error.
func (s *ProximityService) FindNearby(ctx context.Context, q types.NearbyQuery) ([]types.NearbyProfessional, error) {
	if !geo.ValidLatLon(q.Latitude, q.Longitude) {
		return nil, apperrors.ValidationFailed("invalid origin", fmt.Sprintf("latitude %f, longitude %f out of range", q.Latitude, q.Longitude))
	}
	if q.MaxDistanceM <= 0 {
		return nil, apperrors.ValidationFailed("invalid radius", "maxDistanceMeters must be positive")
	}
	if q.Status == "" {
		q.Status = types.StatusFilterAll
	}
	if q.Status != types.StatusFilterAll && !types.ProfessionalStatus(q.Status).IsValid() {
		return nil, apperrors.ValidationFailed("invalid status filter", fmt.Sprintf("status must be available, busy, offline or all; got %q", q.Status))
	}

	key := nearbyCacheKey(q)
	if s.cache != nil {
		if results, ok := s.cache.Get(ctx, key); ok {
			return results, nil
		}
	}

	candidates, err := s.locationStore.FindNearbyCandidates(ctx, q)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	// Exact radius filter on top of the store's bounding-box prefilter.
	results := make([]types.NearbyProfessional, 0, len(candidates))
	distances := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		d := geo.HaversineMeters(q.Latitude, q.Longitude, c.Position.Latitude, c.Position.Longitude)
		if d > q.MaxDistanceM {
			continue
		}
		c.DistanceKm = geo.RoundKm(d)
		distances[c.ProfessionalID] = d
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return distances[results[i].ProfessionalID] < distances[results[j].ProfessionalID]
	})

	if s.cache != nil {
		s.cache.Set(ctx, key, results)
	}
	return results, nil
}

// nearbyCacheKey canonicalizes a query: origin rounded to ~11m precision,
// radius, status, and the sorted service filter. Equal queries share an
// entry regardless of GPS jitter or filter ordering.
func nearbyCacheKey(q types.NearbyQuery) string {
	services := append([]string(nil), q.Services...)
	sort.Strings(services)
	return fmt.Sprintf("%.4f:%.4f:%.0f:%s:%s",
		q.Latitude, q.Longitude, q.MaxDistanceM, q.Status, strings.Join(services, ","))
}
