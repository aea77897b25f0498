// Package geo provides great-circle distance math for proximity queries.
package geo

import "math"

// earthRadiusM is the mean Earth radius in meters (spherical model).
const earthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance in meters between two
// points given in decimal degrees.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// RoundKm converts a distance in meters to kilometers rounded to two
// decimal places, the precision exposed to clients.
func RoundKm(meters float64) float64 {
	return math.Round(meters/10) / 100
}

// BoundingBox returns a latitude/longitude box that fully contains the
// circle of the given radius around the origin. Used as a coarse SQL
// prefilter before exact haversine filtering.
func BoundingBox(lat, lon, radiusM float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusM / 111320.0 // meters per degree latitude
	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)

	// Longitude degrees shrink with latitude; guard the poles where the
	// box degenerates to the full longitude range.
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 1e-6 {
		return minLat, maxLat, -180, 180
	}
	lonDelta := radiusM / (111320.0 * cos)
	if lonDelta >= 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, lon - lonDelta, lon + lonDelta
}

// ValidLatLon reports whether the pair is a representable coordinate.
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
