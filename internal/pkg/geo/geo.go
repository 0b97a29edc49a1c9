// Package geo holds the distance math behind radius queries over alerts.
package geo

import "math"

const earthRadiusMeters = 6371008.8

// KmToMeters converts a search radius given in kilometres.
func KmToMeters(km float64) float64 { return km * 1000 }

// DistanceMeters returns the haversine great-circle distance between two
// WGS84 points given in decimal degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// WithinRadius reports whether (lat, lon) lies within radiusMeters of the centre.
func WithinRadius(centreLat, centreLon, lat, lon, radiusMeters float64) bool {
	return DistanceMeters(centreLat, centreLon, lat, lon) <= radiusMeters
}
