// Package geo holds the spherical-earth helpers shared by the query builders.
package geo

import "strconv"

// EarthRadiusMeters is the equatorial radius the document store's
// $centerSphere radians are measured against.
const EarthRadiusMeters = 6378100.0

// MetersToRadians converts a distance along the earth's surface to the
// angle it subtends at the centre.
func MetersToRadians(meters float64) float64 {
	return meters / EarthRadiusMeters
}

// FormatMeters renders a distance the way Elasticsearch distance units expect it.
func FormatMeters(meters float64) string {
	return strconv.FormatFloat(meters, 'f', -1, 64) + "m"
}
