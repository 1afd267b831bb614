package address

import "math"

const earthRadiusKm = 6371.0

// DistanceKm is the haversine distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	sinLat := math.Sin(rad(lat2-lat1) / 2)
	sinLng := math.Sin(rad(lng2-lng1) / 2)
	h := sinLat*sinLat + math.Cos(rad(lat1))*math.Cos(rad(lat2))*sinLng*sinLng
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
