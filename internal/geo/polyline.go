package geo

import (
	"strings"

	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// polylinePrecision is the coordinate scale of the encoded polyline
// format: five decimal places, the precision used by the major mapping
// providers.
const polylinePrecision = 1e5

// EncodePolyline encodes a point sequence using the signed-delta
// variable-length scheme (5-bit groups, ASCII offset 63) so routes can
// be exchanged with external mapping providers and stored compactly.
func EncodePolyline(points []models.GeoPoint) string {
	var sb strings.Builder
	prevLat, prevLng := 0, 0
	for _, p := range points {
		lat := int(roundHalfAway(p.Lat * polylinePrecision))
		lng := int(roundHalfAway(p.Lng * polylinePrecision))
		encodeSignedDelta(&sb, lat-prevLat)
		encodeSignedDelta(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

func encodeSignedDelta(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	sb.WriteByte(byte(u + 63))
}

// DecodePolyline is the inverse of EncodePolyline. Round-tripping is
// lossless to 1e-5 degrees. A truncated or corrupt tail is tolerated:
// decoding stops at the last complete coordinate pair.
func DecodePolyline(encoded string) []models.GeoPoint {
	points := make([]models.GeoPoint, 0, len(encoded)/4)
	lat, lng := 0, 0
	i := 0
	for i < len(encoded) {
		dLat, next, ok := decodeSignedDelta(encoded, i)
		if !ok {
			break
		}
		dLng, after, ok := decodeSignedDelta(encoded, next)
		if !ok {
			break
		}
		lat += dLat
		lng += dLng
		points = append(points, models.GeoPoint{
			Lat: float64(lat) / polylinePrecision,
			Lng: float64(lng) / polylinePrecision,
		})
		i = after
	}
	return points
}

func decodeSignedDelta(s string, i int) (int, int, bool) {
	result, shift := 0, 0
	for {
		if i >= len(s) {
			return 0, i, false
		}
		b := int(s[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, true
	}
	return result >> 1, i, true
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return float64(int(v - 0.5))
	}
	return float64(int(v + 0.5))
}

// SimplifyPolyline reduces a polyline with Ramer-Douglas-Peucker,
// keeping every point that deviates more than toleranceKm from the
// simplified shape. Implemented with an explicit stack because stored
// routes can run to thousands of points. The two endpoints are always
// kept; inputs shorter than three points are returned as a copy.
func SimplifyPolyline(points []models.GeoPoint, toleranceKm float64) []models.GeoPoint {
	if len(points) < 3 {
		out := make([]models.GeoPoint, len(points))
		copy(out, points)
		return out
	}

	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true

	type span struct{ first, last int }
	stack := []span{{0, len(points) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxDist, maxIdx := 0.0, -1
		for i := s.first + 1; i < s.last; i++ {
			d := PointToSegmentKm(points[i], points[s.first], points[s.last])
			if d > maxDist {
				maxDist, maxIdx = d, i
			}
		}
		if maxIdx >= 0 && maxDist > toleranceKm {
			keep[maxIdx] = true
			stack = append(stack, span{s.first, maxIdx}, span{maxIdx, s.last})
		}
	}

	out := make([]models.GeoPoint, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}
