// Package geo contains the pure geographic computations the matching
// pipeline is built on. Everything here is deterministic, allocation-light
// and safe for concurrent use; malformed inputs degrade to defined values
// (Inf distances, empty results) instead of errors.
package geo

import (
	"math"

	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle math.
const EarthRadiusKm = 6371.0088

// CarbonPerKm is the per-km emission factor (kg CO2e) for an average
// private car, used to estimate savings from a shared seat.
const CarbonPerKm = 0.171

// detourShareFactor discounts the detour's emission burden, since the
// extra distance is driven once but serves an additional occupant.
const detourShareFactor = 0.5

// HaversineKm returns the great-circle distance in kilometres between
// two points given in decimal degrees.
func HaversineKm(a, b models.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	rLat1 := toRad(a.Lat)
	rLat2 := toRad(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// projectOntoSegment returns the point on segment a-b closest to p,
// together with the clamped projection parameter t in [0,1]. The
// projection uses a local equirectangular frame scaled by the segment's
// mean latitude; over the sub-kilometre spans matching deals in, the
// error versus true cross-track math is negligible. A zero-length
// segment projects onto its single point.
func projectOntoSegment(p, a, b models.GeoPoint) (models.GeoPoint, float64) {
	cosLat := math.Cos(toRad((a.Lat + b.Lat) / 2))
	bx := (b.Lng - a.Lng) * cosLat
	by := b.Lat - a.Lat
	px := (p.Lng - a.Lng) * cosLat
	py := p.Lat - a.Lat

	segLen2 := bx*bx + by*by
	if segLen2 == 0 {
		return a, 0
	}
	t := (px*bx + py*by) / segLen2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return models.GeoPoint{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}, t
}

// PointToSegmentKm returns the distance from p to the great-circle
// segment a-b. When the perpendicular foot falls outside the segment the
// distance to the nearer endpoint is returned; there is no extrapolation
// past segment ends and no NaN for degenerate inputs.
func PointToSegmentKm(p, a, b models.GeoPoint) float64 {
	closest, _ := projectOntoSegment(p, a, b)
	return HaversineKm(p, closest)
}

// RoutePosition locates a point relative to a polyline: the minimum
// distance to the route, the index of the nearest segment, the closest
// point on the route and the along-route distance from the route start
// to that closest point.
type RoutePosition struct {
	DistanceKm   float64
	SegmentIndex int
	Closest      models.GeoPoint
	AlongRouteKm float64
}

// LocateOnRoute scans every segment of the polyline for the one nearest
// to p. An empty polyline yields {+Inf, -1}; a single-point polyline
// yields the direct distance with segment index 0.
func LocateOnRoute(p models.GeoPoint, route []models.GeoPoint) RoutePosition {
	if len(route) == 0 {
		return RoutePosition{DistanceKm: math.Inf(1), SegmentIndex: -1}
	}
	if len(route) == 1 {
		return RoutePosition{
			DistanceKm:   HaversineKm(p, route[0]),
			SegmentIndex: 0,
			Closest:      route[0],
		}
	}

	best := RoutePosition{DistanceKm: math.Inf(1), SegmentIndex: 0, Closest: route[0]}
	alongKm := 0.0
	for i := 0; i < len(route)-1; i++ {
		closest, _ := projectOntoSegment(p, route[i], route[i+1])
		d := HaversineKm(p, closest)
		if d < best.DistanceKm {
			best = RoutePosition{
				DistanceKm:   d,
				SegmentIndex: i,
				Closest:      closest,
				AlongRouteKm: alongKm + HaversineKm(route[i], closest),
			}
		}
		alongKm += HaversineKm(route[i], route[i+1])
	}
	return best
}

// MinDistanceToRouteKm returns the minimum distance from p to the
// polyline and the index of the nearest segment.
func MinDistanceToRouteKm(p models.GeoPoint, route []models.GeoPoint) (float64, int) {
	pos := LocateOnRoute(p, route)
	return pos.DistanceKm, pos.SegmentIndex
}

// RouteLengthKm sums the segment lengths of a polyline.
func RouteLengthKm(route []models.GeoPoint) float64 {
	total := 0.0
	for i := 0; i < len(route)-1; i++ {
		total += HaversineKm(route[i], route[i+1])
	}
	return total
}

// BuildBoundingBox returns the axis-aligned envelope of a point set.
// An empty input yields the zero box.
func BuildBoundingBox(points []models.GeoPoint) models.BoundingBox {
	if len(points) == 0 {
		return models.BoundingBox{}
	}
	box := models.BoundingBox{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLng: points[0].Lng, MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLng = math.Min(box.MinLng, p.Lng)
		box.MaxLng = math.Max(box.MaxLng, p.Lng)
	}
	return box
}

// PadBoundingBox grows a box by the given margin in degrees on every
// side. Padding is degree-space, so callers picking a margin must
// account for the latitude-dependent degree-to-km skew themselves.
func PadBoundingBox(box models.BoundingBox, degrees float64) models.BoundingBox {
	return models.BoundingBox{
		MinLat: box.MinLat - degrees,
		MaxLat: box.MaxLat + degrees,
		MinLng: box.MinLng - degrees,
		MaxLng: box.MaxLng + degrees,
	}
}

// InsideBoundingBox reports whether p lies inside box, borders included.
func InsideBoundingBox(p models.GeoPoint, box models.BoundingBox) bool {
	return p.Lat >= box.MinLat && p.Lat <= box.MaxLat &&
		p.Lng >= box.MinLng && p.Lng <= box.MaxLng
}

// BoxesOverlap reports whether two boxes intersect.
func BoxesOverlap(a, b models.BoundingBox) bool {
	return a.MinLat <= b.MaxLat && a.MaxLat >= b.MinLat &&
		a.MinLng <= b.MaxLng && a.MaxLng >= b.MinLng
}

// EstimateDetourKm approximates the extra distance a driver incurs by
// serving one rider: leave the route at the point nearest the pickup,
// drive pickup → dropoff, rejoin at the point nearest the dropoff, minus
// the along-route distance the driver would have covered anyway. This is
// a projection-based approximation, not a re-routed distance; it can
// under- or over-shoot on curved roads, which is a known limitation of
// the model. The result is floored at zero.
func EstimateDetourKm(pickup, dropoff models.GeoPoint, route []models.GeoPoint) float64 {
	if len(route) < 2 {
		return 0
	}
	pPos := LocateOnRoute(pickup, route)
	dPos := LocateOnRoute(dropoff, route)

	along := dPos.AlongRouteKm - pPos.AlongRouteKm
	if along < 0 {
		along = 0
	}

	detour := pPos.DistanceKm + HaversineKm(pickup, dropoff) + dPos.DistanceKm - along
	if detour < 0 {
		return 0
	}
	return detour
}

// EstimateCarbonSavedKg estimates the CO2e saved by a rider sharing a
// seat instead of driving the same distance alone, net of the shared
// cost of the driver's detour. Floored at zero.
func EstimateCarbonSavedKg(riderDistanceKm, detourKm float64) float64 {
	saved := riderDistanceKm*CarbonPerKm - detourKm*CarbonPerKm*detourShareFactor
	if saved < 0 {
		return 0
	}
	return saved
}
