// Package matcher implements the per-rider matching pipeline: hard
// filters, route compatibility, then weighted scoring. All functions
// are pure; candidates are read-only inputs and every output is a new
// value object.
package matcher

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/zekka-tech/Klubz-sub003/internal/config"
	"github.com/zekka-tech/Klubz-sub003/internal/geo"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// MatchStats counts how candidates moved through the pipeline. The
// numbers are diagnostic only; they never influence matching output.
type MatchStats struct {
	Candidates   int           `json:"candidates"`
	PassedPhase1 int           `json:"passed_phase1"`
	PassedPhase2 int           `json:"passed_phase2"`
	Matches      int           `json:"matches"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Result is the outcome of matching one rider against a candidate set.
type Result struct {
	Matches []models.MatchResult `json:"matches"`
	Stats   MatchStats           `json:"stats"`
}

// MatchRiderToDrivers runs the three-phase pipeline for one rider over
// a pre-filtered candidate list and returns matches sorted ascending by
// score (lower is better), truncated to cfg.MaxResults. Identical
// inputs always produce identical ordering and values. A malformed
// candidate is rejected on its own; it never aborts the remaining
// candidates.
func MatchRiderToDrivers(rider models.RiderRequest, candidates []models.DriverTrip, cfg config.MatchConfig) Result {
	start := time.Now()
	stats := MatchStats{Candidates: len(candidates)}

	matches := make([]models.MatchResult, 0, len(candidates))
	for i := range candidates {
		trip := &candidates[i]
		if !passesHardFilters(rider, trip, cfg.Thresholds) {
			continue
		}
		stats.PassedPhase1++

		compat, ok := checkRouteCompatibility(rider, trip, cfg.Thresholds)
		if !ok {
			continue
		}
		stats.PassedPhase2++

		if m, ok := scoreCandidate(rider, trip, compat, cfg); ok {
			matches = append(matches, m)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		return matches[i].TripID < matches[j].TripID
	})
	if cfg.MaxResults > 0 && len(matches) > cfg.MaxResults {
		matches = matches[:cfg.MaxResults]
	}

	stats.Matches = len(matches)
	stats.Elapsed = time.Since(start)
	return Result{Matches: matches, Stats: stats}
}

// BatchMatchRiders applies MatchRiderToDrivers independently per rider.
// Cross-rider conflicts are resolved later by the dispatch layer.
func BatchMatchRiders(riders []models.RiderRequest, drivers []models.DriverTrip, cfg config.MatchConfig) map[string]Result {
	out := make(map[string]Result, len(riders))
	for _, r := range riders {
		out[r.ID] = MatchRiderToDrivers(r, drivers, cfg)
	}
	return out
}

// passesHardFilters is phase 1: cheap boolean rejects, evaluated in a
// fixed order with the first failure short-circuiting.
func passesHardFilters(rider models.RiderRequest, trip *models.DriverTrip, t config.Thresholds) bool {
	if trip.AvailableSeats <= 0 || trip.AvailableSeats < rider.SeatsNeeded {
		return false
	}
	if trip.Status != models.TripOffered && trip.Status != models.TripActive {
		return false
	}
	if trip.DepartureTime < rider.EarliestDeparture || trip.DepartureTime > rider.LatestDeparture {
		return false
	}
	if rider.OrganizationID != "" && trip.OrganizationID != "" && rider.OrganizationID != trip.OrganizationID {
		return false
	}
	if rider.Preferences != nil && rider.Preferences.MinDriverRating > 0 && trip.DriverRating > 0 &&
		trip.DriverRating < rider.Preferences.MinDriverRating {
		return false
	}
	// Defensive bbox re-check in case the pre-filter was skipped or is
	// working from a stale box.
	if trip.BoundingBox != nil {
		padded := geo.PadBoundingBox(*trip.BoundingBox, t.BoundingBoxPaddingDeg)
		if !geo.InsideBoundingBox(rider.Pickup, padded) && !geo.InsideBoundingBox(rider.Dropoff, padded) {
			return false
		}
	}
	return true
}

// routeCompat carries phase-2 geometry forward so phase 3 does not
// recompute projections.
type routeCompat struct {
	pickupDistanceKm  float64
	dropoffDistanceKm float64
	pickupPos         geo.RoutePosition
	hasPolyline       bool
}

// checkRouteCompatibility is phase 2: walk-distance limits against the
// driver's route and the wrong-direction check. With no genuine
// polyline (fewer than two points) distances fall back to the nearer of
// the two endpoints and direction cannot be checked.
func checkRouteCompatibility(rider models.RiderRequest, trip *models.DriverTrip, t config.Thresholds) (routeCompat, bool) {
	maxWalkKm := t.MaxPickupDistanceKm
	maxDropWalkKm := t.MaxDropoffDistanceKm
	if rider.Preferences != nil && rider.Preferences.MaxWalkDistanceKm > 0 {
		maxWalkKm = rider.Preferences.MaxWalkDistanceKm
		maxDropWalkKm = rider.Preferences.MaxWalkDistanceKm
	}

	var c routeCompat
	if len(trip.RoutePolyline) >= 2 {
		c.hasPolyline = true
		c.pickupPos = geo.LocateOnRoute(rider.Pickup, trip.RoutePolyline)
		dropPos := geo.LocateOnRoute(rider.Dropoff, trip.RoutePolyline)
		c.pickupDistanceKm = c.pickupPos.DistanceKm
		c.dropoffDistanceKm = dropPos.DistanceKm
		if c.pickupDistanceKm > maxWalkKm || c.dropoffDistanceKm > maxDropWalkKm {
			return c, false
		}
		// Pickup must occur no later than dropoff along the route.
		if c.pickupPos.SegmentIndex > dropPos.SegmentIndex {
			return c, false
		}
		return c, true
	}

	endpoints := []models.GeoPoint{trip.Departure, trip.Destination}
	c.pickupDistanceKm = minEndpointDistanceKm(rider.Pickup, endpoints)
	c.dropoffDistanceKm = minEndpointDistanceKm(rider.Dropoff, endpoints)
	if c.pickupDistanceKm > maxWalkKm || c.dropoffDistanceKm > maxDropWalkKm {
		return c, false
	}
	return c, true
}

func minEndpointDistanceKm(p models.GeoPoint, endpoints []models.GeoPoint) float64 {
	best := math.Inf(1)
	for _, e := range endpoints {
		if d := geo.HaversineKm(p, e); d < best {
			best = d
		}
	}
	return best
}

// scoreCandidate is phase 3: seven normalized sub-scores combined as a
// weighted sum, followed by the absolute detour-budget gate. Carbon
// savings are a side output and never feed back into the score.
func scoreCandidate(rider models.RiderRequest, trip *models.DriverTrip, c routeCompat, cfg config.MatchConfig) (models.MatchResult, bool) {
	t := cfg.Thresholds

	var b models.ScoreBreakdown
	b.PickupDistance = clamp01(c.pickupDistanceKm / t.MaxPickupDistanceKm)
	b.DropoffDistance = clamp01(c.dropoffDistanceKm / t.MaxDropoffDistanceKm)

	timeDiffMin := math.Abs(float64(trip.DepartureTime-rider.EarliestDeparture)) / 60000.0
	b.TimeAlignment = clamp01(timeDiffMin / t.MaxTimeDiffMinutes)

	// A trip the rider fills exactly scores best: near-empty seats are
	// the ones worth filling.
	if trip.AvailableSeats <= rider.SeatsNeeded || trip.TotalSeats <= 0 {
		b.SeatAvailability = 0
	} else {
		b.SeatAvailability = clamp01(float64(trip.AvailableSeats-rider.SeatsNeeded) / float64(trip.TotalSeats))
	}

	if trip.ShiftLocation != nil {
		b.ShiftAlignment = clamp01(geo.HaversineKm(rider.Dropoff, *trip.ShiftLocation) / 5.0)
	}

	var detourKm float64
	if c.hasPolyline {
		detourKm = geo.EstimateDetourKm(rider.Pickup, rider.Dropoff, trip.RoutePolyline)
		routeKm := trip.RouteDistanceKm
		if routeKm <= 0 {
			routeKm = t.DefaultRouteDistanceKm
		}
		b.DetourCost = clamp01(detourKm / (routeKm * t.MaxDetourFraction))
	}

	if trip.DriverRating > 0 {
		b.DriverRating = math.Max(0, (5-trip.DriverRating)/5)
	}

	w := cfg.Weights
	score := b.PickupDistance*w.PickupDistance +
		b.DropoffDistance*w.DropoffDistance +
		b.TimeAlignment*w.TimeAlignment +
		b.SeatAvailability*w.SeatAvailability +
		b.ShiftAlignment*w.ShiftAlignment +
		b.DetourCost*w.DetourCost +
		b.DriverRating*w.DriverRating
	if score < 0 {
		score = 0
	}

	detourMin := detourKm / config.UrbanSpeedKmh * 60
	maxDetourMin := t.MaxDetourMinutes
	if rider.Preferences != nil && rider.Preferences.MaxDetourMinutes > 0 {
		maxDetourMin = rider.Preferences.MaxDetourMinutes
	}
	if detourMin > maxDetourMin {
		return models.MatchResult{}, false
	}

	riderKm := geo.HaversineKm(rider.Pickup, rider.Dropoff)

	return models.MatchResult{
		RiderRequestID:         rider.ID,
		RiderID:                rider.RiderID,
		TripID:                 trip.ID,
		DriverID:               trip.DriverID,
		Score:                  score,
		Explanation:            explain(c, timeDiffMin, detourMin),
		Breakdown:              b,
		EstimatedPickupTime:    estimatePickupTime(trip, c),
		EstimatedDetourKm:      detourKm,
		EstimatedDetourMinutes: detourMin,
		CarbonSavedKg:          geo.EstimateCarbonSavedKg(riderKm, detourKm),
	}, true
}

// estimatePickupTime projects when the driver reaches the point where
// the rider boards, assuming the fixed urban-average speed from the
// trip's departure.
func estimatePickupTime(trip *models.DriverTrip, c routeCompat) int64 {
	alongKm := c.pickupPos.AlongRouteKm
	if !c.hasPolyline {
		alongKm = 0
	}
	travelMs := alongKm / config.UrbanSpeedKmh * 3600 * 1000
	return trip.DepartureTime + int64(travelMs)
}

func explain(c routeCompat, timeDiffMin, detourMin float64) string {
	return fmt.Sprintf("pickup %.2f km and dropoff %.2f km from route, departs %.0f min from window start, ~%.1f min detour",
		c.pickupDistanceKm, c.dropoffDistanceKm, timeDiffMin, detourMin)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
