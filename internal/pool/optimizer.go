// Package pool selects which riders to combine onto one driver trip and
// in what stop order. The selection is a cheapest-insertion greedy under
// a cumulative absolute detour budget: candidates are taken best score
// first, and each acceptance is charged the marginal kilometres it adds
// to the driver's current multi-stop path, so route segments already
// driven for earlier riders are not double-counted.
package pool

import (
	"sort"

	"github.com/zekka-tech/Klubz-sub003/internal/config"
	"github.com/zekka-tech/Klubz-sub003/internal/geo"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// OptimizePool builds a pool for one driver from a candidate list
// pre-sorted ascending by score. Riders whose location data is missing
// are skipped; riders that would overflow seats or the pool detour
// budget are skipped; the scan stops once MaxRidersPerPool riders are
// aboard. A nil return means no rider could be pooled, which is a
// normal business outcome, not a fault.
func OptimizePool(trip models.DriverTrip, ranked []models.MatchResult, riderStops map[string]models.RiderStops, cfg config.MatchConfig) *models.PoolAssignment {
	if trip.AvailableSeats <= 0 || len(ranked) == 0 {
		return nil
	}

	type member struct {
		match models.MatchResult
		stops models.RiderStops
	}
	var accepted []member
	seatsUsed := 0
	cumDetourKm := 0.0
	currentStops := []models.Stop{}
	currentLenKm := pathLengthKm(trip, currentStops)

	for _, cand := range ranked {
		if len(accepted) >= cfg.Optimizer.MaxRidersPerPool {
			break
		}
		rs, ok := riderStops[cand.RiderID]
		if !ok {
			continue
		}
		seats := rs.SeatsNeeded
		if seats <= 0 {
			seats = 1
		}
		if seatsUsed+seats > trip.AvailableSeats {
			continue
		}

		trial := append(append([]member{}, accepted...), member{cand, rs})
		trialRiders := make([]poolRider, 0, len(trial))
		for _, m := range trial {
			trialRiders = append(trialRiders, poolRider{riderID: m.match.RiderID, stops: m.stops})
		}
		trialStops := orderStops(trip, trialRiders)
		trialLenKm := pathLengthKm(trip, trialStops)
		marginalKm := trialLenKm - currentLenKm
		if marginalKm < 0 {
			marginalKm = 0
		}
		if cumDetourKm+marginalKm > cfg.Optimizer.MaxPoolDetourKm {
			continue
		}

		accepted = trial
		seatsUsed += seats
		cumDetourKm += marginalKm
		currentStops = trialStops
		currentLenKm = trialLenKm
	}

	if len(accepted) == 0 {
		return nil
	}

	assignment := &models.PoolAssignment{
		TripID:         trip.ID,
		DriverID:       trip.DriverID,
		SeatsUsed:      seatsUsed,
		SeatsRemaining: trip.AvailableSeats - seatsUsed,
		DetourKm:       cumDetourKm,
		DetourMinutes:  cumDetourKm / config.UrbanSpeedKmh * 60,
		OrderedStops:   currentStops,
	}
	for _, m := range accepted {
		assignment.Matches = append(assignment.Matches, m.match)
		assignment.TotalScore += m.match.Score
		assignment.CarbonSavedKg += m.match.CarbonSavedKg
	}
	assignment.AverageScore = assignment.TotalScore / float64(len(accepted))
	return assignment
}

type poolRider struct {
	riderID string
	stops   models.RiderStops
}

// pathLengthKm is the length of the driver's multi-stop path: departure,
// each stop in order, then destination. Straight-line legs keep the
// marginal-insertion cost consistent across acceptances.
func pathLengthKm(trip models.DriverTrip, stops []models.Stop) float64 {
	total := 0.0
	prev := trip.Departure
	for _, s := range stops {
		total += geo.HaversineKm(prev, s.Location)
		prev = s.Location
	}
	return total + geo.HaversineKm(prev, trip.Destination)
}

// orderStops sequences every rider's pickup and dropoff along the
// driver's route: primary key is the nearest route segment index,
// secondary key the along-route distance to the projected point. A trip
// without a real polyline treats everything as segment 0 ordered by
// distance from the departure point. A post-pass guarantees each
// rider's pickup precedes their own dropoff.
func orderStops(trip models.DriverTrip, riders []poolRider) []models.Stop {
	type keyedStop struct {
		stop    models.Stop
		segment int
		alongKm float64
	}

	locate := func(p models.GeoPoint) (int, float64) {
		if len(trip.RoutePolyline) >= 2 {
			pos := geo.LocateOnRoute(p, trip.RoutePolyline)
			return pos.SegmentIndex, pos.AlongRouteKm
		}
		return 0, geo.HaversineKm(trip.Departure, p)
	}

	keyed := make([]keyedStop, 0, len(riders)*2)
	for _, r := range riders {
		seg, along := locate(r.stops.Pickup)
		keyed = append(keyed, keyedStop{
			stop:    models.Stop{Type: models.StopPickup, RiderID: r.riderID, Location: r.stops.Pickup},
			segment: seg, alongKm: along,
		})
		seg, along = locate(r.stops.Dropoff)
		keyed = append(keyed, keyedStop{
			stop:    models.Stop{Type: models.StopDropoff, RiderID: r.riderID, Location: r.stops.Dropoff},
			segment: seg, alongKm: along,
		})
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		if keyed[i].segment != keyed[j].segment {
			return keyed[i].segment < keyed[j].segment
		}
		return keyed[i].alongKm < keyed[j].alongKm
	})

	stops := make([]models.Stop, len(keyed))
	for i, k := range keyed {
		stops[i] = k.stop
	}
	stops = fixPickupOrder(stops)

	prev := trip.Departure
	for i := range stops {
		if i > 0 {
			stops[i].DistanceFromPrevKm = geo.HaversineKm(prev, stops[i].Location)
		}
		prev = stops[i].Location
	}
	return stops
}

// fixPickupOrder relocates any pickup that would otherwise appear after
// its own dropoff to the position immediately before that dropoff.
func fixPickupOrder(stops []models.Stop) []models.Stop {
	for i := 0; i < len(stops); i++ {
		if stops[i].Type != models.StopDropoff {
			continue
		}
		pickupSeen := false
		for j := 0; j < i; j++ {
			if stops[j].Type == models.StopPickup && stops[j].RiderID == stops[i].RiderID {
				pickupSeen = true
				break
			}
		}
		if pickupSeen {
			continue
		}
		for j := i + 1; j < len(stops); j++ {
			if stops[j].Type == models.StopPickup && stops[j].RiderID == stops[i].RiderID {
				pickup := stops[j]
				copy(stops[i+1:j+1], stops[i:j])
				stops[i] = pickup
				break
			}
		}
	}
	return stops
}
