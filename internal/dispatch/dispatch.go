// Package dispatch orchestrates matching and pooling across many riders
// and many drivers at once. It has no persistent side effects: the
// caller owns the actual seat reservation and status transitions.
package dispatch

import (
	"sort"

	"github.com/zekka-tech/Klubz-sub003/internal/config"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
	"github.com/zekka-tech/Klubz-sub003/internal/pool"
)

// Assignment pairs the pool a rider ended up in with their individual
// match on that pool's trip.
type Assignment struct {
	Pool  *models.PoolAssignment `json:"pool"`
	Match models.MatchResult     `json:"match"`
}

// AssignRidersToDrivers groups per-rider match lists by driver trip,
// builds a pool per trip, then resolves the case where one rider
// qualifies for pools on multiple drivers by keeping only their
// best-scoring (numerically lowest) occurrence. Iteration order is
// fixed so identical inputs produce identical assignments.
func AssignRidersToDrivers(matchesByRider map[string][]models.MatchResult, tripsByID map[string]models.DriverTrip, riderStops map[string]models.RiderStops, cfg config.MatchConfig) map[string]Assignment {
	byTrip := make(map[string][]models.MatchResult)
	for _, matches := range matchesByRider {
		for _, m := range matches {
			byTrip[m.TripID] = append(byTrip[m.TripID], m)
		}
	}

	tripIDs := make([]string, 0, len(byTrip))
	for id := range byTrip {
		tripIDs = append(tripIDs, id)
	}
	sort.Strings(tripIDs)

	out := make(map[string]Assignment)
	for _, tripID := range tripIDs {
		trip, ok := tripsByID[tripID]
		if !ok {
			continue
		}
		ranked := dedupeBestPerRider(byTrip[tripID])
		p := pool.OptimizePool(trip, ranked, riderStops, cfg)
		if p == nil {
			continue
		}
		for _, m := range p.Matches {
			current, exists := out[m.RiderID]
			if !exists || m.Score < current.Match.Score ||
				(m.Score == current.Match.Score && m.TripID < current.Match.TripID) {
				out[m.RiderID] = Assignment{Pool: p, Match: m}
			}
		}
	}
	return out
}

// dedupeBestPerRider collapses duplicate rider entries within one
// trip's candidate list to the single best-scoring match, then sorts
// ascending by score as the optimizer expects.
func dedupeBestPerRider(matches []models.MatchResult) []models.MatchResult {
	best := make(map[string]models.MatchResult, len(matches))
	for _, m := range matches {
		if b, ok := best[m.RiderID]; !ok || m.Score < b.Score {
			best[m.RiderID] = m
		}
	}
	out := make([]models.MatchResult, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].RiderID < out[j].RiderID
	})
	return out
}
