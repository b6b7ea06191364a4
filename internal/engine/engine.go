// Package engine is the seam between the pure matching core and the
// injected I/O: it pre-filters candidates from storage, hydrates route
// polylines through the cache, then runs matching, pooling and
// multi-driver dispatch. Storage or cache failures degrade to smaller
// candidate sets; they never abort a dispatch round.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/zekka-tech/Klubz-sub003/internal/cache"
	"github.com/zekka-tech/Klubz-sub003/internal/config"
	"github.com/zekka-tech/Klubz-sub003/internal/dispatch"
	"github.com/zekka-tech/Klubz-sub003/internal/geo"
	"github.com/zekka-tech/Klubz-sub003/internal/matcher"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
	"github.com/zekka-tech/Klubz-sub003/internal/observability"
	"github.com/zekka-tech/Klubz-sub003/internal/storage"
)

type Engine struct {
	Store          storage.TripStore
	Cache          cache.PolylineCache
	Config         config.MatchConfig
	Logger         *slog.Logger
	PrefilterLimit int
	CacheTTL       time.Duration
}

func New(store storage.TripStore, plCache cache.PolylineCache, cfg config.MatchConfig, logger *slog.Logger) *Engine {
	return &Engine{
		Store:          store,
		Cache:          plCache,
		Config:         cfg,
		Logger:         logger,
		PrefilterLimit: 200,
		CacheTTL:       30 * time.Minute,
	}
}

// FindCandidates narrows the trip population to spatially-plausible
// candidates for one rider: a padded bounding box over pickup and
// dropoff, seat and window constraints, capped and ordered by earliest
// departure. Returned trips have their route polyline hydrated.
func (e *Engine) FindCandidates(ctx context.Context, rider models.RiderRequest) ([]models.DriverTrip, error) {
	box := geo.BuildBoundingBox([]models.GeoPoint{rider.Pickup, rider.Dropoff})
	q := storage.CandidateQuery{
		Box:         geo.PadBoundingBox(box, e.Config.Thresholds.BoundingBoxPaddingDeg),
		MinSeats:    rider.SeatsNeeded,
		WindowStart: rider.EarliestDeparture,
		WindowEnd:   rider.LatestDeparture,
		Limit:       e.PrefilterLimit,
	}
	trips, err := e.Store.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}
	observability.PrefilterCandidates.Observe(float64(len(trips)))

	for i := range trips {
		e.hydratePolyline(ctx, &trips[i])
	}
	return trips, nil
}

// hydratePolyline fills RoutePolyline from the cache, then from the
// stored encoded form, then falls back to the degraded two-point route
// between departure and destination.
func (e *Engine) hydratePolyline(ctx context.Context, trip *models.DriverTrip) {
	if len(trip.RoutePolyline) >= 2 {
		return
	}
	if e.Cache != nil {
		if points, ok := e.Cache.Get(ctx, trip.ID); ok {
			observability.PolylineCacheHits.Inc()
			trip.RoutePolyline = points
			return
		}
		observability.PolylineCacheMisses.Inc()
	}
	if trip.EncodedPolyline != "" {
		if points := geo.DecodePolyline(trip.EncodedPolyline); len(points) >= 2 {
			trip.RoutePolyline = points
			if e.Cache != nil {
				e.Cache.Put(ctx, trip.ID, points, e.CacheTTL)
			}
			return
		}
	}
	trip.RoutePolyline = []models.GeoPoint{trip.Departure, trip.Destination}
}

// MatchRider runs pre-filter plus the three-phase pipeline for one
// rider.
func (e *Engine) MatchRider(ctx context.Context, rider models.RiderRequest) (matcher.Result, error) {
	candidates, err := e.FindCandidates(ctx, rider)
	if err != nil {
		return matcher.Result{}, err
	}
	res := matcher.MatchRiderToDrivers(rider, candidates, e.Config)
	observability.MatchLatency.Observe(res.Stats.Elapsed.Seconds())
	observability.MatchesTotal.Add(float64(res.Stats.Matches))
	return res, nil
}

// RunDispatch executes a full round over a set of pending riders:
// match each rider, pool per driver, then resolve riders who qualified
// on multiple drivers down to their best assignment. A failing
// pre-filter for one rider drops that rider from the round only.
func (e *Engine) RunDispatch(ctx context.Context, riders []models.RiderRequest) map[string]dispatch.Assignment {
	start := time.Now()

	matchesByRider := make(map[string][]models.MatchResult, len(riders))
	tripsByID := make(map[string]models.DriverTrip)
	riderStops := make(map[string]models.RiderStops, len(riders))

	for _, rider := range riders {
		candidates, err := e.FindCandidates(ctx, rider)
		if err != nil {
			e.Logger.Warn("prefilter failed, skipping rider",
				"rider_request_id", rider.ID, "error", err)
			continue
		}
		res := matcher.MatchRiderToDrivers(rider, candidates, e.Config)
		observability.MatchLatency.Observe(res.Stats.Elapsed.Seconds())
		if len(res.Matches) == 0 {
			continue
		}
		matchesByRider[rider.RiderID] = res.Matches
		riderStops[rider.RiderID] = models.RiderStops{
			Pickup:      rider.Pickup,
			Dropoff:     rider.Dropoff,
			SeatsNeeded: rider.SeatsNeeded,
		}
		for _, c := range candidates {
			tripsByID[c.ID] = c
		}
	}

	assignments := dispatch.AssignRidersToDrivers(matchesByRider, tripsByID, riderStops, e.Config)

	pools := make(map[string]struct{})
	for _, a := range assignments {
		pools[a.Pool.TripID] = struct{}{}
	}
	observability.DispatchRounds.Inc()
	observability.DispatchLatency.Observe(time.Since(start).Seconds())
	observability.PoolsBuilt.Add(float64(len(pools)))
	observability.RidersPooled.Add(float64(len(assignments)))

	e.Logger.Info("dispatch round complete",
		"riders", len(riders),
		"assigned", len(assignments),
		"pools", len(pools),
		"duration_ms", time.Since(start).Milliseconds())
	return assignments
}
