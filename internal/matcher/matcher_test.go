package matcher

import (
	"testing"

	"github.com/zekka-tech/Klubz-sub003/internal/config"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

const baseTime = int64(1_700_000_000_000) // epoch ms

func testRider() models.RiderRequest {
	return models.RiderRequest{
		ID:                "req-1",
		RiderID:           "rider-1",
		Pickup:            models.GeoPoint{Lat: -26.20, Lng: 28.05},
		Dropoff:           models.GeoPoint{Lat: -26.11, Lng: 28.06},
		EarliestDeparture: baseTime,
		LatestDeparture:   baseTime + 1_200_000,
		SeatsNeeded:       1,
		Status:            models.RequestPending,
	}
}

func testTrip() models.DriverTrip {
	return models.DriverTrip{
		ID:             "trip-1",
		DriverID:       "driver-1",
		Departure:      models.GeoPoint{Lat: -26.21, Lng: 28.04},
		Destination:    models.GeoPoint{Lat: -26.10, Lng: 28.07},
		DepartureTime:  baseTime + 300_000,
		ArrivalTime:    baseTime + 2_100_000,
		AvailableSeats: 4,
		TotalSeats:     4,
		RoutePolyline: []models.GeoPoint{
			{Lat: -26.21, Lng: 28.04},
			{Lat: -26.10, Lng: 28.07},
		},
		Status: models.TripOffered,
	}
}

func TestMatch_SingleCompatibleDriver(t *testing.T) {
	res := MatchRiderToDrivers(testRider(), []models.DriverTrip{testTrip()}, config.DefaultMatchConfig())

	if len(res.Matches) != 1 {
		t.Fatalf("expected exactly one match, got %d (stats %+v)", len(res.Matches), res.Stats)
	}
	m := res.Matches[0]
	if m.Score <= 0 {
		t.Errorf("expected nonzero score, got %f", m.Score)
	}
	if m.EstimatedDetourMinutes < 0 {
		t.Errorf("detour minutes must be >= 0, got %f", m.EstimatedDetourMinutes)
	}
	if m.TripID != "trip-1" || m.RiderID != "rider-1" {
		t.Errorf("match identity wrong: %+v", m)
	}
	if m.Explanation == "" {
		t.Error("expected a human-readable explanation")
	}
	if res.Stats.PassedPhase1 != 1 || res.Stats.PassedPhase2 != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestMatch_NoSeatsRejectedInPhase1(t *testing.T) {
	trip := testTrip()
	trip.AvailableSeats = 0
	res := MatchRiderToDrivers(testRider(), []models.DriverTrip{trip}, config.DefaultMatchConfig())

	if len(res.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(res.Matches))
	}
	if res.Stats.PassedPhase1 != 0 {
		t.Errorf("passedPhase1 = %d, want 0", res.Stats.PassedPhase1)
	}
}

func TestMatch_SeatsBelowNeededAlwaysRejected(t *testing.T) {
	rider := testRider()
	rider.SeatsNeeded = 3
	trip := testTrip()
	trip.AvailableSeats = 2
	res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig())
	if res.Stats.PassedPhase1 != 0 {
		t.Errorf("seat shortfall must reject in phase 1 regardless of geometry, stats %+v", res.Stats)
	}
}

func TestMatch_BoundingBoxMismatchRejectedInPhase1(t *testing.T) {
	trip := testTrip()
	trip.BoundingBox = &models.BoundingBox{MinLat: 10, MaxLat: 11, MinLng: 10, MaxLng: 11}
	res := MatchRiderToDrivers(testRider(), []models.DriverTrip{trip}, config.DefaultMatchConfig())

	if len(res.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(res.Matches))
	}
	if res.Stats.PassedPhase1 != 0 {
		t.Errorf("bbox mismatch must reject in phase 1, stats %+v", res.Stats)
	}
}

func TestMatch_DepartureOutsideWindow(t *testing.T) {
	trip := testTrip()
	trip.DepartureTime = baseTime + 2_000_000
	res := MatchRiderToDrivers(testRider(), []models.DriverTrip{trip}, config.DefaultMatchConfig())
	if res.Stats.PassedPhase1 != 0 {
		t.Errorf("late departure must reject in phase 1")
	}
}

func TestMatch_OrganizationScoping(t *testing.T) {
	rider := testRider()
	rider.OrganizationID = "org-a"
	trip := testTrip()
	trip.OrganizationID = "org-b"
	if res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig()); res.Stats.PassedPhase1 != 0 {
		t.Error("mismatched organizations must reject")
	}

	// one side unscoped: match allowed
	trip.OrganizationID = ""
	if res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig()); len(res.Matches) != 1 {
		t.Error("unscoped trip should remain matchable")
	}
}

func TestMatch_MinDriverRatingPreference(t *testing.T) {
	rider := testRider()
	rider.Preferences = &models.RiderPreferences{MinDriverRating: 4.5}

	trip := testTrip()
	trip.DriverRating = 3.9
	if res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig()); res.Stats.PassedPhase1 != 0 {
		t.Error("low-rated driver must reject against a rating preference")
	}

	// unrated drivers are not filtered by the preference
	trip.DriverRating = 0
	if res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig()); len(res.Matches) != 1 {
		t.Error("unrated driver should pass the rating filter")
	}
}

func TestMatch_WrongDirectionRejected(t *testing.T) {
	rider := testRider()
	// swap pickup and dropoff: rider now travels against the route
	rider.Pickup, rider.Dropoff = rider.Dropoff, rider.Pickup

	trip := testTrip()
	// multi-segment route so pickup and dropoff land on distinct segments
	trip.RoutePolyline = []models.GeoPoint{
		{Lat: -26.21, Lng: 28.04},
		{Lat: -26.155, Lng: 28.055},
		{Lat: -26.10, Lng: 28.07},
	}
	res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig())
	if len(res.Matches) != 0 {
		t.Fatal("wrong-direction rider must be rejected in phase 2")
	}
	if res.Stats.PassedPhase1 != 1 {
		t.Errorf("rejection should happen in phase 2, stats %+v", res.Stats)
	}
}

func TestMatch_WalkDistanceExceeded(t *testing.T) {
	rider := testRider()
	rider.Pickup = models.GeoPoint{Lat: -26.20, Lng: 28.50} // ~45km east of the route
	res := MatchRiderToDrivers(rider, []models.DriverTrip{testTrip()}, config.DefaultMatchConfig())
	if res.Stats.PassedPhase2 != 0 {
		t.Error("far pickup must fail route compatibility")
	}
}

func TestMatch_EndpointFallbackWithoutPolyline(t *testing.T) {
	trip := testTrip()
	trip.RoutePolyline = nil
	rider := testRider()
	// place rider near the trip endpoints so the fallback accepts
	rider.Pickup = models.GeoPoint{Lat: -26.205, Lng: 28.045}
	rider.Dropoff = models.GeoPoint{Lat: -26.105, Lng: 28.065}

	res := MatchRiderToDrivers(rider, []models.DriverTrip{trip}, config.DefaultMatchConfig())
	if len(res.Matches) != 1 {
		t.Fatalf("endpoint fallback should match, stats %+v", res.Stats)
	}
	if res.Matches[0].Breakdown.DetourCost != 0 {
		t.Error("no polyline means detour cost sub-score 0")
	}
}

func TestMatch_SortedAscendingAndCapped(t *testing.T) {
	cfg := config.DefaultMatchConfig()
	cfg.MaxResults = 2

	trips := make([]models.DriverTrip, 0, 4)
	for i, offsetMin := range []int64{2, 25, 9, 16} {
		trip := testTrip()
		trip.ID = string(rune('a' + i))
		trip.DepartureTime = baseTime + offsetMin*60_000
		trips = append(trips, trip)
	}

	res := MatchRiderToDrivers(testRider(), trips, cfg)
	if len(res.Matches) != 2 {
		t.Fatalf("expected cap at 2 matches, got %d", len(res.Matches))
	}
	if res.Matches[0].Score > res.Matches[1].Score {
		t.Errorf("matches not ascending: %f then %f", res.Matches[0].Score, res.Matches[1].Score)
	}
	for _, m := range res.Matches {
		if m.Score < 0 {
			t.Errorf("score must be >= 0, got %f", m.Score)
		}
	}
	// the closest departure time scores best
	if res.Matches[0].TripID != "a" {
		t.Errorf("best match should be trip a, got %s", res.Matches[0].TripID)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	trips := []models.DriverTrip{testTrip()}
	trip2 := testTrip()
	trip2.ID = "trip-2"
	trip2.DepartureTime = baseTime + 600_000
	trips = append(trips, trip2)

	first := MatchRiderToDrivers(testRider(), trips, config.DefaultMatchConfig())
	second := MatchRiderToDrivers(testRider(), trips, config.DefaultMatchConfig())
	if len(first.Matches) != len(second.Matches) {
		t.Fatal("match count differs between runs")
	}
	for i := range first.Matches {
		if first.Matches[i].TripID != second.Matches[i].TripID || first.Matches[i].Score != second.Matches[i].Score {
			t.Errorf("run %d differs: %+v vs %+v", i, first.Matches[i], second.Matches[i])
		}
	}
}

func TestMatch_MalformedCandidateDoesNotAbortOthers(t *testing.T) {
	broken := testTrip()
	broken.ID = "broken"
	broken.RoutePolyline = []models.GeoPoint{} // no geometry at all
	broken.Departure = models.GeoPoint{}
	broken.Destination = models.GeoPoint{}

	res := MatchRiderToDrivers(testRider(), []models.DriverTrip{broken, testTrip()}, config.DefaultMatchConfig())
	if len(res.Matches) != 1 || res.Matches[0].TripID != "trip-1" {
		t.Fatalf("healthy candidate must still match, got %+v", res.Matches)
	}
}

func TestMatch_DetourBudgetGate(t *testing.T) {
	rider := testRider()
	rider.Preferences = &models.RiderPreferences{MaxDetourMinutes: 0.5}
	res := MatchRiderToDrivers(rider, []models.DriverTrip{testTrip()}, config.DefaultMatchConfig())
	if len(res.Matches) != 0 {
		t.Error("tight detour budget should gate the match out after scoring")
	}
	if res.Stats.PassedPhase2 != 1 {
		t.Errorf("gate applies after phase 2, stats %+v", res.Stats)
	}
}

func TestBatchMatchRiders_Independent(t *testing.T) {
	riderA := testRider()
	riderB := testRider()
	riderB.ID = "req-2"
	riderB.RiderID = "rider-2"

	out := BatchMatchRiders([]models.RiderRequest{riderA, riderB}, []models.DriverTrip{testTrip()}, config.DefaultMatchConfig())
	if len(out) != 2 {
		t.Fatalf("expected results for both riders, got %d", len(out))
	}
	// no cross-rider interaction: both riders see the same trip
	if len(out["req-1"].Matches) != 1 || len(out["req-2"].Matches) != 1 {
		t.Error("both riders should match the shared trip at this stage")
	}
}
