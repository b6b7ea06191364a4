package storage

import (
	"context"
	"testing"

	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

func seedTrip(id string, departureTime int64, seats int, status models.TripStatus) models.DriverTrip {
	return models.DriverTrip{
		ID:             id,
		DriverID:       "d-" + id,
		Departure:      models.GeoPoint{Lat: -26.21, Lng: 28.04},
		Destination:    models.GeoPoint{Lat: -26.10, Lng: 28.07},
		DepartureTime:  departureTime,
		AvailableSeats: seats,
		TotalSeats:     4,
		Status:         status,
	}
}

func johannesburgQuery(limit int) CandidateQuery {
	return CandidateQuery{
		Box:         models.BoundingBox{MinLat: -26.30, MaxLat: -26.00, MinLng: 27.95, MaxLng: 28.15},
		MinSeats:    1,
		WindowStart: 1000,
		WindowEnd:   5000,
		Limit:       limit,
	}
}

func TestMemoryStore_FindCandidates(t *testing.T) {
	s := NewMemoryStore()
	s.UpsertTrip(seedTrip("late", 9000, 4, models.TripOffered))   // outside window
	s.UpsertTrip(seedTrip("full", 2000, 0, models.TripOffered))   // no seats
	s.UpsertTrip(seedTrip("done", 2000, 4, models.TripCompleted)) // wrong status
	s.UpsertTrip(seedTrip("b", 3000, 4, models.TripActive))
	s.UpsertTrip(seedTrip("a", 2000, 4, models.TripOffered))

	far := seedTrip("far", 2000, 4, models.TripOffered)
	far.Departure = models.GeoPoint{Lat: 10, Lng: 10}
	far.Destination = models.GeoPoint{Lat: 11, Lng: 11}
	s.UpsertTrip(far)

	got, err := s.FindCandidates(context.Background(), johannesburgQuery(10))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	// ordered by earliest departure
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestMemoryStore_FindCandidatesCap(t *testing.T) {
	s := NewMemoryStore()
	s.UpsertTrip(seedTrip("a", 2000, 4, models.TripOffered))
	s.UpsertTrip(seedTrip("b", 3000, 4, models.TripOffered))
	s.UpsertTrip(seedTrip("c", 4000, 4, models.TripOffered))

	got, err := s.FindCandidates(context.Background(), johannesburgQuery(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("cap not applied: got %d", len(got))
	}
}

func TestMemoryStore_BoundingBoxComputedOnUpsert(t *testing.T) {
	s := NewMemoryStore()
	s.UpsertTrip(seedTrip("a", 2000, 4, models.TripOffered))
	got, err := s.FindCandidates(context.Background(), johannesburgQuery(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].BoundingBox == nil {
		t.Fatal("trip should carry a computed bounding box")
	}
	box := got[0].BoundingBox
	if box.MinLat > box.MaxLat || box.MinLng > box.MaxLng {
		t.Errorf("invalid box %+v", box)
	}
}

func TestMemoryStore_ListPendingRiders(t *testing.T) {
	s := NewMemoryStore()
	s.UpsertRider(models.RiderRequest{ID: "r2", EarliestDeparture: 200, Status: models.RequestPending})
	s.UpsertRider(models.RiderRequest{ID: "r1", EarliestDeparture: 100, Status: models.RequestPending})
	s.UpsertRider(models.RiderRequest{ID: "r3", EarliestDeparture: 50, Status: models.RequestMatched})

	got, err := s.ListPendingRiders(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pending riders, got %d", len(got))
	}
	if got[0].ID != "r1" || got[1].ID != "r2" {
		t.Errorf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}
