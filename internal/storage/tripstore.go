package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/zekka-tech/Klubz-sub003/internal/geo"
	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// CandidateQuery is the spatial pre-filter contract: an already-padded
// bounding box, a seat floor, a departure window and a result cap.
type CandidateQuery struct {
	Box         models.BoundingBox
	MinSeats    int
	WindowStart int64 // epoch ms
	WindowEnd   int64 // epoch ms
	Limit       int
}

// TripStore defines the persistence operations the matching pipeline
// depends on. FindCandidates is the single most latency-sensitive query
// in the system: implementations must serve it from an index and cap
// results rather than scan unbounded rows.
type TripStore interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.DriverTrip, error)
	ListPendingRiders(ctx context.Context, limit int) ([]models.RiderRequest, error)
}

// MemoryStore is a mutex-guarded in-memory TripStore for tests and
// local runs without Postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	trips  map[string]models.DriverTrip
	riders map[string]models.RiderRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:  make(map[string]models.DriverTrip),
		riders: make(map[string]models.RiderRequest),
	}
}

func (m *MemoryStore) UpsertTrip(t models.DriverTrip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.BoundingBox == nil {
		box := geo.BuildBoundingBox(t.RoutePolyline)
		if len(t.RoutePolyline) == 0 {
			box = geo.BuildBoundingBox([]models.GeoPoint{t.Departure, t.Destination})
		}
		t.BoundingBox = &box
	}
	m.trips[t.ID] = t
}

func (m *MemoryStore) UpsertRider(r models.RiderRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[r.ID] = r
}

func (m *MemoryStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.DriverTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DriverTrip, 0)
	for _, t := range m.trips {
		if t.Status != models.TripOffered && t.Status != models.TripActive {
			continue
		}
		if t.AvailableSeats < q.MinSeats {
			continue
		}
		if t.DepartureTime < q.WindowStart || t.DepartureTime > q.WindowEnd {
			continue
		}
		if t.BoundingBox != nil && !geo.BoxesOverlap(*t.BoundingBox, q.Box) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureTime != out[j].DepartureTime {
			return out[i].DepartureTime < out[j].DepartureTime
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) ListPendingRiders(ctx context.Context, limit int) ([]models.RiderRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.RiderRequest, 0)
	for _, r := range m.riders {
		if r.Status == models.RequestPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EarliestDeparture != out[j].EarliestDeparture {
			return out[i].EarliestDeparture < out[j].EarliestDeparture
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
