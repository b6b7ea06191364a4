package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

// PostgresStore serves the spatial pre-filter from Postgres. The
// candidate query leans on the composite bbox/departure index created
// by the migration; it always carries a LIMIT so a pathological box can
// never turn into an unbounded scan.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.DriverTrip, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, driver_id,
		       departure_lat, departure_lng, destination_lat, destination_lng,
		       shift_lat, shift_lng,
		       departure_time, arrival_time,
		       available_seats, total_seats,
		       encoded_polyline, route_distance_km,
		       bbox_min_lat, bbox_max_lat, bbox_min_lng, bbox_max_lng,
		       status, driver_rating, organization_id
		FROM driver_trips
		WHERE bbox_min_lat <= $1 AND bbox_max_lat >= $2
		  AND bbox_min_lng <= $3 AND bbox_max_lng >= $4
		  AND available_seats >= $5
		  AND status IN ('offered', 'active')
		  AND departure_time BETWEEN $6 AND $7
		ORDER BY departure_time ASC, id ASC
		LIMIT $8`,
		q.Box.MaxLat, q.Box.MinLat, q.Box.MaxLng, q.Box.MinLng,
		q.MinSeats, q.WindowStart, q.WindowEnd, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DriverTrip
	for rows.Next() {
		var t models.DriverTrip
		var shiftLat, shiftLng, rating, routeKm sql.NullFloat64
		var encoded, orgID sql.NullString
		var box models.BoundingBox
		if err := rows.Scan(
			&t.ID, &t.DriverID,
			&t.Departure.Lat, &t.Departure.Lng, &t.Destination.Lat, &t.Destination.Lng,
			&shiftLat, &shiftLng,
			&t.DepartureTime, &t.ArrivalTime,
			&t.AvailableSeats, &t.TotalSeats,
			&encoded, &routeKm,
			&box.MinLat, &box.MaxLat, &box.MinLng, &box.MaxLng,
			&t.Status, &rating, &orgID,
		); err != nil {
			return nil, err
		}
		if shiftLat.Valid && shiftLng.Valid {
			t.ShiftLocation = &models.GeoPoint{Lat: shiftLat.Float64, Lng: shiftLng.Float64}
		}
		t.EncodedPolyline = encoded.String
		t.RouteDistanceKm = routeKm.Float64
		t.DriverRating = rating.Float64
		t.OrganizationID = orgID.String
		t.BoundingBox = &box
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListPendingRiders(ctx context.Context, limit int) ([]models.RiderRequest, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, rider_id,
		       pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
		       earliest_departure, latest_departure,
		       seats_needed, status,
		       max_walk_distance_km, max_detour_minutes, min_driver_rating,
		       organization_id
		FROM rider_requests
		WHERE status = 'pending'
		ORDER BY earliest_departure ASC, id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RiderRequest
	for rows.Next() {
		var r models.RiderRequest
		var maxWalk, maxDetour, minRating sql.NullFloat64
		var orgID sql.NullString
		if err := rows.Scan(
			&r.ID, &r.RiderID,
			&r.Pickup.Lat, &r.Pickup.Lng, &r.Dropoff.Lat, &r.Dropoff.Lng,
			&r.EarliestDeparture, &r.LatestDeparture,
			&r.SeatsNeeded, &r.Status,
			&maxWalk, &maxDetour, &minRating,
			&orgID,
		); err != nil {
			return nil, err
		}
		if maxWalk.Valid || maxDetour.Valid || minRating.Valid {
			r.Preferences = &models.RiderPreferences{
				MaxWalkDistanceKm: maxWalk.Float64,
				MaxDetourMinutes:  maxDetour.Float64,
				MinDriverRating:   minRating.Float64,
			}
		}
		r.OrganizationID = orgID.String
		out = append(out, r)
	}
	return out, rows.Err()
}
