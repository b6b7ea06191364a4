package models

// GeoPoint is a WGS-84 coordinate in decimal degrees.
// Range validation happens upstream; the core tolerates anything.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox is an axis-aligned envelope in degree space.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// TripStatus is the lifecycle state of an offered driver trip.
type TripStatus string

const (
	TripOffered   TripStatus = "offered"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
	TripExpired   TripStatus = "expired"
)

// RequestStatus is the lifecycle state of a rider request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestMatched    RequestStatus = "matched"
	RequestConfirmed  RequestStatus = "confirmed"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
	RequestExpired    RequestStatus = "expired"
)

// DriverTrip is an offered ride. Geometry is fixed at creation time;
// only seats and status mutate over the trip's lifecycle. The matching
// core never mutates a DriverTrip — outputs are independent values.
type DriverTrip struct {
	ID              string       `json:"id"`
	DriverID        string       `json:"driver_id"`
	Departure       GeoPoint     `json:"departure"`
	Destination     GeoPoint     `json:"destination"`
	ShiftLocation   *GeoPoint    `json:"shift_location,omitempty"`
	DepartureTime   int64        `json:"departure_time"` // epoch ms
	ArrivalTime     int64        `json:"arrival_time"`   // epoch ms
	AvailableSeats  int          `json:"available_seats"`
	TotalSeats      int          `json:"total_seats"`
	RoutePolyline   []GeoPoint   `json:"route_polyline,omitempty"`
	EncodedPolyline string       `json:"encoded_polyline,omitempty"` // stored wire form; decoded lazily
	BoundingBox     *BoundingBox `json:"bounding_box,omitempty"`
	RouteDistanceKm float64      `json:"route_distance_km,omitempty"` // 0 = unknown
	Status          TripStatus   `json:"status"`
	DriverRating    float64      `json:"driver_rating,omitempty"` // 0 = unrated, else 1.0..5.0
	OrganizationID  string       `json:"organization_id,omitempty"`
}

// RiderPreferences narrows matching on a per-rider basis. Zero values
// mean "no preference" and fall back to the configured defaults.
type RiderPreferences struct {
	MaxWalkDistanceKm float64 `json:"max_walk_distance_km,omitempty"`
	MaxDetourMinutes  float64 `json:"max_detour_minutes,omitempty"`
	MinDriverRating   float64 `json:"min_driver_rating,omitempty"`
	GenderPreference  string  `json:"gender_preference,omitempty"`
}

// RiderRequest is a pending pickup request.
type RiderRequest struct {
	ID                string            `json:"id"`
	RiderID           string            `json:"rider_id"`
	Pickup            GeoPoint          `json:"pickup"`
	Dropoff           GeoPoint          `json:"dropoff"`
	EarliestDeparture int64             `json:"earliest_departure"` // epoch ms
	LatestDeparture   int64             `json:"latest_departure"`   // epoch ms
	SeatsNeeded       int               `json:"seats_needed"`
	Status            RequestStatus     `json:"status"`
	Preferences       *RiderPreferences `json:"preferences,omitempty"`
	OrganizationID    string            `json:"organization_id,omitempty"`
}

// ScoreBreakdown records every scoring sub-component of a match so a
// composite score can be audited after the fact. All values are in
// [0,1]; lower is better.
type ScoreBreakdown struct {
	PickupDistance   float64 `json:"pickup_distance"`
	DropoffDistance  float64 `json:"dropoff_distance"`
	TimeAlignment    float64 `json:"time_alignment"`
	SeatAvailability float64 `json:"seat_availability"`
	ShiftAlignment   float64 `json:"shift_alignment"`
	DetourCost       float64 `json:"detour_cost"`
	DriverRating     float64 `json:"driver_rating"`
}

// MatchResult scores one (rider, driver trip) pair. Lower score is
// better. Results are ephemeral and recomputed on demand; persistence
// is the caller's concern.
type MatchResult struct {
	RiderRequestID         string         `json:"rider_request_id"`
	RiderID                string         `json:"rider_id"`
	TripID                 string         `json:"trip_id"`
	DriverID               string         `json:"driver_id"`
	Score                  float64        `json:"score"`
	Explanation            string         `json:"explanation"`
	Breakdown              ScoreBreakdown `json:"breakdown"`
	EstimatedPickupTime    int64          `json:"estimated_pickup_time"` // epoch ms
	EstimatedDetourKm      float64        `json:"estimated_detour_km"`
	EstimatedDetourMinutes float64        `json:"estimated_detour_minutes"`
	CarbonSavedKg          float64        `json:"carbon_saved_kg"`
}

// StopType distinguishes pickup from dropoff entries in an ordered
// stop sequence.
type StopType string

const (
	StopPickup  StopType = "pickup"
	StopDropoff StopType = "dropoff"
)

// Stop is one entry in a pool's ordered stop sequence.
type Stop struct {
	Type               StopType `json:"type"`
	RiderID            string   `json:"rider_id"`
	Location           GeoPoint `json:"location"`
	DistanceFromPrevKm float64  `json:"distance_from_prev_km"` // 0 for the first stop
}

// RiderStops carries a rider's pickup and dropoff locations, keyed by
// rider id in the optimizer and dispatch inputs. SeatsNeeded of zero is
// treated as one seat.
type RiderStops struct {
	Pickup      GeoPoint `json:"pickup"`
	Dropoff     GeoPoint `json:"dropoff"`
	SeatsNeeded int      `json:"seats_needed,omitempty"`
}

// PoolAssignment is the optimizer's output for one driver: the riders
// accepted onto the trip and the stop order serving them.
type PoolAssignment struct {
	TripID         string        `json:"trip_id"`
	DriverID       string        `json:"driver_id"`
	Matches        []MatchResult `json:"matches"`
	TotalScore     float64       `json:"total_score"`
	AverageScore   float64       `json:"average_score"`
	SeatsUsed      int           `json:"seats_used"`
	SeatsRemaining int           `json:"seats_remaining"`
	DetourKm       float64       `json:"detour_km"`
	DetourMinutes  float64       `json:"detour_minutes"`
	CarbonSavedKg  float64       `json:"carbon_saved_kg"`
	OrderedStops   []Stop        `json:"ordered_stops"`
}
