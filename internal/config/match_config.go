package config

// UrbanSpeedKmh is the fixed urban-average speed used to convert detour
// kilometres into minutes. Matching does not consult live traffic.
const UrbanSpeedKmh = 30.0

// Weights is the scoring weight vector. The seven components correspond
// one-to-one to ScoreBreakdown fields and conceptually sum to 1.0.
type Weights struct {
	PickupDistance   float64 `json:"pickup_distance"`
	DropoffDistance  float64 `json:"dropoff_distance"`
	TimeAlignment    float64 `json:"time_alignment"`
	SeatAvailability float64 `json:"seat_availability"`
	ShiftAlignment   float64 `json:"shift_alignment"`
	DetourCost       float64 `json:"detour_cost"`
	DriverRating     float64 `json:"driver_rating"`
}

// Thresholds holds the hard limits and normalization constants of the
// matching pipeline.
type Thresholds struct {
	MaxPickupDistanceKm    float64 `json:"max_pickup_distance_km"`
	MaxDropoffDistanceKm   float64 `json:"max_dropoff_distance_km"`
	MaxTimeDiffMinutes     float64 `json:"max_time_diff_minutes"`
	BoundingBoxPaddingDeg  float64 `json:"bounding_box_padding_deg"`
	MaxDetourFraction      float64 `json:"max_detour_fraction"`
	MaxDetourMinutes       float64 `json:"max_detour_minutes"`
	DefaultRouteDistanceKm float64 `json:"default_route_distance_km"`
}

// OptimizerParams bounds the pool optimizer.
type OptimizerParams struct {
	MaxRidersPerPool int     `json:"max_riders_per_pool"`
	MaxPoolDetourKm  float64 `json:"max_pool_detour_km"`
}

// MatchConfig is the full tunable configuration of the matching core.
// Core algorithms take it as an explicit argument; nothing is read from
// globals, so organization-scoped variants can coexist in one process.
type MatchConfig struct {
	Weights    Weights         `json:"weights"`
	Thresholds Thresholds      `json:"thresholds"`
	Optimizer  OptimizerParams `json:"optimizer"`
	MaxResults int             `json:"max_results"`
}

// DefaultMatchConfig returns the complete baseline configuration. Every
// field is enumerated here; overrides are merged over these values so a
// partial override can never leave a weight or threshold undefined.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Weights: Weights{
			PickupDistance:   0.25,
			DropoffDistance:  0.15,
			TimeAlignment:    0.15,
			SeatAvailability: 0.10,
			ShiftAlignment:   0.10,
			DetourCost:       0.15,
			DriverRating:     0.10,
		},
		Thresholds: Thresholds{
			MaxPickupDistanceKm:    2.0,
			MaxDropoffDistanceKm:   2.0,
			MaxTimeDiffMinutes:     30,
			BoundingBoxPaddingDeg:  0.05,
			MaxDetourFraction:      0.25,
			MaxDetourMinutes:       15,
			DefaultRouteDistanceKm: 20,
		},
		Optimizer: OptimizerParams{
			MaxRidersPerPool: 4,
			MaxPoolDetourKm:  10,
		},
		MaxResults: 10,
	}
}

// MatchOverrides is a partial MatchConfig. Nil fields keep the base
// value; the struct is deliberately explicit rather than a dynamic map
// so every tunable is discoverable and typed.
type MatchOverrides struct {
	Weights    *WeightsOverrides    `json:"weights,omitempty"`
	Thresholds *ThresholdsOverrides `json:"thresholds,omitempty"`
	Optimizer  *OptimizerOverrides  `json:"optimizer,omitempty"`
	MaxResults *int                 `json:"max_results,omitempty"`
}

type WeightsOverrides struct {
	PickupDistance   *float64 `json:"pickup_distance,omitempty"`
	DropoffDistance  *float64 `json:"dropoff_distance,omitempty"`
	TimeAlignment    *float64 `json:"time_alignment,omitempty"`
	SeatAvailability *float64 `json:"seat_availability,omitempty"`
	ShiftAlignment   *float64 `json:"shift_alignment,omitempty"`
	DetourCost       *float64 `json:"detour_cost,omitempty"`
	DriverRating     *float64 `json:"driver_rating,omitempty"`
}

type ThresholdsOverrides struct {
	MaxPickupDistanceKm    *float64 `json:"max_pickup_distance_km,omitempty"`
	MaxDropoffDistanceKm   *float64 `json:"max_dropoff_distance_km,omitempty"`
	MaxTimeDiffMinutes     *float64 `json:"max_time_diff_minutes,omitempty"`
	BoundingBoxPaddingDeg  *float64 `json:"bounding_box_padding_deg,omitempty"`
	MaxDetourFraction      *float64 `json:"max_detour_fraction,omitempty"`
	MaxDetourMinutes       *float64 `json:"max_detour_minutes,omitempty"`
	DefaultRouteDistanceKm *float64 `json:"default_route_distance_km,omitempty"`
}

type OptimizerOverrides struct {
	MaxRidersPerPool *int     `json:"max_riders_per_pool,omitempty"`
	MaxPoolDetourKm  *float64 `json:"max_pool_detour_km,omitempty"`
}

// Merge applies a partial override field-by-field over base and returns
// the resulting complete config. base is not modified.
func Merge(base MatchConfig, o *MatchOverrides) MatchConfig {
	if o == nil {
		return base
	}
	cfg := base
	if w := o.Weights; w != nil {
		setFloat(&cfg.Weights.PickupDistance, w.PickupDistance)
		setFloat(&cfg.Weights.DropoffDistance, w.DropoffDistance)
		setFloat(&cfg.Weights.TimeAlignment, w.TimeAlignment)
		setFloat(&cfg.Weights.SeatAvailability, w.SeatAvailability)
		setFloat(&cfg.Weights.ShiftAlignment, w.ShiftAlignment)
		setFloat(&cfg.Weights.DetourCost, w.DetourCost)
		setFloat(&cfg.Weights.DriverRating, w.DriverRating)
	}
	if t := o.Thresholds; t != nil {
		setFloat(&cfg.Thresholds.MaxPickupDistanceKm, t.MaxPickupDistanceKm)
		setFloat(&cfg.Thresholds.MaxDropoffDistanceKm, t.MaxDropoffDistanceKm)
		setFloat(&cfg.Thresholds.MaxTimeDiffMinutes, t.MaxTimeDiffMinutes)
		setFloat(&cfg.Thresholds.BoundingBoxPaddingDeg, t.BoundingBoxPaddingDeg)
		setFloat(&cfg.Thresholds.MaxDetourFraction, t.MaxDetourFraction)
		setFloat(&cfg.Thresholds.MaxDetourMinutes, t.MaxDetourMinutes)
		setFloat(&cfg.Thresholds.DefaultRouteDistanceKm, t.DefaultRouteDistanceKm)
	}
	if p := o.Optimizer; p != nil {
		setInt(&cfg.Optimizer.MaxRidersPerPool, p.MaxRidersPerPool)
		setFloat(&cfg.Optimizer.MaxPoolDetourKm, p.MaxPoolDetourKm)
	}
	setInt(&cfg.MaxResults, o.MaxResults)
	return cfg
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
