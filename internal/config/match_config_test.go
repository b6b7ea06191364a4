package config

import (
	"math"
	"testing"
)

func TestDefaultMatchConfig_Complete(t *testing.T) {
	cfg := DefaultMatchConfig()

	sum := cfg.Weights.PickupDistance + cfg.Weights.DropoffDistance +
		cfg.Weights.TimeAlignment + cfg.Weights.SeatAvailability +
		cfg.Weights.ShiftAlignment + cfg.Weights.DetourCost + cfg.Weights.DriverRating
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("default weights sum to %f, want 1.0", sum)
	}

	if cfg.Thresholds.MaxPickupDistanceKm <= 0 ||
		cfg.Thresholds.MaxDropoffDistanceKm <= 0 ||
		cfg.Thresholds.MaxTimeDiffMinutes <= 0 ||
		cfg.Thresholds.BoundingBoxPaddingDeg <= 0 ||
		cfg.Thresholds.MaxDetourFraction <= 0 ||
		cfg.Thresholds.MaxDetourMinutes <= 0 ||
		cfg.Thresholds.DefaultRouteDistanceKm <= 0 {
		t.Errorf("defaults must leave no threshold unset: %+v", cfg.Thresholds)
	}
	if cfg.Optimizer.MaxRidersPerPool <= 0 || cfg.Optimizer.MaxPoolDetourKm <= 0 {
		t.Errorf("optimizer defaults unset: %+v", cfg.Optimizer)
	}
	if cfg.MaxResults <= 0 {
		t.Error("max results default unset")
	}
}

func TestMerge_PartialOverride(t *testing.T) {
	base := DefaultMatchConfig()

	pickup := 0.5
	detourKm := 6.0
	maxResults := 3
	merged := Merge(base, &MatchOverrides{
		Weights:    &WeightsOverrides{PickupDistance: &pickup},
		Optimizer:  &OptimizerOverrides{MaxPoolDetourKm: &detourKm},
		MaxResults: &maxResults,
	})

	if merged.Weights.PickupDistance != 0.5 {
		t.Errorf("override not applied: %f", merged.Weights.PickupDistance)
	}
	if merged.Weights.DropoffDistance != base.Weights.DropoffDistance {
		t.Errorf("untouched weight changed: %f", merged.Weights.DropoffDistance)
	}
	if merged.Optimizer.MaxPoolDetourKm != 6.0 || merged.Optimizer.MaxRidersPerPool != base.Optimizer.MaxRidersPerPool {
		t.Errorf("optimizer merge wrong: %+v", merged.Optimizer)
	}
	if merged.MaxResults != 3 {
		t.Errorf("max results override not applied: %d", merged.MaxResults)
	}
	// base untouched
	if base.Weights.PickupDistance != 0.25 {
		t.Error("merge must not mutate the base config")
	}
}

func TestMerge_NilOverride(t *testing.T) {
	base := DefaultMatchConfig()
	if merged := Merge(base, nil); merged != base {
		t.Error("nil override must return the base unchanged")
	}
}
